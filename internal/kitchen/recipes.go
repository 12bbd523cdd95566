package kitchen

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/idalloc"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// Recipes manages a household's recipe collection. Ingredient lines are
// stored as given and must be valid UTF-8.
type Recipes struct {
	*base
}

func checkTime(t *int) error {
	if t != nil && *t < 0 {
		return apperr.New(apperr.ValidationError, "time must not be negative")
	}
	return nil
}

func checkIngredients(lines []string) error {
	for i, line := range lines {
		if !utf8.ValidString(line) {
			return apperr.New(apperr.ValidationError, "ingredient %d is not valid UTF-8", i+1)
		}
	}
	return nil
}

func (rc *Recipes) Add(ctx context.Context, requester, householdID string, in model.RecipeInput) (*model.Recipe, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkTime(&in.Time); err != nil {
		return nil, err
	}
	if err := checkIngredients(in.Ingredients); err != nil {
		return nil, err
	}

	var recipe *model.Recipe
	err = rc.run(ctx, "add_recipe", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := rc.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}

		r := &model.Recipe{
			WhoAdded:    requester,
			Image:       in.Image,
			Name:        name,
			Time:        in.Time,
			Ingredients: slices.Clone(in.Ingredients),
			Modified:    rc.clock(),
			Revision:    1,
		}
		if r.Ingredients == nil {
			r.Ingredients = []string{}
		}
		if r.Image == "" {
			r.Image = rc.defaultImage
		}

		_, err := rc.allocate(ctx, idalloc.RecipeScope(householdID), func(ctx context.Context, id string) error {
			r.ID = id
			return tx.InsertRecipe(ctx, householdID, r)
		})
		if err != nil {
			return nil, err
		}
		recipe = r
		return []model.Event{event(householdID, model.EntityRecipe, model.ActionCreated, r.ID, requester, r.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (rc *Recipes) Remove(ctx context.Context, requester, householdID, recipeID string) error {
	return rc.run(ctx, "remove_recipe", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := rc.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		if err := tx.DeleteRecipe(ctx, householdID, recipeID); err != nil {
			return nil, notFound(err, "no recipe %s", recipeID)
		}
		return []model.Event{event(householdID, model.EntityRecipe, model.ActionDeleted, recipeID, requester, "")}, nil
	})
}

func (rc *Recipes) Update(ctx context.Context, requester, householdID, recipeID string, patch model.RecipePatch) (*model.Recipe, error) {
	if err := checkPatchName(patch.Name); err != nil {
		return nil, err
	}
	if err := checkTime(patch.Time); err != nil {
		return nil, err
	}
	if err := checkIngredients(patch.Ingredients); err != nil {
		return nil, err
	}

	var recipe *model.Recipe
	err := rc.run(ctx, "update_recipe", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := rc.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		r, err := tx.GetRecipe(ctx, householdID, recipeID)
		if err != nil {
			return nil, notFound(err, "no recipe %s", recipeID)
		}
		patch.Apply(r)
		r.Modified = rc.clock()
		if err := tx.UpdateRecipe(ctx, householdID, r); err != nil {
			return nil, notFound(err, "no recipe %s", recipeID)
		}
		recipe = r
		return []model.Event{event(householdID, model.EntityRecipe, model.ActionUpdated, r.ID, requester, r.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}
