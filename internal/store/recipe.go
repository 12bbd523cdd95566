package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/kitchin/internal/model"
)

func scanRecipe(scanner scanner) (*model.Recipe, error) {
	var r model.Recipe
	var ingredients string
	var modified int64

	err := scanner.Scan(&r.ID, &r.WhoAdded, &r.Image, &r.Name, &r.Time, &ingredients, &modified, &r.Revision)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	r.Modified = fromMillis(modified)
	return &r, nil
}

const recipeCols = `recipe_id, who_added, image, name, time_seconds, ingredients, modified, revision`

func encodeIngredients(ingredients []string) (string, error) {
	if ingredients == nil {
		ingredients = []string{}
	}
	b, err := json.Marshal(ingredients)
	if err != nil {
		return "", fmt.Errorf("encode ingredients: %w", err)
	}
	return string(b), nil
}

func (t *Tx) InsertRecipe(ctx context.Context, householdID string, r *model.Recipe) error {
	ingredients, err := encodeIngredients(r.Ingredients)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO recipes (household_id, `+recipeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, r.ID, r.WhoAdded, r.Image, r.Name, r.Time, ingredients, toMillis(r.Modified), r.Revision,
	)
	if err != nil {
		return insertErr("insert recipe", err)
	}
	return nil
}

func (t *Tx) GetRecipe(ctx context.Context, householdID, recipeID string) (*model.Recipe, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+recipeCols+` FROM recipes WHERE household_id = ? AND recipe_id = ?`,
		householdID, recipeID,
	)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

func (t *Tx) UpdateRecipe(ctx context.Context, householdID string, r *model.Recipe) error {
	ingredients, err := encodeIngredients(r.Ingredients)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE recipes
		 SET image = ?, name = ?, time_seconds = ?, ingredients = ?, modified = ?, revision = revision + 1
		 WHERE household_id = ? AND recipe_id = ? AND revision = ?`,
		r.Image, r.Name, r.Time, ingredients, toMillis(r.Modified), householdID, r.ID, r.Revision,
	)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if err := t.casErr(ctx, res,
		`SELECT 1 FROM recipes WHERE household_id = ? AND recipe_id = ?`,
		householdID, r.ID,
	); err != nil {
		return err
	}
	r.Revision++
	return nil
}

func (t *Tx) DeleteRecipe(ctx context.Context, householdID, recipeID string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM recipes WHERE household_id = ? AND recipe_id = ?`,
		householdID, recipeID,
	)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *Tx) ListRecipes(ctx context.Context, householdID string) ([]model.Recipe, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+recipeCols+` FROM recipes WHERE household_id = ? ORDER BY rowid ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []model.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}
