package kitchen

import (
	"context"

	"github.com/dukerupert/kitchin/internal/idalloc"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// Grocery manages a household's shared shopping list.
type Grocery struct {
	*base
}

func (g *Grocery) Add(ctx context.Context, requester, householdID string, in model.GroceryInput) (*model.GroceryItem, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkQuantities(&in.Amount, &in.Count); err != nil {
		return nil, err
	}

	var item *model.GroceryItem
	err = g.run(ctx, "add_grocery_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := g.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}

		gi := &model.GroceryItem{
			WhoAdded: requester,
			Image:    in.Image,
			Name:     name,
			Brand:    in.Brand,
			Unit:     in.Unit,
			Amount:   in.Amount,
			Count:    in.Count,
			Modified: g.clock(),
			Revision: 1,
		}
		if gi.Image == "" {
			gi.Image = g.defaultImage
		}

		_, err := g.allocate(ctx, idalloc.GroceryScope(householdID), func(ctx context.Context, id string) error {
			gi.ID = id
			return tx.InsertGrocery(ctx, householdID, gi)
		})
		if err != nil {
			return nil, err
		}
		item = gi
		return []model.Event{event(householdID, model.EntityGrocery, model.ActionCreated, gi.ID, requester, gi.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (g *Grocery) Remove(ctx context.Context, requester, householdID, itemID string) error {
	return g.run(ctx, "remove_grocery_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := g.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		if err := tx.DeleteGrocery(ctx, householdID, itemID); err != nil {
			return nil, notFound(err, "no grocery item %s", itemID)
		}
		return []model.Event{event(householdID, model.EntityGrocery, model.ActionDeleted, itemID, requester, "")}, nil
	})
}

// Update merges patch over the stored item. Patching is_checked is how an
// item is ticked off the list.
func (g *Grocery) Update(ctx context.Context, requester, householdID, itemID string, patch model.GroceryPatch) (*model.GroceryItem, error) {
	if err := checkPatchName(patch.Name); err != nil {
		return nil, err
	}
	if err := checkQuantities(patch.Amount, patch.Count); err != nil {
		return nil, err
	}

	var item *model.GroceryItem
	err := g.run(ctx, "update_grocery_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := g.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		gi, err := tx.GetGrocery(ctx, householdID, itemID)
		if err != nil {
			return nil, notFound(err, "no grocery item %s", itemID)
		}
		patch.Apply(gi)
		gi.Modified = g.clock()
		if err := tx.UpdateGrocery(ctx, householdID, gi); err != nil {
			return nil, notFound(err, "no grocery item %s", itemID)
		}
		item = gi
		return []model.Event{event(householdID, model.EntityGrocery, model.ActionUpdated, gi.ID, requester, gi.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ClearChecked removes every checked item and returns how many were removed.
func (g *Grocery) ClearChecked(ctx context.Context, requester, householdID string) (int, error) {
	var cleared int64
	err := g.run(ctx, "clear_checked_grocery_items", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := g.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		n, err := tx.ClearCheckedGrocery(ctx, householdID)
		if err != nil {
			return nil, err
		}
		cleared = n
		if n == 0 {
			return nil, nil
		}
		return []model.Event{event(householdID, model.EntityGrocery, model.ActionCleared, "", requester, "")}, nil
	})
	if err != nil {
		return 0, err
	}
	return int(cleared), nil
}
