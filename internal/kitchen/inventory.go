package kitchen

import (
	"context"
	"strings"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/idalloc"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// Inventory manages the food stored in a household's fridge, freezer and
// pantry.
type Inventory struct {
	*base
}

// Add stores a new food item in zone. Owner defaults to the requester.
func (inv *Inventory) Add(ctx context.Context, requester, householdID, zone string, in model.FoodInput) (*model.FoodItem, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkQuantities(&in.Amount, &in.Count); err != nil {
		return nil, err
	}

	var item *model.FoodItem
	err = inv.run(ctx, "add_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := inv.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		z, err := parseZone(zone)
		if err != nil {
			return nil, err
		}

		f := &model.FoodItem{
			Owner:      in.Owner,
			Barcode:    in.Barcode,
			Type:       strings.TrimSpace(in.Type),
			Image:      in.Image,
			Name:       name,
			Brand:      in.Brand,
			Unit:       in.Unit,
			Amount:     in.Amount,
			Count:      in.Count,
			Expiration: storedTime(in.Expiration),
			Modified:   inv.clock(),
			Revision:   1,
		}
		if f.Owner == nil {
			owner := requester
			f.Owner = &owner
		}
		if f.Image == "" {
			f.Image = inv.defaultImage
		}

		_, err = inv.allocate(ctx, idalloc.FoodScope(householdID, z), func(ctx context.Context, id string) error {
			f.ID = id
			return tx.InsertFood(ctx, householdID, z, f)
		})
		if err != nil {
			return nil, err
		}
		item = f
		return []model.Event{event(householdID, model.EntityFood, model.ActionCreated, f.ID, requester, f.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes a food item from zone.
func (inv *Inventory) Remove(ctx context.Context, requester, householdID, zone, foodID string) error {
	return inv.run(ctx, "remove_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := inv.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		z, err := parseZone(zone)
		if err != nil {
			return nil, err
		}
		if err := tx.DeleteFood(ctx, householdID, z, foodID); err != nil {
			return nil, notFound(err, "no item %s in the %s", foodID, z)
		}
		return []model.Event{event(householdID, model.EntityFood, model.ActionDeleted, foodID, requester, "")}, nil
	})
}

// Update merges patch over the stored item and refreshes its modified time.
func (inv *Inventory) Update(ctx context.Context, requester, householdID, zone, foodID string, patch model.FoodPatch) (*model.FoodItem, error) {
	if err := checkPatchName(patch.Name); err != nil {
		return nil, err
	}
	if err := checkQuantities(patch.Amount, patch.Count); err != nil {
		return nil, err
	}

	var item *model.FoodItem
	err := inv.run(ctx, "update_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := inv.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		z, err := parseZone(zone)
		if err != nil {
			return nil, err
		}

		f, err := tx.GetFood(ctx, householdID, z, foodID)
		if err != nil {
			return nil, notFound(err, "no item %s in the %s", foodID, z)
		}
		patch.Expiration = storedTime(patch.Expiration)
		patch.Apply(f)
		f.Modified = inv.clock()
		if err := tx.UpdateFood(ctx, householdID, z, f); err != nil {
			return nil, notFound(err, "no item %s in the %s", foodID, z)
		}
		item = f
		return []model.Event{event(householdID, model.EntityFood, model.ActionUpdated, f.ID, requester, f.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Move relocates an item to another zone under a new id allocated in the
// destination zone.
func (inv *Inventory) Move(ctx context.Context, requester, householdID, from, to, foodID string) (*model.FoodItem, error) {
	var item *model.FoodItem
	err := inv.run(ctx, "move_item", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := inv.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		src, err := parseZone(from)
		if err != nil {
			return nil, err
		}
		dst, err := parseZone(to)
		if err != nil {
			return nil, err
		}
		if src == dst {
			return nil, apperr.New(apperr.ValidationError, "item is already in the %s", dst)
		}

		f, err := tx.GetFood(ctx, householdID, src, foodID)
		if err != nil {
			return nil, notFound(err, "no item %s in the %s", foodID, src)
		}
		if err := tx.DeleteFood(ctx, householdID, src, foodID); err != nil {
			return nil, notFound(err, "no item %s in the %s", foodID, src)
		}

		f.Expiration = storedTime(f.Expiration)
		f.Modified = inv.clock()
		f.Revision = 1
		_, err = inv.allocate(ctx, idalloc.FoodScope(householdID, dst), func(ctx context.Context, id string) error {
			f.ID = id
			return tx.InsertFood(ctx, householdID, dst, f)
		})
		if err != nil {
			return nil, err
		}
		item = f
		return []model.Event{event(householdID, model.EntityFood, model.ActionMoved, f.ID, requester, f.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Expiring lists the household's items that expire within the window,
// soonest first.
func (inv *Inventory) Expiring(ctx context.Context, requester, householdID string, within time.Duration) ([]model.ZonedFoodItem, error) {
	if within <= 0 {
		return nil, apperr.New(apperr.ValidationError, "window must be positive")
	}

	var out []model.ZonedFoodItem
	err := inv.run(ctx, "expiring_items", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := inv.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		expiring, err := tx.ListExpiringFood(ctx, householdID, inv.clock().Add(within))
		if err != nil {
			return nil, err
		}
		out = make([]model.ZonedFoodItem, 0, len(expiring))
		for _, e := range expiring {
			out = append(out, model.ZonedFoodItem{Zone: e.Zone, FoodItem: e.Item})
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
