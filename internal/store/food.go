package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/kitchin/internal/model"
)

func scanFood(scanner scanner) (*model.FoodItem, error) {
	var f model.FoodItem
	var owner, barcode sql.NullString
	var expiration sql.NullInt64
	var modified int64

	err := scanner.Scan(
		&f.ID, &owner, &barcode, &f.Type, &f.Image, &f.Name, &f.Brand,
		&f.Unit, &f.Amount, &f.Count, &expiration, &modified, &f.Revision,
	)
	if err != nil {
		return nil, err
	}
	f.Owner = stringPtr(owner)
	f.Barcode = stringPtr(barcode)
	f.Expiration = timePtr(expiration)
	f.Modified = fromMillis(modified)
	return &f, nil
}

const foodCols = `food_id, owner, barcode, type, image, name, brand, unit, amount, count, expiration, modified, revision`

// InsertFood stores item under (household, zone, item.ID). The primary key
// makes the insert conditional: an existing id fails with ErrDuplicate.
func (t *Tx) InsertFood(ctx context.Context, householdID string, zone model.Zone, item *model.FoodItem) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO food_items (household_id, zone, `+foodCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, zone, item.ID, nullString(item.Owner), nullString(item.Barcode), item.Type,
		item.Image, item.Name, item.Brand, item.Unit, item.Amount, item.Count,
		nullMillis(item.Expiration), toMillis(item.Modified), item.Revision,
	)
	if err != nil {
		return insertErr("insert food item", err)
	}
	return nil
}

func (t *Tx) GetFood(ctx context.Context, householdID string, zone model.Zone, foodID string) (*model.FoodItem, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+foodCols+` FROM food_items WHERE household_id = ? AND zone = ? AND food_id = ?`,
		householdID, zone, foodID,
	)
	f, err := scanFood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get food item: %w", err)
	}
	return f, nil
}

// UpdateFood writes item back if its stored revision still equals
// item.Revision, and advances the revision on success.
func (t *Tx) UpdateFood(ctx context.Context, householdID string, zone model.Zone, item *model.FoodItem) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE food_items
		 SET owner = ?, barcode = ?, type = ?, image = ?, name = ?, brand = ?, unit = ?,
		     amount = ?, count = ?, expiration = ?, modified = ?, revision = revision + 1
		 WHERE household_id = ? AND zone = ? AND food_id = ? AND revision = ?`,
		nullString(item.Owner), nullString(item.Barcode), item.Type, item.Image, item.Name, item.Brand, item.Unit,
		item.Amount, item.Count, nullMillis(item.Expiration), toMillis(item.Modified),
		householdID, zone, item.ID, item.Revision,
	)
	if err != nil {
		return fmt.Errorf("update food item: %w", err)
	}
	if err := t.casErr(ctx, res,
		`SELECT 1 FROM food_items WHERE household_id = ? AND zone = ? AND food_id = ?`,
		householdID, zone, item.ID,
	); err != nil {
		return err
	}
	item.Revision++
	return nil
}

func (t *Tx) DeleteFood(ctx context.Context, householdID string, zone model.Zone, foodID string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM food_items WHERE household_id = ? AND zone = ? AND food_id = ?`,
		householdID, zone, foodID,
	)
	if err != nil {
		return fmt.Errorf("delete food item: %w", err)
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

// ListFood returns a zone's items in insertion order.
func (t *Tx) ListFood(ctx context.Context, householdID string, zone model.Zone) ([]model.FoodItem, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+foodCols+` FROM food_items WHERE household_id = ? AND zone = ? ORDER BY rowid ASC`,
		householdID, zone,
	)
	if err != nil {
		return nil, fmt.Errorf("list food items: %w", err)
	}
	defer rows.Close()

	items := []model.FoodItem{}
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food item: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// ExpiringFood is a food item due to expire, with its location.
type ExpiringFood struct {
	HouseholdID string
	Zone        model.Zone
	Item        model.FoodItem
}

// ListExpiringFood returns items expiring before cutoff in one household,
// or across all households when householdID is empty, soonest first.
func (s *Store) ListExpiringFood(ctx context.Context, householdID string, cutoff time.Time) ([]ExpiringFood, error) {
	return listExpiringFood(ctx, s.db, householdID, cutoff)
}

func (t *Tx) ListExpiringFood(ctx context.Context, householdID string, cutoff time.Time) ([]ExpiringFood, error) {
	return listExpiringFood(ctx, t.tx, householdID, cutoff)
}

func listExpiringFood(ctx context.Context, q queryer, householdID string, cutoff time.Time) ([]ExpiringFood, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT household_id, zone, `+foodCols+` FROM food_items
		 WHERE expiration IS NOT NULL AND expiration <= ? AND (? = '' OR household_id = ?)
		 ORDER BY expiration ASC, rowid ASC`,
		toMillis(cutoff), householdID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring food: %w", err)
	}
	defer rows.Close()

	var out []ExpiringFood
	for rows.Next() {
		var e ExpiringFood
		var owner, barcode sql.NullString
		var expiration sql.NullInt64
		var modified int64
		f := &e.Item
		if err := rows.Scan(
			&e.HouseholdID, &e.Zone,
			&f.ID, &owner, &barcode, &f.Type, &f.Image, &f.Name, &f.Brand,
			&f.Unit, &f.Amount, &f.Count, &expiration, &modified, &f.Revision,
		); err != nil {
			return nil, fmt.Errorf("scan expiring food: %w", err)
		}
		f.Owner = stringPtr(owner)
		f.Barcode = stringPtr(barcode)
		f.Expiration = timePtr(expiration)
		f.Modified = fromMillis(modified)
		out = append(out, e)
	}
	return out, rows.Err()
}
