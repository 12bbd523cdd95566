package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/kitchin/internal/model"
)

func scanGrocery(scanner scanner) (*model.GroceryItem, error) {
	var item model.GroceryItem
	var checked int
	var modified int64

	err := scanner.Scan(
		&item.ID, &item.WhoAdded, &item.Image, &item.Name, &item.Brand,
		&item.Unit, &item.Amount, &item.Count, &checked, &modified, &item.Revision,
	)
	if err != nil {
		return nil, err
	}
	item.IsChecked = checked != 0
	item.Modified = fromMillis(modified)
	return &item, nil
}

const groceryCols = `grocery_list_item_id, who_added, image, name, brand, unit, amount, count, is_checked, modified, revision`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (t *Tx) InsertGrocery(ctx context.Context, householdID string, item *model.GroceryItem) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO grocery_items (household_id, `+groceryCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, item.ID, item.WhoAdded, item.Image, item.Name, item.Brand,
		item.Unit, item.Amount, item.Count, boolInt(item.IsChecked), toMillis(item.Modified), item.Revision,
	)
	if err != nil {
		return insertErr("insert grocery item", err)
	}
	return nil
}

func (t *Tx) GetGrocery(ctx context.Context, householdID, itemID string) (*model.GroceryItem, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+groceryCols+` FROM grocery_items WHERE household_id = ? AND grocery_list_item_id = ?`,
		householdID, itemID,
	)
	item, err := scanGrocery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery item: %w", err)
	}
	return item, nil
}

func (t *Tx) UpdateGrocery(ctx context.Context, householdID string, item *model.GroceryItem) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE grocery_items
		 SET image = ?, name = ?, brand = ?, unit = ?, amount = ?, count = ?, is_checked = ?,
		     modified = ?, revision = revision + 1
		 WHERE household_id = ? AND grocery_list_item_id = ? AND revision = ?`,
		item.Image, item.Name, item.Brand, item.Unit, item.Amount, item.Count, boolInt(item.IsChecked),
		toMillis(item.Modified), householdID, item.ID, item.Revision,
	)
	if err != nil {
		return fmt.Errorf("update grocery item: %w", err)
	}
	if err := t.casErr(ctx, res,
		`SELECT 1 FROM grocery_items WHERE household_id = ? AND grocery_list_item_id = ?`,
		householdID, item.ID,
	); err != nil {
		return err
	}
	item.Revision++
	return nil
}

func (t *Tx) DeleteGrocery(ctx context.Context, householdID, itemID string) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM grocery_items WHERE household_id = ? AND grocery_list_item_id = ?`,
		householdID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete grocery item: %w", err)
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

// ClearCheckedGrocery deletes every checked item and reports how many went.
func (t *Tx) ClearCheckedGrocery(ctx context.Context, householdID string) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM grocery_items WHERE household_id = ? AND is_checked = 1`,
		householdID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear checked grocery items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (t *Tx) ListGrocery(ctx context.Context, householdID string) ([]model.GroceryItem, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+groceryCols+` FROM grocery_items WHERE household_id = ? ORDER BY rowid ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list grocery items: %w", err)
	}
	defer rows.Close()

	items := []model.GroceryItem{}
	for rows.Next() {
		item, err := scanGrocery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
