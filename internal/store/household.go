package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/kitchin/internal/model"
)

// EnsureAccount creates the account row on first sight of an account id.
func (t *Tx) EnsureAccount(ctx context.Context, accountID string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (account_id, created_at) VALUES (?, ?) ON CONFLICT(account_id) DO NOTHING`,
		accountID, toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	return nil
}

// ReserveHouseholdID claims id in the global household-id namespace.
// It fails with ErrDuplicate if the id was ever issued before.
func (t *Tx) ReserveHouseholdID(ctx context.Context, id string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO allocated_household_ids (household_id, allocated_at) VALUES (?, ?)`,
		id, toMillis(now),
	)
	if err != nil {
		return insertErr("reserve household id", err)
	}
	return nil
}

// ReserveHouseholdCode claims code in the global join-code namespace.
func (t *Tx) ReserveHouseholdCode(ctx context.Context, code string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO allocated_household_codes (household_code, allocated_at) VALUES (?, ?)`,
		code, toMillis(now),
	)
	if err != nil {
		return insertErr("reserve household code", err)
	}
	return nil
}

// InsertHousehold creates the household with admin as its only member and
// links it into the admin's account record.
func (t *Tx) InsertHousehold(ctx context.Context, id, code, name, admin string, now time.Time) error {
	ms := toMillis(now)
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO households (household_id, household_code, name, admin, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id, code, name, admin, ms, ms,
	); err != nil {
		return insertErr("insert household", err)
	}
	return t.AddMember(ctx, id, admin, now)
}

// HouseholdIDByCode resolves a join code.
func (t *Tx) HouseholdIDByCode(ctx context.Context, code string) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx,
		`SELECT household_id FROM households WHERE household_code = ?`, code,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("household by code: %w", err)
	}
	return id, nil
}

// Membership loads the authorization view of a household for accountID.
func (t *Tx) Membership(ctx context.Context, householdID, accountID string) (*model.Membership, error) {
	m := model.Membership{HouseholdID: householdID}
	err := t.tx.QueryRowContext(ctx,
		`SELECT admin, revision FROM households WHERE household_id = ?`, householdID,
	).Scan(&m.Admin, &m.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}

	members, err := t.listMembers(ctx, householdID)
	if err != nil {
		return nil, err
	}
	m.Members = members

	var linked int
	err = t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM account_households WHERE account_id = ? AND household_id = ?`,
		accountID, householdID,
	).Scan(&linked)
	if err != nil {
		return nil, fmt.Errorf("check account household: %w", err)
	}
	m.Linked = linked > 0
	return &m, nil
}

func (t *Tx) listMembers(ctx context.Context, householdID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT account_id FROM household_members WHERE household_id = ? ORDER BY joined_at ASC, rowid ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// AddMember adds accountID to the household and the household to the
// account record. Both rows are written in this transaction.
func (t *Tx) AddMember(ctx context.Context, householdID, accountID string, now time.Time) error {
	if err := t.EnsureAccount(ctx, accountID, now); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, account_id, joined_at) VALUES (?, ?, ?)`,
		householdID, accountID, toMillis(now),
	); err != nil {
		return insertErr("add member", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO account_households (account_id, household_id) VALUES (?, ?)
		 ON CONFLICT(account_id, household_id) DO NOTHING`,
		accountID, householdID,
	); err != nil {
		return fmt.Errorf("link account household: %w", err)
	}
	return nil
}

// RemoveMember is the inverse of AddMember.
func (t *Tx) RemoveMember(ctx context.Context, householdID, accountID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM household_members WHERE household_id = ? AND account_id = ?`,
		householdID, accountID,
	); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM account_households WHERE account_id = ? AND household_id = ?`,
		accountID, householdID,
	); err != nil {
		return fmt.Errorf("unlink account household: %w", err)
	}
	return nil
}

// BumpHousehold advances the household revision if it still equals
// expected, setting name and admin in the same statement.
func (t *Tx) BumpHousehold(ctx context.Context, householdID string, expected int64, name, admin *string, now time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE households
		 SET name = COALESCE(?, name), admin = COALESCE(?, admin), revision = revision + 1, updated_at = ?
		 WHERE household_id = ? AND revision = ?`,
		nullString(name), nullString(admin), toMillis(now), householdID, expected,
	)
	if err != nil {
		return fmt.Errorf("update household: %w", err)
	}
	return t.casErr(ctx, res, `SELECT 1 FROM households WHERE household_id = ?`, householdID)
}

// DeleteHousehold removes the household. Members, account links and every
// nested item go with it through ON DELETE CASCADE; the allocated id and
// code stay reserved.
func (t *Tx) DeleteHousehold(ctx context.Context, householdID string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM households WHERE household_id = ?`, householdID)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
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

// LoadHousehold reads the full household snapshot.
func (t *Tx) LoadHousehold(ctx context.Context, householdID string) (*model.Household, error) {
	var h model.Household
	var createdAt int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT household_id, household_code, name, admin, revision, created_at
		 FROM households WHERE household_id = ?`, householdID,
	).Scan(&h.ID, &h.Code, &h.Name, &h.Admin, &h.Revision, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	h.CreatedAt = fromMillis(createdAt)

	if h.Members, err = t.listMembers(ctx, householdID); err != nil {
		return nil, err
	}
	h.Kitchen = model.Kitchen{Fridge: []model.FoodItem{}, Freezer: []model.FoodItem{}, Pantry: []model.FoodItem{}}
	for _, z := range model.Zones {
		items, err := t.ListFood(ctx, householdID, z)
		if err != nil {
			return nil, err
		}
		*h.Kitchen.Zone(z) = items
	}
	if h.GroceryList, err = t.ListGrocery(ctx, householdID); err != nil {
		return nil, err
	}
	if h.Recipes, err = t.ListRecipes(ctx, householdID); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHouseholdsForAccount lists the households in an account record.
func (t *Tx) ListHouseholdsForAccount(ctx context.Context, accountID string) ([]model.HouseholdSummary, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT h.household_id, h.name, h.admin = ah.account_id
		 FROM account_households ah
		 JOIN households h ON h.household_id = ah.household_id
		 WHERE ah.account_id = ?
		 ORDER BY h.name ASC, h.household_id ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for account: %w", err)
	}
	defer rows.Close()

	households := []model.HouseholdSummary{}
	for rows.Next() {
		var s model.HouseholdSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.IsAdmin); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, s)
	}
	return households, rows.Err()
}

// ListMembers reads a household's members outside any transaction.
func (s *Store) ListMembers(ctx context.Context, householdID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id FROM household_members WHERE household_id = ? ORDER BY joined_at ASC, rowid ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}
