package kitchen

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/idalloc"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// Registry manages household lifecycle and membership.
type Registry struct {
	*base
}

// Create makes a household administered by requester, who is its only
// member, and returns its id and join code.
func (r *Registry) Create(ctx context.Context, requester, name string) (id, code string, err error) {
	name, err = requireName(name)
	if err != nil {
		return "", "", err
	}

	err = r.run(ctx, "create_household", "", func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		now := r.clock()
		if err := tx.EnsureAccount(ctx, requester, now); err != nil {
			return nil, err
		}

		hid, err := r.allocate(ctx, idalloc.HouseholdIDScope(), func(ctx context.Context, candidate string) error {
			return tx.ReserveHouseholdID(ctx, candidate, now)
		})
		if err != nil {
			return nil, err
		}
		hcode, err := r.allocate(ctx, idalloc.HouseholdCodeScope(), func(ctx context.Context, candidate string) error {
			return tx.ReserveHouseholdCode(ctx, candidate, now)
		})
		if err != nil {
			return nil, err
		}

		if err := tx.InsertHousehold(ctx, hid, hcode, name, requester, now); err != nil {
			return nil, err
		}
		id, code = hid, hcode
		return []model.Event{event(hid, model.EntityHousehold, model.ActionCreated, hid, requester, name)}, nil
	})
	if err != nil {
		return "", "", err
	}
	r.logger.Info("household created", "household_id", id, "admin", requester)
	return id, code, nil
}

// Join adds requester to the household with the given join code.
func (r *Registry) Join(ctx context.Context, requester, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", apperr.New(apperr.ValidationError, "household code is required")
	}

	var householdID string
	err := r.run(ctx, "join_household", "", func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		hid, err := tx.HouseholdIDByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.HouseholdNotFound, "no household matches code %s", code)
		}
		if err != nil {
			return nil, err
		}

		m, err := r.membership(ctx, tx, hid, requester)
		if err != nil {
			return nil, err
		}
		if m.HasMember(requester) {
			return nil, apperr.New(apperr.DuplicateMember, "already a member of this household")
		}

		now := r.clock()
		if err := tx.BumpHousehold(ctx, hid, m.Revision, nil, nil, now); err != nil {
			return nil, err
		}
		if err := tx.AddMember(ctx, hid, requester, now); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, apperr.New(apperr.DuplicateMember, "already a member of this household")
			}
			return nil, err
		}
		householdID = hid
		return []model.Event{event(hid, model.EntityMember, model.ActionJoined, requester, requester, "")}, nil
	})
	if err != nil {
		return "", err
	}
	return householdID, nil
}

// Fetch returns the full household snapshot to a member.
func (r *Registry) Fetch(ctx context.Context, requester, householdID string) (*model.Household, error) {
	var h *model.Household
	err := r.run(ctx, "fetch_household", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := r.requireMember(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		var err error
		h, err = tx.LoadHousehold(ctx, householdID)
		return nil, notFound(err, "household %s not found", householdID)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CheckMember reports whether requester may read the household.
func (r *Registry) CheckMember(ctx context.Context, requester, householdID string) error {
	return r.run(ctx, "check_member", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		_, err := r.requireMember(ctx, tx, householdID, requester)
		return nil, err
	})
}

// List returns the households in requester's account record.
func (r *Registry) List(ctx context.Context, requester string) ([]model.HouseholdSummary, error) {
	var out []model.HouseholdSummary
	err := r.run(ctx, "list_households", "", func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		var err error
		out, err = tx.ListHouseholdsForAccount(ctx, requester)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies an admin's patch. A members list replaces the member set:
// accounts dropped from it lose the household from their record and added
// accounts gain it, in the same transaction. The list must keep the admin.
func (r *Registry) Update(ctx context.Context, requester, householdID string, patch model.HouseholdPatch) error {
	if err := checkPatchName(patch.Name); err != nil {
		return err
	}
	var want []string
	if patch.Members != nil {
		for _, id := range patch.Members {
			id = strings.TrimSpace(id)
			if id != "" && !slices.Contains(want, id) {
				want = append(want, id)
			}
		}
		if len(want) == 0 {
			return apperr.New(apperr.ValidationError, "members must not be empty")
		}
	}

	return r.run(ctx, "update_household", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		m, err := r.requireAdmin(ctx, tx, householdID, requester)
		if err != nil {
			return nil, err
		}
		if want != nil && !slices.Contains(want, m.Admin) {
			return nil, apperr.New(apperr.ValidationError, "members must include the admin")
		}

		now := r.clock()
		if err := tx.BumpHousehold(ctx, householdID, m.Revision, patch.Name, nil, now); err != nil {
			return nil, err
		}

		events := []model.Event{event(householdID, model.EntityHousehold, model.ActionUpdated, householdID, requester, "")}
		if want == nil {
			return events, nil
		}
		for _, id := range m.Members {
			if slices.Contains(want, id) {
				continue
			}
			if err := tx.RemoveMember(ctx, householdID, id); err != nil {
				return nil, err
			}
			events = append(events, event(householdID, model.EntityMember, model.ActionLeft, id, requester, ""))
		}
		for _, id := range want {
			if m.HasMember(id) {
				continue
			}
			if err := tx.AddMember(ctx, householdID, id, now); err != nil {
				return nil, err
			}
			events = append(events, event(householdID, model.EntityMember, model.ActionJoined, id, requester, ""))
		}
		return events, nil
	})
}

// TransferAdmin hands the admin role to another member.
func (r *Registry) TransferAdmin(ctx context.Context, requester, householdID, newAdmin string) error {
	newAdmin = strings.TrimSpace(newAdmin)
	if newAdmin == "" {
		return apperr.New(apperr.ValidationError, "new admin is required")
	}

	return r.run(ctx, "transfer_admin", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		m, err := r.requireAdmin(ctx, tx, householdID, requester)
		if err != nil {
			return nil, err
		}
		if !m.HasMember(newAdmin) {
			return nil, apperr.New(apperr.ValidationError, "new admin must be a member of the household")
		}
		if newAdmin == m.Admin {
			return nil, nil
		}
		if err := tx.BumpHousehold(ctx, householdID, m.Revision, nil, &newAdmin, r.clock()); err != nil {
			return nil, err
		}
		return []model.Event{event(householdID, model.EntityHousehold, model.ActionUpdated, householdID, requester, "")}, nil
	})
}

// Leave removes requester from the household. The admin must hand over the
// role first unless they are the only member, in which case the household
// is deleted.
func (r *Registry) Leave(ctx context.Context, requester, householdID string) error {
	return r.run(ctx, "leave_household", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		m, err := r.requireMember(ctx, tx, householdID, requester)
		if err != nil {
			return nil, err
		}

		if m.Admin == requester {
			if len(m.Members) > 1 {
				return nil, apperr.New(apperr.LastAdminMustTransfer,
					"transfer the admin role to another member before leaving")
			}
			if err := tx.DeleteHousehold(ctx, householdID); err != nil {
				return nil, err
			}
			return []model.Event{event(householdID, model.EntityHousehold, model.ActionDeleted, householdID, requester, "")}, nil
		}

		if err := tx.BumpHousehold(ctx, householdID, m.Revision, nil, nil, r.clock()); err != nil {
			return nil, err
		}
		if err := tx.RemoveMember(ctx, householdID, requester); err != nil {
			return nil, err
		}
		return []model.Event{event(householdID, model.EntityMember, model.ActionLeft, requester, requester, "")}, nil
	})
}

// Delete removes the household, its items and every member's link to it.
func (r *Registry) Delete(ctx context.Context, requester, householdID string) error {
	err := r.run(ctx, "delete_household", householdID, func(ctx context.Context, tx *store.Tx) ([]model.Event, error) {
		if _, err := r.requireAdmin(ctx, tx, householdID, requester); err != nil {
			return nil, err
		}
		if err := tx.DeleteHousehold(ctx, householdID); err != nil {
			return nil, notFound(err, "household %s not found", householdID)
		}
		return []model.Event{event(householdID, model.EntityHousehold, model.ActionDeleted, householdID, requester, "")}, nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("household deleted", "household_id", householdID, "admin", requester)
	return nil
}
