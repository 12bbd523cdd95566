package kitchen

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/model"
)

func TestCreateHousehold(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()

	id, code, err := env.k.Households.Create(ctx, "alice", "  The Flat  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !regexp.MustCompile(`^[0-9A-F]{12}$`).MatchString(id) {
		t.Errorf("id = %q, want 12 upper-case hex characters", id)
	}
	if !regexp.MustCompile(`^[0-9A-F]{6}$`).MatchString(code) {
		t.Errorf("code = %q, want 6 upper-case hex characters", code)
	}

	h, err := env.k.Households.Fetch(ctx, "alice", id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if h.Name != "The Flat" {
		t.Errorf("name = %q, want %q", h.Name, "The Flat")
	}
	if h.Admin != "alice" || len(h.Members) != 1 || h.Members[0] != "alice" {
		t.Errorf("admin = %q members = %v, want alice / [alice]", h.Admin, h.Members)
	}
	if h.Code != code {
		t.Errorf("code = %q, want %q", h.Code, code)
	}
	if len(h.Kitchen.Fridge) != 0 || len(h.Kitchen.Freezer) != 0 || len(h.Kitchen.Pantry) != 0 {
		t.Errorf("kitchen = %+v, want empty zones", h.Kitchen)
	}
	if len(h.GroceryList) != 0 || len(h.Recipes) != 0 {
		t.Error("expected empty grocery list and recipes")
	}
}

func TestCreateHouseholdRequiresName(t *testing.T) {
	env := setupKitchen(t)
	_, _, err := env.k.Households.Create(context.Background(), "alice", "   ")
	wantKind(t, err, apperr.ValidationError)
}

func TestCreateHouseholdsGetDistinctIdentifiers(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()

	ids := map[string]bool{}
	codes := map[string]bool{}
	for range 20 {
		id, code, err := env.k.Households.Create(ctx, "alice", "Home")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if ids[id] || codes[code] {
			t.Fatalf("identifier reused: id %s code %s", id, code)
		}
		ids[id], codes[code] = true, true
	}

	list, err := env.k.Households.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 20 {
		t.Errorf("households = %d, want 20", len(list))
	}
	for _, s := range list {
		if !s.IsAdmin {
			t.Errorf("household %s: is_admin = false, want true", s.ID)
		}
	}
}

func TestJoinHousehold(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()

	id, code, err := env.k.Households.Create(ctx, "alice", "Home")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := env.k.Households.Join(ctx, "bob", strings.ToLower(code))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if got != id {
		t.Errorf("joined %q, want %q", got, id)
	}

	h, err := env.k.Households.Fetch(ctx, "bob", id)
	if err != nil {
		t.Fatalf("fetch as bob: %v", err)
	}
	if !slices.Equal(h.Members, []string{"alice", "bob"}) {
		t.Errorf("members = %v, want [alice bob]", h.Members)
	}
	if h.Revision != 2 {
		t.Errorf("revision = %d, want 2", h.Revision)
	}

	list, err := env.k.Households.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].IsAdmin {
		t.Errorf("bob households = %+v, want [%s non-admin]", list, id)
	}

	_, err = env.k.Households.Join(ctx, "bob", code)
	wantKind(t, err, apperr.DuplicateMember)

	_, err = env.k.Households.Join(ctx, "alice", code)
	wantKind(t, err, apperr.DuplicateMember)

	h, err = env.k.Households.Fetch(ctx, "alice", id)
	if err != nil {
		t.Fatalf("fetch after duplicate joins: %v", err)
	}
	if !slices.Equal(h.Members, []string{"alice", "bob"}) || h.Revision != 2 {
		t.Errorf("members = %v revision = %d, want [alice bob] at revision 2", h.Members, h.Revision)
	}

	_, err = env.k.Households.Join(ctx, "carol", "FFFFFFF")
	wantKind(t, err, apperr.HouseholdNotFound)
}

func TestFetchRequiresBothMembershipSides(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob")

	_, err := env.k.Households.Fetch(ctx, "mallory", hid)
	wantKind(t, err, apperr.Unauthorized)

	// Drop only bob's account-side link.
	if _, err := env.store.DB().Exec(
		`DELETE FROM account_households WHERE account_id = ? AND household_id = ?`, "bob", hid,
	); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	_, err = env.k.Households.Fetch(ctx, "bob", hid)
	wantKind(t, err, apperr.Unauthorized)

	// Drop only alice's household-side membership.
	if _, err := env.store.DB().Exec(
		`DELETE FROM household_members WHERE account_id = ? AND household_id = ?`, "alice", hid,
	); err != nil {
		t.Fatalf("remove member row: %v", err)
	}
	_, err = env.k.Households.Fetch(ctx, "alice", hid)
	wantKind(t, err, apperr.Unauthorized)

	_, err = env.k.Households.Fetch(ctx, "alice", "000000000000")
	wantKind(t, err, apperr.NotFound)
}

func TestUpdateHousehold(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob")

	name := "Cabin"
	err := env.k.Households.Update(ctx, "bob", hid, model.HouseholdPatch{Name: &name})
	wantKind(t, err, apperr.Unauthorized)

	if err := env.k.Households.Update(ctx, "alice", hid, model.HouseholdPatch{Name: &name}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	h, err := env.k.Households.Fetch(ctx, "alice", hid)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if h.Name != "Cabin" {
		t.Errorf("name = %q, want Cabin", h.Name)
	}
	if !slices.Equal(h.Members, []string{"alice", "bob"}) {
		t.Errorf("members changed by rename: %v", h.Members)
	}

	blank := " "
	err = env.k.Households.Update(ctx, "alice", hid, model.HouseholdPatch{Name: &blank})
	wantKind(t, err, apperr.ValidationError)
}

func TestUpdateHouseholdMembersAppliesDiff(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob")

	err := env.k.Households.Update(ctx, "alice", hid, model.HouseholdPatch{Members: []string{"bob", "carol"}})
	wantKind(t, err, apperr.ValidationError)

	err = env.k.Households.Update(ctx, "alice", hid, model.HouseholdPatch{Members: []string{}})
	wantKind(t, err, apperr.ValidationError)

	err = env.k.Households.Update(ctx, "alice", hid, model.HouseholdPatch{Members: []string{"alice", "carol"}})
	if err != nil {
		t.Fatalf("replace members: %v", err)
	}

	h, err := env.k.Households.Fetch(ctx, "carol", hid)
	if err != nil {
		t.Fatalf("fetch as carol: %v", err)
	}
	if !slices.Equal(h.Members, []string{"alice", "carol"}) {
		t.Errorf("members = %v, want [alice carol]", h.Members)
	}

	_, err = env.k.Households.Fetch(ctx, "bob", hid)
	wantKind(t, err, apperr.Unauthorized)
	list, err := env.k.Households.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bob households = %+v, want none", list)
	}
}

func TestTransferAdmin(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob")

	err := env.k.Households.TransferAdmin(ctx, "alice", hid, "carol")
	wantKind(t, err, apperr.ValidationError)

	err = env.k.Households.TransferAdmin(ctx, "bob", hid, "bob")
	wantKind(t, err, apperr.Unauthorized)

	if err := env.k.Households.TransferAdmin(ctx, "alice", hid, "bob"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	h, err := env.k.Households.Fetch(ctx, "alice", hid)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if h.Admin != "bob" {
		t.Errorf("admin = %q, want bob", h.Admin)
	}

	// The former admin can now leave.
	if err := env.k.Households.Leave(ctx, "alice", hid); err != nil {
		t.Fatalf("leave: %v", err)
	}
}

func TestLeaveHousehold(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob")

	err := env.k.Households.Leave(ctx, "mallory", hid)
	wantKind(t, err, apperr.Unauthorized)

	err = env.k.Households.Leave(ctx, "alice", hid)
	wantKind(t, err, apperr.LastAdminMustTransfer)

	if err := env.k.Households.Leave(ctx, "bob", hid); err != nil {
		t.Fatalf("bob leave: %v", err)
	}
	_, err = env.k.Households.Fetch(ctx, "bob", hid)
	wantKind(t, err, apperr.Unauthorized)

	h, err := env.k.Households.Fetch(ctx, "alice", hid)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !slices.Contains(h.Members, h.Admin) {
		t.Errorf("admin %q not in members %v", h.Admin, h.Members)
	}

	// A sole admin who is also the sole member takes the household with them.
	if err := env.k.Households.Leave(ctx, "alice", hid); err != nil {
		t.Fatalf("alice leave: %v", err)
	}
	_, err = env.k.Households.Fetch(ctx, "alice", hid)
	wantKind(t, err, apperr.NotFound)
}

func TestDeleteHousehold(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice", "bob", "carol")

	if _, err := env.k.Inventory.Add(ctx, "bob", hid, "pantry", model.FoodInput{Name: "Rice"}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := env.k.Grocery.Add(ctx, "carol", hid, model.GroceryInput{Name: "Eggs"}); err != nil {
		t.Fatalf("add grocery: %v", err)
	}

	err := env.k.Households.Delete(ctx, "bob", hid)
	wantKind(t, err, apperr.Unauthorized)

	if err := env.k.Households.Delete(ctx, "alice", hid); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, account := range []string{"alice", "bob", "carol"} {
		_, err := env.k.Households.Fetch(ctx, account, hid)
		wantKind(t, err, apperr.NotFound)

		list, err := env.k.Households.List(ctx, account)
		if err != nil {
			t.Fatalf("list %s: %v", account, err)
		}
		if len(list) != 0 {
			t.Errorf("%s households = %+v, want none", account, list)
		}
	}

	err = env.k.Households.Delete(ctx, "alice", hid)
	wantKind(t, err, apperr.NotFound)
}

func TestCheckMember(t *testing.T) {
	env := setupKitchen(t)
	ctx := context.Background()
	hid := env.household(t, "alice")

	if err := env.k.Households.CheckMember(ctx, "alice", hid); err != nil {
		t.Errorf("alice: err = %v, want nil", err)
	}
	wantKind(t, env.k.Households.CheckMember(ctx, "bob", hid), apperr.Unauthorized)
	wantKind(t, env.k.Households.CheckMember(ctx, "alice", "FFFFFFFFFFFF"), apperr.NotFound)
}
