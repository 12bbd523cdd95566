package model

import (
	"slices"
	"time"
)

type Household struct {
	ID          string        `json:"household_id"`
	Code        string        `json:"household_code"`
	Name        string        `json:"household_name"`
	Admin       string        `json:"admin"`
	Members     []string      `json:"members"`
	Kitchen     Kitchen       `json:"kitchen"`
	GroceryList []GroceryItem `json:"grocery_list"`
	Recipes     []Recipe      `json:"recipes"`
	CreatedAt   time.Time     `json:"created_at"`
	Revision    int64         `json:"revision"`
}

type Kitchen struct {
	Fridge  []FoodItem `json:"fridge"`
	Freezer []FoodItem `json:"freezer"`
	Pantry  []FoodItem `json:"pantry"`
}

// Zone returns a pointer to the collection backing zone z.
func (k *Kitchen) Zone(z Zone) *[]FoodItem {
	switch z {
	case ZoneFridge:
		return &k.Fridge
	case ZoneFreezer:
		return &k.Freezer
	case ZonePantry:
		return &k.Pantry
	}
	return nil
}

type HouseholdSummary struct {
	ID      string `json:"household_id"`
	Name    string `json:"household_name"`
	IsAdmin bool   `json:"is_admin"`
}

// HouseholdPatch is a partial update. A nil field keeps its stored value.
type HouseholdPatch struct {
	Name    *string  `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Membership is the authorization view of one household as seen by one
// account: who administers it, who belongs to it, and whether the account's
// own record lists it.
type Membership struct {
	HouseholdID string
	Admin       string
	Members     []string
	Revision    int64
	Linked      bool
}

func (m *Membership) HasMember(accountID string) bool {
	return slices.Contains(m.Members, accountID)
}

// Event describes a committed change to a household.
type Event struct {
	HouseholdID string
	Entity      string
	Action      string
	ID          string
	Actor       string
	Label       string
}

const (
	EntityHousehold = "household"
	EntityMember    = "member"
	EntityFood      = "food_item"
	EntityGrocery   = "grocery_item"
	EntityRecipe    = "recipe"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionJoined  = "joined"
	ActionLeft    = "left"
	ActionMoved   = "moved"
	ActionCleared = "cleared"
)
