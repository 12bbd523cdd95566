// Package guard decides whether an account may act on a household.
package guard

import (
	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/model"
)

// IsMember requires both sides of the membership relation: the household
// lists the account and the account's record lists the household.
func IsMember(m *model.Membership, accountID string) bool {
	return m != nil && accountID != "" && m.Linked && m.HasMember(accountID)
}

func IsAdmin(m *model.Membership, accountID string) bool {
	return IsMember(m, accountID) && m.Admin == accountID
}

func RequireMember(m *model.Membership, accountID string) error {
	if !IsMember(m, accountID) {
		return apperr.New(apperr.Unauthorized, "not a member of this household")
	}
	return nil
}

func RequireAdmin(m *model.Membership, accountID string) error {
	if !IsAdmin(m, accountID) {
		return apperr.New(apperr.Unauthorized, "only the household admin can do this")
	}
	return nil
}
