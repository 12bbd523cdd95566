package kitchen

import (
	"strings"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/model"
)

func parseZone(s string) (model.Zone, error) {
	z, ok := model.ParseZone(s)
	if !ok {
		return "", apperr.New(apperr.InvalidZone, "zone %q must be one of fridge, freezer or pantry", s)
	}
	return z, nil
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.New(apperr.ValidationError, "name is required")
	}
	return name, nil
}

func checkQuantities(amount *float64, count *int) error {
	if amount != nil && *amount < 0 {
		return apperr.New(apperr.ValidationError, "amount must not be negative")
	}
	if count != nil && *count < 0 {
		return apperr.New(apperr.ValidationError, "count must not be negative")
	}
	return nil
}

func checkPatchName(name *string) error {
	if name == nil {
		return nil
	}
	trimmed, err := requireName(*name)
	if err != nil {
		return err
	}
	*name = trimmed
	return nil
}

// storedTime drops what the store cannot keep below a millisecond.
func storedTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Millisecond)
	return &v
}
