package idalloc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/model"
)

func TestRandomTokensFormat(t *testing.T) {
	tests := []struct {
		kind Kind
		re   *regexp.Regexp
	}{
		{KindHouseholdID, regexp.MustCompile(`^[0-9A-F]{12}$`)},
		{KindHouseholdCode, regexp.MustCompile(`^[0-9A-F]{6}$`)},
		{KindFood, regexp.MustCompile(`^[0-9a-f]{32}$`)},
		{KindGrocery, regexp.MustCompile(`^[0-9a-f]{32}$`)},
		{KindRecipe, regexp.MustCompile(`^[0-9a-f]{32}$`)},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			tok, err := RandomTokens(tt.kind)
			if err != nil {
				t.Fatalf("token: %v", err)
			}
			if !tt.re.MatchString(tok) {
				t.Errorf("token = %q, want match for %s", tok, tt.re)
			}
		})
	}
}

// sequence returns a token source that yields toks in order.
func sequence(toks ...string) TokenSource {
	i := 0
	return func(Kind) (string, error) {
		if i >= len(toks) {
			return "", fmt.Errorf("sequence exhausted")
		}
		tok := toks[i]
		i++
		return tok, nil
	}
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	taken := map[string]bool{"AAA": true, "BBB": true}
	a := New(WithTokenSource(sequence("AAA", "BBB", "CCC")))

	var tried []string
	id, err := a.Allocate(context.Background(), HouseholdCodeScope(), func(_ context.Context, id string) error {
		tried = append(tried, id)
		if taken[id] {
			return fmt.Errorf("insert: %w", ErrCollision)
		}
		taken[id] = true
		return nil
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if id != "CCC" {
		t.Errorf("id = %q, want %q", id, "CCC")
	}
	if len(tried) != 3 {
		t.Errorf("attempts = %d, want 3", len(tried))
	}
}

func TestAllocateExhausted(t *testing.T) {
	a := New(
		WithMaxAttempts(4),
		WithTokenSource(func(Kind) (string, error) { return "same", nil }),
	)

	calls := 0
	_, err := a.Allocate(context.Background(), FoodScope("H1", model.ZoneFridge), func(context.Context, string) error {
		calls++
		return ErrCollision
	})
	if !apperr.Is(err, apperr.AllocationExhausted) {
		t.Fatalf("err = %v, want AllocationExhausted", err)
	}
	if !errors.Is(err, ErrCollision) {
		t.Errorf("expected exhausted error to wrap ErrCollision")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestAllocateDefaultBound(t *testing.T) {
	a := New()
	calls := 0
	_, err := a.Allocate(context.Background(), GroceryScope("H1"), func(context.Context, string) error {
		calls++
		return ErrCollision
	})
	if !apperr.Is(err, apperr.AllocationExhausted) {
		t.Fatalf("err = %v, want AllocationExhausted", err)
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("calls = %d, want %d", calls, DefaultMaxAttempts)
	}
}

func TestAllocateStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	a := New()

	calls := 0
	_, err := a.Allocate(context.Background(), RecipeScope("H1"), func(context.Context, string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestAllocateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New()
	_, err := a.Allocate(ctx, HouseholdIDScope(), func(context.Context, string) error {
		t.Error("insert should not run on a canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestScopeString(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{HouseholdIDScope(), "household_id"},
		{GroceryScope("H1"), "grocery/H1"},
		{FoodScope("H1", model.ZonePantry), "food/H1/pantry"},
	}
	for _, tt := range tests {
		if got := tt.scope.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
