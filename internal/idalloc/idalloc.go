// Package idalloc issues random identifiers that are unique within a scope.
//
// A candidate token is proposed to an insert callback that performs an
// atomic conditional insert against the authoritative store. A taken token
// is reported as ErrCollision and retried with a fresh candidate, up to a
// fixed number of attempts.
package idalloc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
)

// ErrCollision is returned by an insert callback when the candidate id is
// already taken in its scope.
var ErrCollision = errors.New("identifier already taken")

// DefaultMaxAttempts bounds the number of candidates tried per allocation.
const DefaultMaxAttempts = 10

type Kind string

const (
	KindHouseholdID   Kind = "household_id"
	KindHouseholdCode Kind = "household_code"
	KindFood          Kind = "food"
	KindGrocery       Kind = "grocery"
	KindRecipe        Kind = "recipe"
)

// Scope names the namespace an identifier must be unique in.
type Scope struct {
	Kind      Kind
	Household string
	Zone      model.Zone
}

func HouseholdIDScope() Scope   { return Scope{Kind: KindHouseholdID} }
func HouseholdCodeScope() Scope { return Scope{Kind: KindHouseholdCode} }

func FoodScope(householdID string, zone model.Zone) Scope {
	return Scope{Kind: KindFood, Household: householdID, Zone: zone}
}

func GroceryScope(householdID string) Scope {
	return Scope{Kind: KindGrocery, Household: householdID}
}

func RecipeScope(householdID string) Scope {
	return Scope{Kind: KindRecipe, Household: householdID}
}

func (s Scope) String() string {
	switch {
	case s.Zone != "":
		return fmt.Sprintf("%s/%s/%s", s.Kind, s.Household, s.Zone)
	case s.Household != "":
		return fmt.Sprintf("%s/%s", s.Kind, s.Household)
	}
	return string(s.Kind)
}

// TokenSource produces a candidate identifier for a scope kind.
type TokenSource func(kind Kind) (string, error)

// RandomTokens derives tokens from random (v4) UUID bytes: 12 upper-case hex
// characters for household ids, 6 for household codes, and 32 lower-case
// hex characters for item ids.
func RandomTokens(kind Kind) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	switch kind {
	case KindHouseholdID:
		return strings.ToUpper(hex.EncodeToString(u[:6])), nil
	case KindHouseholdCode:
		return strings.ToUpper(hex.EncodeToString(u[:3])), nil
	default:
		return hex.EncodeToString(u[:]), nil
	}
}

type Allocator struct {
	tokens      TokenSource
	maxAttempts uint64
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Allocator)

func WithTokenSource(ts TokenSource) Option {
	return func(a *Allocator) { a.tokens = ts }
}

func WithMaxAttempts(n uint64) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(opts ...Option) *Allocator {
	a := &Allocator{
		tokens:      RandomTokens,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate proposes candidates to insert until one is accepted. insert must
// return ErrCollision (possibly wrapped) when the candidate is taken; any
// other error aborts the allocation unchanged. When every attempt collides,
// Allocate returns an AllocationExhausted error.
func (a *Allocator) Allocate(ctx context.Context, scope Scope, insert func(ctx context.Context, id string) error) (string, error) {
	var id string
	var attempts uint64

	// Candidates are retried immediately: the caller holds a write transaction.
	backoff := retry.WithMaxRetries(a.maxAttempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		candidate, err := a.tokens(scope.Kind)
		if err != nil {
			return err
		}
		if err := insert(ctx, candidate); err != nil {
			if errors.Is(err, ErrCollision) {
				a.metrics.Collision(string(scope.Kind))
				a.logger.Debug("id collision", "scope", scope.String(), "attempt", attempts)
				return retry.RetryableError(err)
			}
			return err
		}
		id = candidate
		return nil
	})

	switch {
	case err == nil:
		a.metrics.Allocation(string(scope.Kind), "ok")
		return id, nil
	case errors.Is(err, ErrCollision):
		a.metrics.Allocation(string(scope.Kind), "exhausted")
		a.logger.Warn("id allocation exhausted", "scope", scope.String(), "attempts", attempts)
		return "", apperr.Wrap(apperr.AllocationExhausted, err,
			"no free identifier in %s after %d attempts", scope.Kind, attempts)
	default:
		a.metrics.Allocation(string(scope.Kind), "error")
		return "", err
	}
}
