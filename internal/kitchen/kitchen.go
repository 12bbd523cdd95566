// Package kitchen implements the household operations: lifecycle and
// membership, the zoned food inventory, the grocery list and recipes.
//
// Every operation runs in one store transaction. Membership is loaded and
// checked inside that transaction, item creates go through the id
// allocator's conditional insert, and updates are revision checked and
// retried a bounded number of times before surfacing Conflict. Change
// events are published only after a successful commit.
package kitchen

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/guard"
	"github.com/dukerupert/kitchin/internal/idalloc"
	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
	"github.com/dukerupert/kitchin/internal/tracing"
)

// casAttempts bounds revision-checked writes before Conflict is returned.
const casAttempts = 5

// Publisher receives committed change events.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event)
}

// Publishers fans an event out to several publishers.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, ev model.Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}

type Deps struct {
	Store     *store.Store
	Allocator *idalloc.Allocator
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// DefaultImage is used for items and recipes created without an image.
	DefaultImage string
}

// Kitchen groups the household operations.
type Kitchen struct {
	Households *Registry
	Inventory  *Inventory
	Grocery    *Grocery
	Recipes    *Recipes
}

func New(d Deps) *Kitchen {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Allocator == nil {
		d.Allocator = idalloc.New(idalloc.WithMetrics(d.Metrics), idalloc.WithLogger(d.Logger))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	b := &base{
		store:        d.Store,
		alloc:        d.Allocator,
		pub:          d.Publisher,
		metrics:      d.Metrics,
		logger:       d.Logger.With("component", "kitchen"),
		now:          d.Now,
		defaultImage: d.DefaultImage,
		tracer:       tracing.Tracer(),
	}
	return &Kitchen{
		Households: &Registry{b},
		Inventory:  &Inventory{b},
		Grocery:    &Grocery{b},
		Recipes:    &Recipes{b},
	}
}

type base struct {
	store        *store.Store
	alloc        *idalloc.Allocator
	pub          Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
	defaultImage string
	tracer       trace.Tracer
}

// clock returns the current time at the precision the store keeps.
func (b *base) clock() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}

// run executes fn in a transaction, retrying revision conflicts, and
// publishes the events fn returned once the transaction has committed.
func (b *base) run(ctx context.Context, op, householdID string, fn func(ctx context.Context, tx *store.Tx) ([]model.Event, error)) error {
	ctx, span := b.tracer.Start(ctx, "kitchen."+op,
		trace.WithAttributes(attribute.String("household.id", householdID)))
	defer span.End()
	start := time.Now()

	var events []model.Event
	err := store.RetryOnStale(ctx, casAttempts, func(ctx context.Context) error {
		err := b.store.InTx(ctx, func(tx *store.Tx) error {
			var err error
			events, err = fn(ctx, tx)
			return err
		})
		if errors.Is(err, store.ErrStale) {
			b.metrics.StaleWrite(op)
		}
		return err
	})
	err = b.translate(op, err)

	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	b.metrics.ObserveOperation(op, outcome, time.Since(start))
	if err != nil {
		return err
	}

	if b.pub != nil {
		for _, ev := range events {
			b.pub.Publish(ctx, ev)
		}
	}
	return nil
}

func (b *base) translate(op string, err error) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, store.ErrStale):
		return apperr.Wrap(apperr.Conflict, err, "the record was changed by someone else, try again")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	b.logger.Error("operation failed", "op", op, "error", err)
	return apperr.Wrap(apperr.Internal, err, "%s failed", op)
}

// membership loads the household's membership for accountID, mapping a
// missing household to NotFound.
func (b *base) membership(ctx context.Context, tx *store.Tx, householdID, accountID string) (*model.Membership, error) {
	m, err := tx.Membership(ctx, householdID, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "household %s not found", householdID)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (b *base) requireMember(ctx context.Context, tx *store.Tx, householdID, accountID string) (*model.Membership, error) {
	m, err := b.membership(ctx, tx, householdID, accountID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireMember(m, accountID); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *base) requireAdmin(ctx context.Context, tx *store.Tx, householdID, accountID string) (*model.Membership, error) {
	m, err := b.membership(ctx, tx, householdID, accountID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireAdmin(m, accountID); err != nil {
		return nil, err
	}
	return m, nil
}

// allocate runs the allocator with insert as its conditional insert,
// reporting a duplicate key as a collision.
func (b *base) allocate(ctx context.Context, scope idalloc.Scope, insert func(ctx context.Context, id string) error) (string, error) {
	return b.alloc.Allocate(ctx, scope, func(ctx context.Context, id string) error {
		err := insert(ctx, id)
		if errors.Is(err, store.ErrDuplicate) {
			return idalloc.ErrCollision
		}
		return err
	})
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.NotFound, format, args...)
	}
	return err
}

func event(householdID, entity, action, id, actor, label string) model.Event {
	return model.Event{
		HouseholdID: householdID,
		Entity:      entity,
		Action:      action,
		ID:          id,
		Actor:       actor,
		Label:       label,
	}
}
