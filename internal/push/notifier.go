package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// Notifier turns committed household events into push notifications for the
// other members of the household.
type Notifier struct {
	sender  Sender
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewNotifier(sender Sender, s *store.Store, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, store: s, metrics: m, logger: logger}
}

// Publish schedules delivery for events that warrant a notification. It
// returns immediately; delivery outlives the request that caused it.
func (n *Notifier) Publish(ctx context.Context, ev model.Event) {
	notifType, payload, ok := notificationFor(ev)
	if !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.notifyMembers(ctx, ev.HouseholdID, ev.Actor, notifType, payload)
	}()
}

// Wait blocks until scheduled deliveries finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func notificationFor(ev model.Event) (string, Payload, bool) {
	switch {
	case ev.Entity == model.EntityGrocery && ev.Action == model.ActionCreated:
		return model.NotifTypeGroceryAdded, Payload{
			Title: "Grocery List Updated",
			Body:  fmt.Sprintf("%s was added to the grocery list", ev.Label),
			URL:   "/households/" + ev.HouseholdID + "/grocery",
			Tag:   "grocery-added",
		}, true
	case ev.Entity == model.EntityMember && ev.Action == model.ActionJoined && ev.ID == ev.Actor:
		return model.NotifTypeMemberJoined, Payload{
			Title: "New Household Member",
			Body:  fmt.Sprintf("%s joined your household", ev.Actor),
			URL:   "/households/" + ev.HouseholdID,
			Tag:   "member-joined",
		}, true
	}
	return "", Payload{}, false
}

// notifyMembers sends payload to every subscription of the household's
// members except exclude.
func (n *Notifier) notifyMembers(ctx context.Context, householdID, exclude, notifType string, payload Payload) {
	members, err := n.store.ListMembers(ctx, householdID)
	if err != nil {
		n.logger.Error("push: list members", "household_id", householdID, "error", err)
		return
	}
	members = slices.DeleteFunc(members, func(id string) bool { return id == exclude })
	deliver(ctx, n.sender, n.store, n.metrics, n.logger, members, notifType, payload)
}

func deliver(ctx context.Context, sender Sender, s *store.Store, m *metrics.Metrics, logger *slog.Logger, accounts []string, notifType string, payload Payload) {
	if len(accounts) == 0 {
		return
	}
	subs, err := s.ListSubscriptions(ctx, accounts...)
	if err != nil {
		logger.Error("push: list subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		err := sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			m.PushDelivery(notifType, "sent")
		case errors.Is(err, ErrExpired):
			m.PushDelivery(notifType, "expired")
			if err := s.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
				logger.Error("push: delete expired subscription", "error", err)
			}
		default:
			m.PushDelivery(notifType, "error")
			logger.Warn("push: send", "type", notifType, "account", sub.AccountID, "error", err)
		}
	}
}
