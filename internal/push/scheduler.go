package push

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

// sentRetention is how long dedupe records are kept once their item is gone
// or its expiration changed.
const sentRetention = 30 * 24 * time.Hour

// Scheduler periodically reminds households about food nearing expiration.
// Each item is announced once per expiration date.
type Scheduler struct {
	sender   Sender
	store    *store.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

func NewScheduler(sender Sender, s *store.Store, m *metrics.Metrics, logger *slog.Logger, interval, window time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sender:   sender,
		store:    s,
		metrics:  m,
		logger:   logger,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// Run checks once immediately and then on every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			s.logger.Error("push scheduler", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick sends reminders for every item expiring within the window that has not
// been announced yet.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now().UTC()
	items, err := s.store.ListExpiringFood(ctx, "", now.Add(s.window))
	if err != nil {
		return err
	}

	for _, it := range items {
		refID := store.ExpiryReference(it.Zone, it.Item.ID, *it.Item.Expiration)
		fresh, err := s.store.RecordSent(ctx, it.HouseholdID, model.NotifTypeExpiringSoon, refID, now)
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}

		members, err := s.store.ListMembers(ctx, it.HouseholdID)
		if err != nil {
			return err
		}
		deliver(ctx, s.sender, s.store, s.metrics, s.logger, members, model.NotifTypeExpiringSoon, expiringPayload(it, now))
	}

	return s.store.CleanupSent(ctx, now.Add(-sentRetention))
}

func expiringPayload(it store.ExpiringFood, now time.Time) Payload {
	exp := *it.Item.Expiration
	verb := "expires"
	if !exp.After(now) {
		verb = "expired"
	}
	return Payload{
		Title: "Food Expiring Soon",
		Body:  fmt.Sprintf("%s in the %s %s %s", it.Item.Name, it.Zone, verb, humanize.RelTime(exp, now, "ago", "from now")),
		URL:   "/households/" + it.HouseholdID + "/kitchen/" + string(it.Zone),
		Tag:   "expiring-" + it.Item.ID,
	}
}
