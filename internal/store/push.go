package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/kitchin/internal/model"
)

const subscriptionCols = `account_id, endpoint, p256dh_key, auth_key, device_name, created_at`

// SaveSubscription registers a device. Re-registering an endpoint
// refreshes its keys and moves it to accountID.
func (s *Store) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (`+subscriptionCols+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   account_id = excluded.account_id, p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key, device_name = excluded.device_name`,
		sub.AccountID, sub.Endpoint, sub.P256dhKey, sub.AuthKey, sub.DeviceName, toMillis(sub.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes accountID's registration for endpoint.
func (s *Store) DeleteSubscription(ctx context.Context, accountID, endpoint string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE account_id = ? AND endpoint = ?`, accountID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSubscriptionByEndpoint drops an endpoint the push service reported gone.
func (s *Store) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, accountIDs ...string) ([]model.PushSubscription, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(accountIDs)), ",")
	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionCols+` FROM push_subscriptions
		 WHERE account_id IN (`+placeholders+`) ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		var createdAt int64
		if err := rows.Scan(&sub.AccountID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		sub.CreatedAt = fromMillis(createdAt)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// RecordSent marks a notification as delivered. It reports false if the
// same notification was already recorded.
func (s *Store) RecordSent(ctx context.Context, householdID, notifType, refID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO push_sent (household_id, notification_type, reference_id, sent_at)
		 VALUES (?, ?, ?, ?)`,
		householdID, notifType, refID, toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("record sent notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ExpiryReference names one expiration value of one food item in push_sent.
func ExpiryReference(zone model.Zone, foodID string, expiration time.Time) string {
	return string(zone) + "/" + foodID + "@" + strconv.FormatInt(toMillis(expiration), 10)
}

// CleanupSent removes dedupe records older than cutoff. Expiry reminders for
// items still stored with the same expiration are kept so they never repeat.
func (s *Store) CleanupSent(ctx context.Context, cutoff time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_sent
		 WHERE sent_at < ?
		   AND NOT (notification_type = ? AND EXISTS (
		     SELECT 1 FROM food_items f
		      WHERE f.household_id = push_sent.household_id
		        AND f.expiration IS NOT NULL
		        AND f.zone || '/' || f.food_id || '@' || f.expiration = push_sent.reference_id))`,
		toMillis(cutoff), model.NotifTypeExpiringSoon,
	)
	if err != nil {
		return fmt.Errorf("cleanup sent notifications: %w", err)
	}
	return nil
}
