package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/kitchin/internal/model"
)

func TestSaveSubscriptionUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sub := model.PushSubscription{
		AccountID: "alice", Endpoint: "https://push.example.com/sub1",
		P256dhKey: "p1", AuthKey: "a1", DeviceName: "Phone", CreatedAt: testNow,
	}
	if err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}
	sub.P256dhKey = "p2"
	if err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("save again: %v", err)
	}

	subs, err := s.ListSubscriptions(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}
	if subs[0].P256dhKey != "p2" {
		t.Errorf("p256dh = %q, want %q", subs[0].P256dhKey, "p2")
	}
}

func TestDeleteSubscription(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sub := model.PushSubscription{AccountID: "alice", Endpoint: "https://push.example.com/x", P256dhKey: "p", AuthKey: "a", CreatedAt: testNow}
	if err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.DeleteSubscription(ctx, "bob", sub.Endpoint); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete as other account: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSubscription(ctx, "alice", sub.Endpoint); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, err := s.ListSubscriptions(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions = %d, want 0", len(subs))
	}
}

func TestRecordSentDedupes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.RecordSent(ctx, "H1", model.NotifTypeExpiringSoon, "fridge/f1", testNow)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := s.RecordSent(ctx, "H1", model.NotifTypeExpiringSoon, "fridge/f1", testNow)
	if err != nil {
		t.Fatalf("record again: %v", err)
	}
	if !first || second {
		t.Errorf("first = %v second = %v, want true false", first, second)
	}

	if err := s.CleanupSent(ctx, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	again, err := s.RecordSent(ctx, "H1", model.NotifTypeExpiringSoon, "fridge/f1", testNow)
	if err != nil {
		t.Fatalf("record after cleanup: %v", err)
	}
	if !again {
		t.Error("expected record to succeed after cleanup")
	}
}

func TestCleanupSentKeepsLiveExpiryReminders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	createTestHousehold(t, s, "H1", "C1", "alice")
	hid := "H1"

	exp := testNow.Add(24 * time.Hour)
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertFood(ctx, hid, model.ZonePantry, &model.FoodItem{ID: "f1", Name: "Milk", Expiration: &exp, Modified: testNow, Revision: 1})
	})
	if err != nil {
		t.Fatalf("insert food: %v", err)
	}

	live := ExpiryReference(model.ZonePantry, "f1", exp)
	stale := ExpiryReference(model.ZonePantry, "f1", exp.Add(-time.Hour))
	gone := ExpiryReference(model.ZoneFridge, "f9", exp)
	for _, ref := range []string{live, stale, gone} {
		if _, err := s.RecordSent(ctx, hid, model.NotifTypeExpiringSoon, ref, testNow); err != nil {
			t.Fatalf("record %s: %v", ref, err)
		}
	}

	if err := s.CleanupSent(ctx, testNow.Add(365*24*time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	for _, tt := range []struct {
		ref  string
		kept bool
	}{{live, true}, {stale, false}, {gone, false}} {
		fresh, err := s.RecordSent(ctx, hid, model.NotifTypeExpiringSoon, tt.ref, testNow)
		if err != nil {
			t.Fatalf("record %s: %v", tt.ref, err)
		}
		if fresh == tt.kept {
			t.Errorf("%s kept = %v, want %v", tt.ref, !fresh, tt.kept)
		}
	}
}
