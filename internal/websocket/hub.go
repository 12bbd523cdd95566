package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
)

// Message is the change notification sent to clients of a household.
type Message struct {
	Type        string `json:"type"`
	Entity      string `json:"entity"`
	Action      string `json:"action"`
	HouseholdID string `json:"household_id"`
	ID          string `json:"id,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// NewMessage builds the wire form of ev. Type is "<entity>_<action>".
func NewMessage(ev model.Event) Message {
	return Message{
		Type:        ev.Entity + "_" + ev.Action,
		Entity:      ev.Entity,
		Action:      ev.Action,
		HouseholdID: ev.HouseholdID,
		ID:          ev.ID,
		Actor:       ev.Actor,
	}
}

// Hub tracks connected clients by household and fans change events out to them.
type Hub struct {
	mu         sync.RWMutex
	households map[string]map[*Client]struct{}
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		households: make(map[string]map[*Client]struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Register adds a client to its household's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.households[c.household]
	if !ok {
		set = make(map[*Client]struct{})
		h.households[c.household] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.WSConnected()
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()
	if removed {
		h.metrics.WSDisconnected()
	}
}

func (h *Hub) removeLocked(c *Client) bool {
	set, ok := h.households[c.household]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.households, c.household)
	}
	return true
}

// Publish sends ev to every client of its household. Clients of an account
// that left, or of a deleted household, are disconnected afterwards.
func (h *Hub) Publish(_ context.Context, ev model.Event) {
	data, err := json.Marshal(NewMessage(ev))
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var dropped int
	for c := range h.households[ev.HouseholdID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop message to avoid blocking
			h.logger.Debug("dropped event for slow client", "household_id", ev.HouseholdID, "account", c.account)
		}
		if evicts(ev, c) && h.removeLocked(c) {
			dropped++
		}
	}
	for range dropped {
		h.metrics.WSDisconnected()
	}
}

func evicts(ev model.Event, c *Client) bool {
	switch {
	case ev.Entity == model.EntityHousehold && ev.Action == model.ActionDeleted:
		return true
	case ev.Entity == model.EntityMember && ev.Action == model.ActionLeft:
		return ev.ID == c.account
	}
	return false
}

// ClientCount returns the number of clients connected to a household.
func (h *Hub) ClientCount(householdID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.households[householdID])
}
