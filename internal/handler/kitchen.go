package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/model"
)

const (
	defaultExpiringDays = 3
	maxExpiringDays     = 365
)

type KitchenHandler struct {
	inventory *kitchen.Inventory
	logger    *slog.Logger
}

func NewKitchenHandler(k *kitchen.Kitchen, logger *slog.Logger) *KitchenHandler {
	return &KitchenHandler{inventory: k.Inventory, logger: logger}
}

type moveItemRequest struct {
	To string `json:"to"`
}

// AddItem handles POST /api/households/{id}/kitchen/{zone}
func (h *KitchenHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in model.FoodInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	item, err := h.inventory.Add(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), r.PathValue("zone"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PATCH /api/households/{id}/kitchen/{zone}/{item}
func (h *KitchenHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch model.FoodPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	item, err := h.inventory.Update(r.Context(), auth.AccountID(r.Context()),
		r.PathValue("id"), r.PathValue("zone"), r.PathValue("item"), patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/households/{id}/kitchen/{zone}/{item}
func (h *KitchenHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	err := h.inventory.Remove(r.Context(), auth.AccountID(r.Context()),
		r.PathValue("id"), r.PathValue("zone"), r.PathValue("item"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem handles POST /api/households/{id}/kitchen/{zone}/{item}/move
func (h *KitchenHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	item, err := h.inventory.Move(r.Context(), auth.AccountID(r.Context()),
		r.PathValue("id"), r.PathValue("zone"), req.To, r.PathValue("item"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Expiring handles GET /api/households/{id}/expiring?days=N
func (h *KitchenHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiringDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxExpiringDays {
			writeError(w, h.logger, r, apperr.New(apperr.ValidationError, "days must be between 1 and %d", maxExpiringDays))
			return
		}
		days = n
	}

	items, err := h.inventory.Expiring(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"),
		time.Duration(days)*24*time.Hour)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if items == nil {
		items = []model.ZonedFoodItem{}
	}
	writeJSON(w, http.StatusOK, items)
}
