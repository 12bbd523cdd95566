package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/model"
)

type GroceryHandler struct {
	grocery *kitchen.Grocery
	logger  *slog.Logger
}

func NewGroceryHandler(k *kitchen.Kitchen, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{grocery: k.Grocery, logger: logger}
}

// CreateItem handles POST /api/households/{id}/grocery
func (h *GroceryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in model.GroceryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	item, err := h.grocery.Add(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PATCH /api/households/{id}/grocery/{item}
func (h *GroceryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch model.GroceryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	item, err := h.grocery.Update(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), r.PathValue("item"), patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/households/{id}/grocery/{item}
func (h *GroceryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.grocery.Remove(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), r.PathValue("item")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearChecked handles POST /api/households/{id}/grocery/clear-checked
func (h *GroceryHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	n, err := h.grocery.ClearChecked(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
