package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/model"
	"github.com/dukerupert/kitchin/internal/store"
)

type PushHandler struct {
	store     *store.Store
	publicKey string
	logger    *slog.Logger
}

// NewPushHandler returns a handler for device registration. An empty
// publicKey means push is disabled on this server.
func NewPushHandler(st *store.Store, publicKey string, logger *slog.Logger) *PushHandler {
	return &PushHandler{store: st, publicKey: publicKey, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.publicKey == "" {
		writeError(w, h.logger, r, apperr.New(apperr.NotFound, "push notifications are not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}

// Subscribe handles POST /api/push/subscriptions
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, h.logger, r, apperr.New(apperr.ValidationError, "endpoint, p256dh, and auth are required"))
		return
	}

	sub := model.PushSubscription{
		AccountID:  auth.AccountID(r.Context()),
		Endpoint:   req.Endpoint,
		P256dhKey:  req.P256dh,
		AuthKey:    req.Auth,
		DeviceName: req.DeviceName,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.SaveSubscription(r.Context(), sub); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	err := h.store.DeleteSubscription(r.Context(), auth.AccountID(r.Context()), strings.TrimSpace(req.Endpoint))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, h.logger, r, apperr.New(apperr.NotFound, "subscription not found"))
		return
	}
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
