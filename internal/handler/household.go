package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/model"
)

// LiveFeed upgrades a request to a household's change feed.
type LiveFeed interface {
	Serve(w http.ResponseWriter, r *http.Request, householdID, accountID string)
}

type HouseholdHandler struct {
	households *kitchen.Registry
	live       LiveFeed
	logger     *slog.Logger
}

func NewHouseholdHandler(k *kitchen.Kitchen, live LiveFeed, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: k.Households, live: live, logger: logger}
}

type createHouseholdRequest struct {
	Name string `json:"name"`
}

type createHouseholdResponse struct {
	ID   string `json:"household_id"`
	Code string `json:"household_code"`
}

type joinRequest struct {
	Code string `json:"code"`
}

type transferAdminRequest struct {
	Admin string `json:"admin"`
}

// List handles GET /api/households
func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.households.List(r.Context(), auth.AccountID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if list == nil {
		list = []model.HouseholdSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /api/households
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	id, code, err := h.households.Create(r.Context(), auth.AccountID(r.Context()), req.Name)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createHouseholdResponse{ID: id, Code: code})
}

// Join handles POST /api/households/join
func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	id, err := h.households.Join(r.Context(), auth.AccountID(r.Context()), req.Code)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"household_id": id})
}

// Fetch handles GET /api/households/{id}
func (h *HouseholdHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	hh, err := h.households.Fetch(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// Update handles PATCH /api/households/{id}
func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.HouseholdPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.households.Update(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferAdmin handles POST /api/households/{id}/admin
func (h *HouseholdHandler) TransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req transferAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.households.TransferAdmin(r.Context(), auth.AccountID(r.Context()), r.PathValue("id"), req.Admin); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave handles POST /api/households/{id}/leave
func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.households.Leave(r.Context(), auth.AccountID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/households/{id}
func (h *HouseholdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.households.Delete(r.Context(), auth.AccountID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Live handles GET /api/households/{id}/ws. Membership is checked before the
// upgrade so outsiders get a JSON error instead of a closed socket.
func (h *HouseholdHandler) Live(w http.ResponseWriter, r *http.Request) {
	account := auth.AccountID(r.Context())
	id := r.PathValue("id")
	if err := h.households.CheckMember(r.Context(), account, id); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.live.Serve(w, r, id, account)
}
