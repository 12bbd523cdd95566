package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kitchin/internal/apperr"
)

// maxBodyBytes caps request bodies. Recipes with long ingredient lists are
// the largest legitimate payloads.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. An empty or malformed body is a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.ValidationError, "request body is required")
		}
		return apperr.Wrap(apperr.ValidationError, err, "invalid JSON")
	}
	return nil
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound, apperr.HouseholdNotFound:
		return http.StatusNotFound
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.DuplicateMember, apperr.Conflict, apperr.LastAdminMustTransfer:
		return http.StatusConflict
	case apperr.InvalidZone, apperr.ValidationError:
		return http.StatusBadRequest
	case apperr.AllocationExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status and a {"error","kind"} body. Internal
// failures are logged and their detail is not sent to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	msg := "internal error"
	var e *apperr.Error
	if status != http.StatusInternalServerError && errors.As(err, &e) {
		msg = e.Message
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if kind == apperr.Conflict || kind == apperr.AllocationExhausted {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}
