package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/kitchin/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.NotFound, http.StatusNotFound},
		{apperr.HouseholdNotFound, http.StatusNotFound},
		{apperr.Unauthorized, http.StatusForbidden},
		{apperr.DuplicateMember, http.StatusConflict},
		{apperr.Conflict, http.StatusConflict},
		{apperr.LastAdminMustTransfer, http.StatusConflict},
		{apperr.InvalidZone, http.StatusBadRequest},
		{apperr.ValidationError, http.StatusBadRequest},
		{apperr.AllocationExhausted, http.StatusServiceUnavailable},
		{apperr.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.kind); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discardLogger(), httptest.NewRequest("GET", "/", nil), errors.New("disk I/O error at /var/lib/kitchin.db"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk") {
		t.Errorf("body leaks detail: %s", rec.Body.String())
	}
}

func TestWriteErrorRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, discardLogger(), httptest.NewRequest("GET", "/", nil), apperr.New(apperr.Conflict, "household changed"))
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After on conflict")
	}
	body := decode[errorResponse](t, rec)
	if body.Error != "household changed" || body.Kind != apperr.Conflict {
		t.Errorf("body = %+v", body)
	}
}
