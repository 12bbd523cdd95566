package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/metrics"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := metrics.New()

	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})
	handler := RequestLogger(logger, m)(inner)

	req := httptest.NewRequest("GET", "/households/ABC", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenID == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("X-Request-ID = %q, want %q", got, seenID)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "path=/households/ABC", "request_id=" + seenID} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(slog.New(slog.NewTextHandler(&buf, nil)), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestRequestLoggerTagsAccount(t *testing.T) {
	var buf bytes.Buffer
	inner := TagAccount(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	withAccount := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), "alice")))
	})
	handler := RequestLogger(slog.New(slog.NewTextHandler(&buf, nil)), nil)(withAccount)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(buf.String(), "account=alice") {
		t.Errorf("log %q missing account", buf.String())
	}
}
