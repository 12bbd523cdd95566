package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/auth"
	"github.com/dukerupert/kitchin/internal/database"
	"github.com/dukerupert/kitchin/internal/kitchen"
	"github.com/dukerupert/kitchin/internal/store"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type stubLive struct {
	served []string
}

func (s *stubLive) Serve(w http.ResponseWriter, r *http.Request, householdID, accountID string) {
	s.served = append(s.served, householdID+"/"+accountID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type testEnv struct {
	mux   http.Handler
	store *store.Store
	live  *stubLive
}

func setupHandlers(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(db)
	k := kitchen.New(kitchen.Deps{
		Store:  st,
		Logger: logger,
		Now:    func() time.Time { return testNow },
	})
	live := &stubLive{}

	households := NewHouseholdHandler(k, live, logger)
	kh := NewKitchenHandler(k, logger)
	gh := NewGroceryHandler(k, logger)
	rh := NewRecipeHandler(k, logger)
	ph := NewPushHandler(st, "BPublicKey", logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/households", households.List)
	mux.HandleFunc("POST /api/households", households.Create)
	mux.HandleFunc("POST /api/households/join", households.Join)
	mux.HandleFunc("GET /api/households/{id}", households.Fetch)
	mux.HandleFunc("PATCH /api/households/{id}", households.Update)
	mux.HandleFunc("DELETE /api/households/{id}", households.Delete)
	mux.HandleFunc("POST /api/households/{id}/leave", households.Leave)
	mux.HandleFunc("POST /api/households/{id}/admin", households.TransferAdmin)
	mux.HandleFunc("GET /api/households/{id}/ws", households.Live)
	mux.HandleFunc("POST /api/households/{id}/kitchen/{zone}", kh.AddItem)
	mux.HandleFunc("PATCH /api/households/{id}/kitchen/{zone}/{item}", kh.UpdateItem)
	mux.HandleFunc("DELETE /api/households/{id}/kitchen/{zone}/{item}", kh.RemoveItem)
	mux.HandleFunc("POST /api/households/{id}/kitchen/{zone}/{item}/move", kh.MoveItem)
	mux.HandleFunc("GET /api/households/{id}/expiring", kh.Expiring)
	mux.HandleFunc("POST /api/households/{id}/grocery", gh.CreateItem)
	mux.HandleFunc("PATCH /api/households/{id}/grocery/{item}", gh.UpdateItem)
	mux.HandleFunc("DELETE /api/households/{id}/grocery/{item}", gh.DeleteItem)
	mux.HandleFunc("POST /api/households/{id}/grocery/clear-checked", gh.ClearChecked)
	mux.HandleFunc("POST /api/households/{id}/recipes", rh.Create)
	mux.HandleFunc("PATCH /api/households/{id}/recipes/{item}", rh.Update)
	mux.HandleFunc("DELETE /api/households/{id}/recipes/{item}", rh.Delete)
	mux.HandleFunc("GET /api/push/vapid-key", ph.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscriptions", ph.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions", ph.Unsubscribe)

	// Tests name the caller in a header instead of signing tokens.
	withAccount := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAccount(r.Context(), r.Header.Get("X-Account"))
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
	return &testEnv{mux: withAccount, store: st, live: live}
}

func (e *testEnv) do(t *testing.T, account, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Account", account)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind apperr.Kind) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decode[errorResponse](t, rec)
	if body.Kind != kind {
		t.Errorf("kind = %q, want %q", body.Kind, kind)
	}
	if body.Error == "" {
		t.Error("expected an error message")
	}
}

// household creates a household administered by admin, joins members and
// returns its id.
func (e *testEnv) household(t *testing.T, admin string, members ...string) string {
	t.Helper()
	rec := e.do(t, admin, "POST", "/api/households", map[string]string{"name": "Home"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[createHouseholdResponse](t, rec)
	for _, m := range members {
		rec := e.do(t, m, "POST", "/api/households/join", map[string]string{"code": created.Code})
		if rec.Code != http.StatusOK {
			t.Fatalf("join %s status = %d, body %s", m, rec.Code, rec.Body.String())
		}
	}
	return created.ID
}
