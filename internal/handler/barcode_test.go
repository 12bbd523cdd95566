package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/kitchin/internal/apperr"
	"github.com/dukerupert/kitchin/internal/foodfacts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func httptestGet(t *testing.T, h http.HandlerFunc, pattern string, path ...string) *httptest.ResponseRecorder {
	t.Helper()
	target := pattern
	if len(path) > 0 {
		target = path[0]
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestBarcodeLookup(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/product/3017620422003":
			w.Write([]byte(`{"code":"3017620422003","status":1,"product":{"product_name":"Whole Milk","brands":"Acme","product_quantity":"1000","product_quantity_unit":"ml"}}`))
		case "/api/v2/product/5000000000000":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	h := NewBarcodeHandler(foodfacts.New(upstream.URL, time.Minute, time.Second, nil), discardLogger())
	const pattern = "/api/barcodes/{barcode}"

	rec := httptestGet(t, h.Lookup, pattern, "/api/barcodes/3017620422003")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[barcodeResponse](t, rec)
	if got.Product.Name != "Whole Milk" || got.Food.Name != "Whole Milk" || got.Food.Count != 1 {
		t.Errorf("response = %+v", got)
	}

	wantError(t, httptestGet(t, h.Lookup, pattern, "/api/barcodes/12ab"), http.StatusBadRequest, apperr.ValidationError)
	wantError(t, httptestGet(t, h.Lookup, pattern, "/api/barcodes/99999999"), http.StatusNotFound, apperr.NotFound)

	rec = httptestGet(t, h.Lookup, pattern, "/api/barcodes/5000000000000")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure status = %d, want 502", rec.Code)
	}
}
