package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("add_item", "ok", time.Millisecond)
	m.Allocation("food", "ok")
	m.Collision("food")
	m.StaleWrite("update_item")
	m.WSConnected()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.Collision("household_id")
	m.Collision("household_id")
	m.Allocation("food", "exhausted")
	m.ObserveOperation("update_item", "conflict", 2*time.Millisecond)

	if got := counterValue(t, m, "kitchin_idalloc_collisions_total", map[string]string{"scope": "household_id"}); got != 2 {
		t.Errorf("collisions = %v, want 2", got)
	}
	if got := counterValue(t, m, "kitchin_idalloc_allocations_total", map[string]string{"scope": "food", "outcome": "exhausted"}); got != 1 {
		t.Errorf("exhausted allocations = %v, want 1", got)
	}
	if got := counterValue(t, m, "kitchin_ledger_operations_total", map[string]string{"op": "update_item", "outcome": "conflict"}); got != 1 {
		t.Errorf("operations = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.HTTPRequest(http.MethodGet, http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "kitchin_http_requests_total") {
		t.Error("expected kitchin_http_requests_total in output")
	}
}
