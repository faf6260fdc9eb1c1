package metric

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.TicksTotal.WithLabelValues(TickFired).Inc()
	r.TicksTotal.WithLabelValues(TickSkipped).Add(2)
	r.ExportsTotal.WithLabelValues("gz", ResultSuccess).Inc()
	r.PendingWorkers.Set(3)

	if got := testutil.ToFloat64(r.TicksTotal.WithLabelValues(TickSkipped)); got != 2 {
		t.Fatalf("ticks{skipped} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ExportsTotal.WithLabelValues("gz", ResultSuccess)); got != 1 {
		t.Fatalf("exports{gz,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.PendingWorkers); got != 3 {
		t.Fatalf("pending_workers = %v, want 3", got)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.AliasFailures.Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "statesnap_alias_failures_total 1") {
		t.Fatalf("body missing alias failures:\n%s", rec.Body.String())
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector("run", func() (int, int64, error) { return 3, 1024, nil })

	want := `
# HELP statesnap_snapshot_files Snapshot files of the series on disk
# TYPE statesnap_snapshot_files gauge
statesnap_snapshot_files{series="run"} 3
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want), "statesnap_snapshot_files"); err != nil {
		t.Fatalf("CollectAndCompare: %v", err)
	}
}

func TestCollector_Error(t *testing.T) {
	c := NewCollector("run", func() (int, int64, error) { return 0, 0, errors.New("disk gone") })

	r := NewRegistry()
	r.MustRegister(c)
	if _, err := r.Gatherer().Gather(); err == nil {
		t.Fatal("Gather succeeded, want collector error")
	}
}
