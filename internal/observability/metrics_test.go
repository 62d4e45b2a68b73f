package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics("test", prometheus.NewRegistry())
}

func TestRecordFetch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordFetch("yahoo", 250, 120*time.Millisecond, nil)
	m.RecordFetch("yahoo", 0, time.Second, errors.New("timeout"))

	if got := testutil.ToFloat64(m.BarsFetched.WithLabelValues("yahoo")); got != 250 {
		t.Errorf("expected 250 bars, got %f", got)
	}
	if got := testutil.ToFloat64(m.FetchErrors.WithLabelValues("yahoo")); got != 1 {
		t.Errorf("expected 1 fetch error, got %f", got)
	}
}

func TestRecordRun(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRun(PhaseRun, time.Second, nil)
	m.RecordRun(PhaseSweep, time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(PhaseRun, "success")); got != 1 {
		t.Errorf("expected 1 successful run, got %f", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(PhaseSweep, "error")); got != 1 {
		t.Errorf("expected 1 failed sweep, got %f", got)
	}
	if got := testutil.ToFloat64(m.LastSuccessfulRun); got == 0 {
		t.Error("expected health gauge to be stamped")
	}
}

func TestRecordLedgerAndSignals(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSignals(3, 2)
	m.RecordLedger("KS200", 5, 42.5)
	m.RecordNotification(nil)
	m.RecordNotification(errors.New("send failed"))

	if got := testutil.ToFloat64(m.SignalsGenerated.WithLabelValues("buy")); got != 3 {
		t.Errorf("expected 3 buys, got %f", got)
	}
	if got := testutil.ToFloat64(m.FinalProfit.WithLabelValues("KS200")); got != 42.5 {
		t.Errorf("expected final profit 42.5, got %f", got)
	}
	if got := testutil.ToFloat64(m.NotificationsSent.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed notification, got %f", got)
	}
}

func TestHandler(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordDBQuery("postgres", "replace_series", 10*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_database_query_duration_seconds") {
		t.Errorf("expected query histogram in output:\n%s", rec.Body.String())
	}
}
