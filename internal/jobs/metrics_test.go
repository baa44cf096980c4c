package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 20; i++ {
		if err := metrics.Track("invoices:recompute").End(nil); err != nil {
			t.Fatalf("unexpected error ending tracker: %v", err)
		}
	}
	boom := errors.New("timeout")
	for i := 0; i < 2; i++ {
		if err := metrics.Track("invoices:recompute").End(boom); !errors.Is(err, boom) {
			t.Fatalf("expected error to propagate, got %v", err)
		}
	}

	success := testutil.ToFloat64(metrics.runs.WithLabelValues("invoices:recompute", "success"))
	failure := testutil.ToFloat64(metrics.runs.WithLabelValues("invoices:recompute", "failure"))
	if success != 20 || failure != 2 {
		t.Fatalf("unexpected run counts: success=%v failure=%v", success, failure)
	}
	if got := testutil.ToFloat64(metrics.failures.WithLabelValues("invoices:recompute")); got != 2 {
		t.Fatalf("expected 2 failures, got %v", got)
	}
	if n := testutil.CollectAndCount(metrics.duration); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestRecomputeAndReceiptCounters(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.AddRecomputed(true, 3)
	metrics.AddRecomputed(false, 7)
	metrics.AddRecomputed(true, 0)
	metrics.ReceiptSent()

	if got := testutil.ToFloat64(metrics.recomputed.WithLabelValues("changed")); got != 3 {
		t.Fatalf("expected 3 changed, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.recomputed.WithLabelValues("unchanged")); got != 7 {
		t.Fatalf("expected 7 unchanged, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.receiptSent); got != 1 {
		t.Fatalf("expected 1 receipt, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.AddRecomputed(true, 1)
	metrics.ReceiptSent()
	if err := metrics.Track("x").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
