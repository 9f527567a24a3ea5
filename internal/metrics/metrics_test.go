package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/spigell/marketsync/internal/upstream"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.CacheLookup(true)
	m.ObserveUpstream("gemini", nil)
	m.Repair(false)
	m.Placeholder()
	m.ObserveHTTP("/api/jobs", http.StatusOK, 0)
}

func TestCounters(t *testing.T) {
	m := New()

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ObserveUpstream("gemini", upstream.NewRateLimitError("gemini", ""))
	m.Placeholder()

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("gemini", "rate_limited")); got != 1 {
		t.Fatalf("expected 1 rate limited call, got %v", got)
	}
	if got := testutil.ToFloat64(m.Placeholders); got != 1 {
		t.Fatalf("expected 1 placeholder, got %v", got)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err    error
		expect string
	}{
		{nil, "ok"},
		{fmt.Errorf("wrapped: %w", &upstream.Error{StatusCode: 500}), "bad_status"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("dial tcp: refused"), "error"},
	}

	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.expect {
			t.Fatalf("%v: expected %q, got %q", tt.err, tt.expect, got)
		}
	}
}
