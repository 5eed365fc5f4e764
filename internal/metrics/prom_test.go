package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	SetBuildInfo("1.0.0", "abc", "2026-01-01")
	RequestStart()
	RequestEnd("eval", "ok", 100*time.Millisecond)
	SessionConnect()

	if v := testutil.ToFloat64(requests.WithLabelValues("eval", "ok")); v != 1 {
		t.Fatalf("requests: %v", v)
	}
	if v := testutil.ToFloat64(requestsInflight); v != 0 {
		t.Fatalf("inflight: %v", v)
	}
	if v := testutil.ToFloat64(sessionConnects); v != 1 {
		t.Fatalf("session connects: %v", v)
	}
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("2026-01-01", "abc", "1.0.0")); v != 1 {
		t.Fatalf("build info: %v", v)
	}
}
