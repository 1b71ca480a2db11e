package serverconn

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "ed2ktest")

	m.FramesSent.Inc()
	m.BytesOut.Add(42)
	m.ConnectAttempts.Inc()
	m.AlertsPosted.WithLabelValues("server_status").Inc()
	m.State.Set(4)

	if got := testutil.ToFloat64(m.FramesSent); got != 1 {
		t.Fatalf("frames_sent_total: got %v", got)
	}
	if got := testutil.ToFloat64(m.BytesOut); got != 42 {
		t.Fatalf("bytes_sent_total: got %v", got)
	}
	if got := testutil.ToFloat64(m.State); got != 4 {
		t.Fatalf("state gauge: got %v", got)
	}
}

func TestNewMetricsWithoutRegistryStillUsable(t *testing.T) {
	m := NewMetrics(nil, "ed2ktest")
	m.FramesReceived.Inc()
	if got := testutil.ToFloat64(m.FramesReceived); got != 1 {
		t.Fatalf("expected usable counter without a registry, got %v", got)
	}
}
