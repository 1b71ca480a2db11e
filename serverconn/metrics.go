package serverconn

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the optional prometheus instrumentation a connection reports
// through. A ServerConnection works fine without one: it checks for a nil
// *Metrics before each update, while every field below is a concrete
// counter/gauge once constructed.
type Metrics struct {
	FramesSent      prometheus.Counter
	FramesReceived  prometheus.Counter
	BytesOut        prometheus.Counter
	BytesIn         prometheus.Counter
	AlertsPosted    *prometheus.CounterVec
	ConnectAttempts prometheus.Counter
	ConnectFailures prometheus.Counter
	State           prometheus.Gauge
}

// NewMetrics builds and registers the connection's counters against reg. A
// nil Registerer is accepted: prometheus.NewCounter etc. still returns
// usable collectors, they are just never scraped.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_sent_total", Help: "Frames written to the server connection.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_received_total", Help: "Frames read from the server connection.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_sent_total", Help: "Bytes written to the server connection.",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_received_total", Help: "Bytes read from the server connection.",
		}),
		AlertsPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_posted_total", Help: "Alerts posted, by kind.",
		}, []string{"kind"}),
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connect_attempts_total", Help: "TCP connect attempts to the server.",
		}),
		ConnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connect_failures_total", Help: "TCP connect attempts that failed.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "state", Help: "Current connection state, as its State ordinal.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesSent, m.FramesReceived, m.BytesOut, m.BytesIn, m.AlertsPosted, m.ConnectAttempts, m.ConnectFailures, m.State)
	}
	return m
}
