package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the console's instrumentation. All collectors
// register against the registry passed to New, so tests can use an
// isolated registry.
type Metrics struct {
	submissionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	feedFramesTotal  prometheus.Counter
	feedReconnects   prometheus.Counter
	feedConnected    prometheus.Gauge
	alertsTotal      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_submissions_total",
			Help: "Detection submissions by media mode and outcome.",
		}, []string{"mode", "outcome"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_submission_sessions",
			Help: "Submission sessions currently open.",
		}),
		feedFramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_feed_frames_total",
			Help: "Frames received from the live feed.",
		}),
		feedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_feed_reconnects_total",
			Help: "Reconnect attempts issued to the live feed.",
		}),
		feedConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_feed_connected",
			Help: "Whether the live feed is in the connected state.",
		}),
		alertsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "console_alerts_sent_total",
			Help: "Fire alerts pushed to the notifier.",
		}),
	}
}

func (m *Metrics) ObserveSubmission(mode, outcome string) {
	m.submissionsTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) FrameReceived() {
	m.feedFramesTotal.Inc()
}

func (m *Metrics) ReconnectRequested() {
	m.feedReconnects.Inc()
}

func (m *Metrics) SetFeedConnected(connected bool) {
	if connected {
		m.feedConnected.Set(1)
		return
	}
	m.feedConnected.Set(0)
}

func (m *Metrics) AlertSent() {
	m.alertsTotal.Inc()
}
