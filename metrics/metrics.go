// metrics exposes prometheus collectors for the order feed, playback and view clients.
package metrics

import (
	"errors"
	"net/http"

	"pickpath/animation"
	"pickpath/feed"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons for OrdersDropped.
const (
	ReasonMalformed  = "malformed"
	ReasonNotRequest = "not_request"
)

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	OrdersReceived  prometheus.Counter
	OrdersDropped   *prometheus.CounterVec
	Visualizations  *prometheus.CounterVec
	PlaybackTicks   prometheus.Counter
	PlaybackIndex   prometheus.Gauge
	PlaybackLength  prometheus.Gauge
	ViewClients     prometheus.Gauge
	FeedConnections prometheus.Counter
}

// New creates and registers the collectors under the given namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		OrdersReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_received_total",
			Help:      "Request orders decoded from the feed and queued",
		}),
		OrdersDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_dropped_total",
			Help:      "Feed messages not queued as orders, by reason",
		}, []string{"reason"}),
		Visualizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visualizations_total",
			Help:      "Visualization requests, by outcome",
		}, []string{"outcome"}),
		PlaybackTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_ticks_total",
			Help:      "Cursor steps that advanced the playback index",
		}),
		PlaybackIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_index",
			Help:      "Current playback index",
		}),
		PlaybackLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_path_cells",
			Help:      "Cells in the currently loaded expanded path",
		}),
		ViewClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_clients",
			Help:      "Connected browser websocket clients",
		}),
		FeedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_connections_total",
			Help:      "Successful connections to the order feed",
		}),
	}

	registry.MustRegister(
		m.OrdersReceived,
		m.OrdersDropped,
		m.Visualizations,
		m.PlaybackTicks,
		m.PlaybackIndex,
		m.PlaybackLength,
		m.ViewClients,
		m.FeedConnections,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Loaded implements animation.Observer.
func (m *Metrics) Loaded(f animation.Frame) {
	m.PlaybackLength.Set(float64(len(f.Path)))
	m.PlaybackIndex.Set(float64(f.Index))
}

// Ticked implements animation.Observer.
func (m *Metrics) Ticked(f animation.Frame) {
	m.PlaybackTicks.Inc()
	m.PlaybackIndex.Set(float64(f.Index))
}

// OrderReceived implements feed.Recorder.
func (m *Metrics) OrderReceived() {
	m.OrdersReceived.Inc()
}

// OrderDropped implements feed.Recorder.
func (m *Metrics) OrderDropped(err error) {
	reason := ReasonMalformed
	if errors.Is(err, feed.ErrNotARequest) {
		reason = ReasonNotRequest
	}
	m.OrdersDropped.WithLabelValues(reason).Inc()
}

// FeedConnected implements feed.Recorder.
func (m *Metrics) FeedConnected() {
	m.FeedConnections.Inc()
}

var (
	_ animation.Observer = (*Metrics)(nil)
	_ feed.Recorder      = (*Metrics)(nil)
)
