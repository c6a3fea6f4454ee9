package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers  prometheus.Gauge
	ActiveRooms    prometheus.Gauge
	Commands       *prometheus.CounterVec
	CommandLatency *prometheus.HistogramVec
	Parties        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the game server metrics on reg. A nil reg gets a private
// registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected sockets",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of live rooms",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by command and result",
		}, []string{"command", "result"}),
		CommandLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Command processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"command"}),
		Parties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parties_total",
			Help:      "Settled parties, by stop reason",
		}, []string{"reason"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.Commands,
		m.CommandLatency,
		m.Parties,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncOnlinePlayers() {
	m.OnlinePlayers.Inc()
}

func (m *Metrics) DecOnlinePlayers() {
	m.OnlinePlayers.Dec()
}

func (m *Metrics) SetActiveRooms(count int) {
	m.ActiveRooms.Set(float64(count))
}

// ObserveCommand records one handled command. result is "ok" or an error code.
func (m *Metrics) ObserveCommand(command, result string, d time.Duration) {
	m.Commands.WithLabelValues(command, result).Inc()
	m.CommandLatency.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) IncParties(reason string) {
	m.Parties.WithLabelValues(reason).Inc()
}
