// Package metrics holds the Prometheus collectors of the signaling service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "huddle"

// Drop reasons for RelayDropped.
const (
	ReasonUnknownTarget = "unknown_target"
	ReasonUndelivered   = "undelivered"
)

// Metrics is safe to use through a nil pointer; every recorder is then a
// no-op.
type Metrics struct {
	reg *prometheus.Registry

	eventsReceived  *prometheus.CounterVec
	eventsRejected  *prometheus.CounterVec
	relaysForwarded *prometheus.CounterVec
	relaysDropped   *prometheus.CounterVec
	backpressure    *prometheus.CounterVec
	roomsSwept      prometheus.Counter
	hostRepairs     prometheus.Counter
}

// Gauges are sampled at scrape time.
type Gauges struct {
	Rooms       func() int
	Connections func() int
}

func New(g Gauges) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound signaling events accepted by the codec.",
		}, []string{"type"}),
		eventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Inbound frames answered with an error event.",
		}, []string{"code"}),
		relaysForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_forwarded_total",
			Help:      "Offers, answers and candidates queued to their target.",
		}, []string{"kind"}),
		relaysDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_dropped_total",
			Help:      "Point-to-point messages that were not delivered.",
		}, []string{"reason"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_total",
			Help:      "Full outbound queues by the action taken.",
		}, []string{"action"}),
		roomsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_swept_total",
			Help:      "Idle rooms removed by the sweeper.",
		}),
		hostRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_repairs_total",
			Help:      "Rooms whose host had to be re-elected by the sweeper.",
		}),
	}
	m.reg.MustRegister(
		m.eventsReceived, m.eventsRejected,
		m.relaysForwarded, m.relaysDropped,
		m.backpressure, m.roomsSwept, m.hostRepairs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if g.Rooms != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms currently held in memory.",
		}, func() float64 { return float64(g.Rooms()) }))
	}
	if g.Connections != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open signaling sockets.",
		}, func() float64 { return float64(g.Connections()) }))
	}
	return m
}

// Handler exposes the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) EventReceived(kind string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventRejected(code string) {
	if m == nil {
		return
	}
	m.eventsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) RelayForwarded(kind string) {
	if m == nil {
		return
	}
	m.relaysForwarded.WithLabelValues(kind).Inc()
}

func (m *Metrics) RelayDropped(reason string) {
	if m == nil {
		return
	}
	m.relaysDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Backpressure(action string) {
	if m == nil {
		return
	}
	m.backpressure.WithLabelValues(action).Inc()
}

func (m *Metrics) RoomsSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.roomsSwept.Add(float64(n))
}

func (m *Metrics) HostRepaired() {
	if m == nil {
		return
	}
	m.hostRepairs.Inc()
}
