package socket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded on messages_dropped_total.
const (
	DropUnmatched = "unmatched"
	DropReadError = "read_error"
	DropDecode    = "decode_error"
	DropClosed    = "closed"
)

// Metrics counts connections and message flow per transport. A nil
// *Metrics records nothing.
type Metrics struct {
	connections *prometheus.CounterVec
	received    *prometheus.CounterVec
	sent        *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// defaults to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "easysocket"
	}

	m := &Metrics{
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections handed to a connection handler.",
		}, []string{"transport"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages read from a transport.",
		}, []string{"transport"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages written to a transport.",
		}, []string{"transport"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages or reads that reached no handler.",
		}, []string{"transport", "reason"}),
	}

	for _, c := range []prometheus.Collector{m.connections, m.received, m.sent, m.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) connection(transport string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(transport).Inc()
}

func (m *Metrics) receive(transport string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(transport).Inc()
}

func (m *Metrics) send(transport string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(transport).Inc()
}

func (m *Metrics) drop(transport, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(transport, reason).Inc()
}
