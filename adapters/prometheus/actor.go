package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/core/metrics"
)

// ActorMetrics implements actor.ActorMetrics using Prometheus.
type ActorMetrics struct {
	messageDuration *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
	panicTotal      *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	mailboxDepth    *prometheus.GaugeVec
}

func NewActorMetrics(reg prometheus.Registerer) *ActorMetrics {
	m := &ActorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "actor_message_duration_seconds",
			Help:      "Message handling time in seconds",
			Buckets:   defaultBuckets,
		}, []string{"message_type"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_messages_total",
			Help:      "Total number of messages processed",
		}, []string{"message_type", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_panics_total",
			Help:      "Total number of handler panics",
		}, []string{"message_type"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actor_messages_dropped_total",
			Help:      "Total number of queued messages dropped by a forced stop",
		}, []string{"actor_id"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_mailbox_depth",
			Help:      "Current mailbox queue depth",
		}, []string{"actor_id"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.panicTotal,
		m.droppedTotal,
		m.mailboxDepth,
	)

	return m
}

func (m *ActorMetrics) MessageDuration(msgType string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(msgType))
}

func (m *ActorMetrics) MessageProcessed(msgType string, success bool) {
	m.messagesTotal.WithLabelValues(msgType, boolToStr(success)).Inc()
}

func (m *ActorMetrics) MessagePanic(msgType string) {
	m.panicTotal.WithLabelValues(msgType).Inc()
}

func (m *ActorMetrics) MessagesDropped(actorID string, n int) {
	m.droppedTotal.WithLabelValues(actorID).Add(float64(n))
}

func (m *ActorMetrics) MailboxDepth(actorID string, depth int) {
	m.mailboxDepth.WithLabelValues(actorID).Set(float64(depth))
}

var _ actor.ActorMetrics = (*ActorMetrics)(nil)
