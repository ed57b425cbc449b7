package actor

import "github.com/codewandler/bookstock/core/metrics"

// ActorMetrics is implemented by metric backends. Methods are called from
// the actor goroutine and from senders concurrently.
type ActorMetrics interface {
	MessageDuration(msgType string) metrics.Timer
	MessageProcessed(msgType string, success bool)
	MessagePanic(msgType string)
	// MessagesDropped counts messages abandoned by a forced stop.
	MessagesDropped(actorID string, n int)

	MailboxDepth(actorID string, depth int)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessagePanic(string)                  {}
func (nopActorMetrics) MessagesDropped(string, int)          {}
func (nopActorMetrics) MailboxDepth(string, int)             {}

func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
