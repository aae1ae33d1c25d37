package events

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/taptopay"
)

// Publisher is the slice of a broker connection the forwarder needs.
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder mirrors a tap-to-pay event stream onto one broker subject.
// Publishes run behind a circuit breaker so a broker outage costs one
// failed call per event at worst, and nothing at all once the breaker
// opens.
type Forwarder struct {
	subject string
	pub     Publisher
	breaker *Breaker
	logger  *zap.Logger
}

// NewForwarder creates a Forwarder. A nil breaker gets defaults.
func NewForwarder(subject string, pub Publisher, breaker *Breaker, logger *zap.Logger) *Forwarder {
	if pub == nil {
		panic("publisher cannot be nil")
	}
	if breaker == nil {
		breaker = NewBreaker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{subject: subject, pub: pub, breaker: breaker, logger: logger}
}

// Run consumes the event channel until it closes, publishing each event.
// Intended to run in its own goroutine for the life of the subscription.
func (f *Forwarder) Run(events <-chan taptopay.Event) {
	for ev := range events {
		f.Forward(ev)
	}
}

// Forward publishes one event, honoring the breaker.
func (f *Forwarder) Forward(ev taptopay.Event) {
	if !f.breaker.Allow() {
		f.logger.Debug("skipping event publish, breaker open",
			zap.String("event", ev.Name))
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.Warn("failed to encode tap-to-pay event", zap.Error(err))
		return
	}
	if err := f.pub.Publish(f.subject, payload); err != nil {
		f.breaker.RecordFailure()
		f.logger.Warn("failed to publish tap-to-pay event",
			zap.String("event", ev.Name), zap.Error(err))
		return
	}
	f.breaker.RecordSuccess()
}
