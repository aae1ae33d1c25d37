// Package pending owns the in-flight caller state: one slot per operation
// class, each holding at most one call awaiting an out-of-band result.
package pending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/protocol"
)

// Call is a caller awaiting the result of one dispatched operation. It is
// resolved or rejected exactly once; later attempts are no-ops.
type Call struct {
	ID        string
	Class     protocol.Class
	CreatedAt time.Time

	once sync.Once
	done chan outcome.Outcome
}

// NewCall creates a call handle for the given operation class.
func NewCall(class protocol.Class) *Call {
	return &Call{
		ID:        uuid.NewString(),
		Class:     class,
		CreatedAt: time.Now(),
		done:      make(chan outcome.Outcome, 1),
	}
}

// Resolve completes the call with the given outcome. Only the first
// Resolve or Reject takes effect.
func (c *Call) Resolve(o outcome.Outcome) {
	c.once.Do(func() {
		c.done <- o
	})
}

// Reject completes the call with a failure outcome.
func (c *Call) Reject(message, code string) {
	c.Resolve(outcome.Failure(message, code))
}

// Wait blocks until the call completes or ctx expires. The registry never
// expires calls on its own; the caller's context is the only timeout.
func (c *Call) Wait(ctx context.Context) (outcome.Outcome, error) {
	select {
	case o := <-c.done:
		return o, nil
	case <-ctx.Done():
		return outcome.Outcome{}, fmt.Errorf("waiting for %s result: %w", c.Class, ctx.Err())
	}
}
