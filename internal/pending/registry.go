package pending

import (
	"sync"
	"time"

	"github.com/devlas/sumup-bridge/internal/protocol"
)

// Registry stores at most one pending call per operation class. Register
// and Claim are atomic with respect to each other, so a result event racing
// a fresh dispatch sees either the old call or the new one, never both.
type Registry struct {
	mu    sync.Mutex
	slots map[protocol.Class]*Call
}

// NewRegistry creates an empty registry. One registry is owned per bridge
// instance; its lifetime matches the bridge's.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[protocol.Class]*Call)}
}

// Register stores call in its class slot and returns the call it displaced,
// if any. The caller decides what to do with the displaced call; the
// dispatcher rejects it so no caller is ever stranded.
func (r *Registry) Register(call *Call) (displaced *Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	displaced = r.slots[call.Class]
	r.slots[call.Class] = call
	return displaced
}

// Claim removes and returns the pending call for class. The claim is
// destructive: a second Claim before a new Register reports false.
func (r *Registry) Claim(class protocol.Class) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.slots[class]
	if ok {
		delete(r.slots, class)
	}
	return call, ok
}

// Remove clears the slot only if it still holds the given call. Used when a
// launch fails right after registration.
func (r *Registry) Remove(call *Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[call.Class] == call {
		delete(r.slots, call.Class)
	}
}

// Pending reports whether a call is in flight for class.
func (r *Registry) Pending(class protocol.Class) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slots[class]
	return ok
}

// PendingAge returns how long the call for class has been in flight, or
// zero when none is pending.
func (r *Registry) PendingAge(class protocol.Class) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.slots[class]
	if !ok {
		return 0
	}
	return time.Since(call.CreatedAt)
}

// Len returns the number of in-flight calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Drain removes and returns every pending call. Called at bridge teardown
// so leftover callers can be rejected rather than leaked.
func (r *Registry) Drain() []*Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]*Call, 0, len(r.slots))
	for _, class := range protocol.Classes() {
		if call, ok := r.slots[class]; ok {
			calls = append(calls, call)
			delete(r.slots, class)
		}
	}
	return calls
}
