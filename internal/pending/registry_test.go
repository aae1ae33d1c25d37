package pending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/protocol"
)

func TestRegistry_RegisterThenClaim(t *testing.T) {
	r := NewRegistry()
	call := NewCall(protocol.Login)

	displaced := r.Register(call)
	assert.Nil(t, displaced)

	claimed, ok := r.Claim(protocol.Login)
	require.True(t, ok)
	assert.Same(t, call, claimed)

	// Claim is destructive: the slot is empty until the next register.
	_, ok = r.Claim(protocol.Login)
	assert.False(t, ok)
}

func TestRegistry_ClassesAreIndependent(t *testing.T) {
	r := NewRegistry()
	login := NewCall(protocol.Login)
	checkout := NewCall(protocol.Checkout)
	r.Register(login)
	r.Register(checkout)

	claimed, ok := r.Claim(protocol.Checkout)
	require.True(t, ok)
	assert.Same(t, checkout, claimed)
	assert.True(t, r.Pending(protocol.Login))
}

func TestRegistry_RegisterReturnsDisplacedCall(t *testing.T) {
	r := NewRegistry()
	first := NewCall(protocol.Checkout)
	second := NewCall(protocol.Checkout)

	assert.Nil(t, r.Register(first))
	displaced := r.Register(second)
	assert.Same(t, first, displaced)

	claimed, ok := r.Claim(protocol.Checkout)
	require.True(t, ok)
	assert.Same(t, second, claimed)
}

func TestRegistry_RemoveOnlyMatchingCall(t *testing.T) {
	r := NewRegistry()
	first := NewCall(protocol.Login)
	r.Register(first)

	second := NewCall(protocol.Login)
	r.Register(second)

	// first was displaced; removing it must not clear second's slot.
	r.Remove(first)
	assert.True(t, r.Pending(protocol.Login))

	r.Remove(second)
	assert.False(t, r.Pending(protocol.Login))
}

func TestRegistry_Drain(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCall(protocol.Login))
	r.Register(NewCall(protocol.TapPayment))

	calls := r.Drain()
	assert.Len(t, calls, 2)
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Drain())
}

func TestRegistry_PendingAge(t *testing.T) {
	r := NewRegistry()
	assert.Zero(t, r.PendingAge(protocol.Login))

	r.Register(NewCall(protocol.Login))
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, r.PendingAge(protocol.Login), time.Duration(0))
}

func TestRegistry_ConcurrentRegisterClaim(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(NewCall(protocol.Checkout))
		}()
		go func() {
			defer wg.Done()
			r.Claim(protocol.Checkout)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 1)
}

func TestCall_ResolveExactlyOnce(t *testing.T) {
	call := NewCall(protocol.Login)
	call.Resolve(outcome.Ack("first"))
	call.Reject("second", "IGNORED")

	o, err := call.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, o.Success)
	assert.Equal(t, "first", o.Message)
}

func TestCall_WaitHonorsContext(t *testing.T) {
	call := NewCall(protocol.Checkout)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := call.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_RejectBuildsFailureOutcome(t *testing.T) {
	call := NewCall(protocol.TapPayment)
	call.Reject("payment cancelled", protocol.ErrPaymentCancel)

	o, err := call.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, o.Success)
	assert.Equal(t, "payment cancelled", o.Message)
	assert.Equal(t, protocol.ErrPaymentCancel, o.Code)
}
