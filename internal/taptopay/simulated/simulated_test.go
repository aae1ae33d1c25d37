package simulated

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/taptopay"
)

type recordingListener struct {
	mu       sync.Mutex
	events   []string
	success  []map[string]any
	failures []string
	done     chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{done: make(chan struct{}, 2)}
}

func (r *recordingListener) OnEvent(name string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

func (r *recordingListener) OnPaymentSuccess(data map[string]any) {
	r.mu.Lock()
	r.success = append(r.success, data)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingListener) OnPaymentError(message, code string) {
	r.mu.Lock()
	r.failures = append(r.failures, code)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recordingListener) eventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func initSDK(t *testing.T, sdk *SDK) {
	t.Helper()
	initDone := make(chan bool, 1)
	sdk.Initialize("key", "token", func(ok bool, errMsg string) { initDone <- ok })
	select {
	case ok := <-initDone:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("init did not complete")
	}
}

func TestFactoryRegistersOnImport(t *testing.T) {
	factory := taptopay.RegisteredFactory()
	require.NotNil(t, factory)
	assert.NotNil(t, factory())
}

func TestInitializeReportsReady(t *testing.T) {
	sdk := New(time.Millisecond)
	assert.False(t, sdk.Ready())

	initSDK(t, sdk)
	assert.True(t, sdk.Ready())
}

func TestStartPaymentBeforeInitFails(t *testing.T) {
	sdk := New(time.Millisecond)
	l := newRecordingListener()
	sdk.SetListener(l)

	sdk.StartPayment(taptopay.PaymentRequest{Amount: 1000})

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("no payment result delivered")
	}
	require.Len(t, l.failures, 1)
	assert.Equal(t, protocol.ErrNotInitialized, l.failures[0])
}

func TestStartPaymentWalksDebitStages(t *testing.T) {
	sdk := New(time.Millisecond)
	l := newRecordingListener()
	sdk.SetListener(l)
	initSDK(t, sdk)

	sdk.StartPayment(taptopay.PaymentRequest{
		Amount:               1500,
		Currency:             "CLP",
		ProcessCardAs:        "DEBIT",
		ForeignTransactionID: "order-1",
	})

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("payment did not complete")
	}

	names := l.eventNames()
	assert.Contains(t, names, protocol.EventPaymentStarting)
	assert.Contains(t, names, protocol.EventCardRequested)
	assert.Contains(t, names, protocol.EventCardPresented)
	assert.Contains(t, names, protocol.EventPinRequired)

	require.Len(t, l.success, 1)
	assert.Equal(t, "TAP-order-1", l.success[0]["transaction_code"])
}

func TestStartPaymentSkipsPinForCredit(t *testing.T) {
	sdk := New(time.Millisecond)
	l := newRecordingListener()
	sdk.SetListener(l)
	initSDK(t, sdk)

	sdk.StartPayment(taptopay.PaymentRequest{
		Amount:        2000,
		ProcessCardAs: "CREDIT",
	})

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("payment did not complete")
	}
	assert.NotContains(t, l.eventNames(), protocol.EventPinRequired)
}

func TestTeardownResetsReady(t *testing.T) {
	sdk := New(time.Millisecond)
	initSDK(t, sdk)

	sdk.Teardown()
	assert.False(t, sdk.Ready())
}
