package taptopay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/pending"
	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/telemetry"
)

// State is the tap-to-pay lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	// Unavailable is terminal until the next Initialize attempt. It is
	// entered immediately when the capability module is absent, or when its
	// init fails.
	Unavailable
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

const notAvailableMessage = "tap-to-pay SDK not available in this build"

// Event is an ad-hoc status notification forwarded from the capability
// module, independent of any request/response pairing.
type Event struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data,omitempty"`
}

// Manager owns the capability module's lifecycle. Payment outcomes go
// through the shared pending-call registry under the dedicated TapPayment
// class; status events fan out to subscribers.
type Manager struct {
	factory  Factory
	registry *pending.Registry
	metrics  *telemetry.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	sdk     SDK
	lastErr string

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewManager creates a manager bound to the given factory. A nil factory
// means every operation fails fast with TAP_NOT_AVAILABLE.
func NewManager(factory Factory, registry *pending.Registry, metrics *telemetry.Metrics, logger *zap.Logger) *Manager {
	if registry == nil {
		panic("pending registry cannot be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		factory:  factory,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		subs:     make(map[int]chan Event),
	}
}

// Available reports whether the capability module can be instantiated at
// all.
func (m *Manager) Available() bool {
	return m.factory != nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsReady is true only when the module finished initializing successfully.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Ready && m.sdk != nil && m.sdk.Ready()
}

func (m *Manager) setState(s State) {
	m.state = s
	m.metrics.TapState.Set(float64(s))
}

// Initialize instantiates the capability module if needed and runs its
// async init, blocking until the module reports or ctx expires. Credential
// validation happens before any module interaction.
func (m *Manager) Initialize(ctx context.Context, affiliateKey, apiToken string) error {
	if !m.Available() {
		return protocol.OpErrorf(protocol.ErrTapNotAvailable, notAvailableMessage)
	}
	if affiliateKey == "" {
		return protocol.OpErrorf(protocol.ErrNoAffiliateKey, "affiliateKey is required")
	}
	if apiToken == "" {
		return protocol.OpErrorf(protocol.ErrNoAPIToken, "apiToken is required")
	}

	m.mu.Lock()
	if m.state == Initializing {
		m.mu.Unlock()
		return protocol.OpErrorf(protocol.ErrTapInit, "initialization already in progress")
	}
	if m.sdk == nil {
		// The module is created once and cached for the manager's lifetime.
		sdk := m.factory()
		sdk.SetListener(m)
		m.sdk = sdk
	}
	sdk := m.sdk
	m.setState(Initializing)
	m.mu.Unlock()

	type initResult struct {
		ok  bool
		msg string
	}
	done := make(chan initResult, 1)
	sdk.Initialize(affiliateKey, apiToken, func(ok bool, errMsg string) {
		done <- initResult{ok: ok, msg: errMsg}
	})

	select {
	case res := <-done:
		m.mu.Lock()
		defer m.mu.Unlock()
		if res.ok {
			m.setState(Ready)
			m.lastErr = ""
			m.logger.Info("tap-to-pay SDK initialized")
			return nil
		}
		m.setState(Unavailable)
		m.lastErr = res.msg
		if res.msg == "" {
			res.msg = "failed to initialize tap-to-pay SDK"
		}
		return protocol.OpErrorf(protocol.ErrTapInit, "%s", res.msg)
	case <-ctx.Done():
		m.mu.Lock()
		m.setState(Unavailable)
		m.lastErr = ctx.Err().Error()
		m.mu.Unlock()
		return fmt.Errorf("waiting for tap-to-pay init: %w", ctx.Err())
	}
}

// StartPayment registers the caller in the single tap-payment slot and
// delegates to the module. Completion arrives later on the payment
// listener, which claims and resolves the call.
func (m *Manager) StartPayment(ctx context.Context, req PaymentRequest) (*pending.Call, error) {
	if !m.Available() {
		return nil, protocol.OpErrorf(protocol.ErrTapNotAvailable, notAvailableMessage)
	}

	m.mu.Lock()
	sdk := m.sdk
	state := m.state
	m.mu.Unlock()
	if sdk == nil || state != Ready {
		return nil, protocol.OpErrorf(protocol.ErrNotInitialized,
			"tap-to-pay not initialized, call initTapToPay first")
	}
	if req.Amount < 1 {
		return nil, protocol.OpErrorf(protocol.ErrInvalidAmount, "amount is required, minimum 1")
	}

	if req.Currency == "" {
		req.Currency = "CLP"
	}
	if req.ProcessCardAs == "" {
		req.ProcessCardAs = "DEBIT"
	}
	if req.ForeignTransactionID == "" {
		req.ForeignTransactionID = uuid.NewString()
	}

	call := pending.NewCall(protocol.TapPayment)
	if displaced := m.registry.Register(call); displaced != nil {
		// Only one contactless payment can be in flight; the older caller
		// is told so rather than left hanging.
		displaced.Reject("superseded by a new tap-to-pay payment", protocol.ErrCallSuperseded)
	}
	m.metrics.Dispatched.WithLabelValues(protocol.TapPayment.String()).Inc()
	m.metrics.PendingCalls.Set(float64(m.registry.Len()))

	m.logger.Info("tap-to-pay payment started",
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
		zap.String("process_card_as", req.ProcessCardAs))
	sdk.StartPayment(req)
	return call, nil
}

// Teardown releases the module and resets the state machine. Calling it
// when nothing was ever initialized is a no-op success.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	sdk := m.sdk
	m.sdk = nil
	m.setState(Uninitialized)
	m.lastErr = ""
	m.mu.Unlock()

	if sdk == nil {
		return nil
	}
	// A payment still waiting can never complete once the module is gone.
	if call, ok := m.registry.Claim(protocol.TapPayment); ok {
		call.Reject("tap-to-pay torn down while payment in flight", protocol.ErrPaymentCancel)
		m.metrics.PendingCalls.Set(float64(m.registry.Len()))
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("tap-to-pay teardown panicked", zap.Any("panic", r))
		}
	}()
	sdk.Teardown()
	m.logger.Info("tap-to-pay SDK released")
	return nil
}

// Subscribe returns a channel of status events and a cancel function.
// Events are dropped for subscribers that fall behind; the stream is
// advisory, not transactional.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan Event, 16)
	m.subs[id] = ch
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// OnEvent implements Listener: status events fan out verbatim to every
// subscriber.
func (m *Manager) OnEvent(name string, data map[string]any) {
	m.logger.Debug("tap-to-pay event", zap.String("event", name))
	ev := Event{Name: name, Data: data}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// OnPaymentSuccess implements Listener: the one pending payment call, if
// any, is claimed and resolved with the decoded transaction record.
func (m *Manager) OnPaymentSuccess(data map[string]any) {
	call, ok := m.registry.Claim(protocol.TapPayment)
	if !ok {
		m.metrics.UnmatchedEvents.Inc()
		m.logger.Debug("dropping tap-to-pay success with no pending payment")
		return
	}
	m.metrics.Resolved.WithLabelValues(protocol.TapPayment.String(), "success").Inc()
	m.metrics.PendingCalls.Set(float64(m.registry.Len()))
	call.Resolve(outcome.DecodeTapPayment(outcome.Bag(data)))
}

// OnPaymentError implements Listener.
func (m *Manager) OnPaymentError(message, code string) {
	call, ok := m.registry.Claim(protocol.TapPayment)
	if !ok {
		m.metrics.UnmatchedEvents.Inc()
		m.logger.Debug("dropping tap-to-pay error with no pending payment",
			zap.String("code", code))
		return
	}
	if code == "" {
		code = protocol.ErrTapPay
	}
	m.metrics.Resolved.WithLabelValues(protocol.TapPayment.String(), "failure").Inc()
	m.metrics.PendingCalls.Set(float64(m.registry.Len()))
	call.Reject(message, code)
}
