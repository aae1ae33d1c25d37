// Package bridge implements the operation dispatcher and the result router:
// it validates requests, registers the issuing caller against the correct
// operation class, asks the reader SDK driver to launch the operation, and
// later routes the out-of-band result back to the one caller waiting on it.
package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/pending"
	"github.com/devlas/sumup-bridge/internal/policy"
	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/telemetry"
	"github.com/devlas/sumup-bridge/internal/terminal"
)

// minCheckoutAmount is the reader SDK's floor for a checkout total, in the
// operation's currency unit.
var minCheckoutAmount = decimal.NewFromInt(1)

// LoginParams carries the inputs of a login dispatch.
type LoginParams struct {
	AffiliateKey string
	AccessToken  string
}

// CheckoutParams carries the inputs of a checkout dispatch, before
// validation.
type CheckoutParams struct {
	Amount               decimal.Decimal
	Title                string
	CurrencyCode         string
	TipOnCardReader      bool
	Tip                  decimal.Decimal
	SkipSuccessScreen    bool
	SkipFailedScreen     bool
	ForeignTransactionID string
}

// Bridge owns the pending-call registry for the hosted reader operations
// and dispatches against it. One Bridge is created per plugin instance;
// Close rejects whatever is still in flight.
type Bridge struct {
	driver   terminal.Driver
	registry *pending.Registry
	enforcer *policy.Enforcer
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	tracer   trace.Tracer

	// hostExec, when set, runs driver launches on the UI-owning execution
	// context. Without one, launches run synchronously in the calling
	// goroutine.
	hostExec func(func())
}

// New creates a Bridge around the given driver.
func New(driver terminal.Driver, enforcer *policy.Enforcer, metrics *telemetry.Metrics, logger *zap.Logger) *Bridge {
	if driver == nil {
		panic("driver cannot be nil")
	}
	if enforcer == nil {
		enforcer, _ = policy.NewEnforcer(nil)
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		driver:   driver,
		registry: pending.NewRegistry(),
		enforcer: enforcer,
		metrics:  metrics,
		logger:   logger,
		tracer:   otel.Tracer("bridge"),
	}
}

// Registry exposes the pending-call registry so the tap-to-pay manager can
// share it for its dedicated payment slot.
func (b *Bridge) Registry() *pending.Registry {
	return b.registry
}

// SetHostExecutor installs the UI-owning execution context for driver
// launches.
func (b *Bridge) SetHostExecutor(exec func(func())) {
	b.hostExec = exec
}

func (b *Bridge) runOnHost(action func()) {
	if b.hostExec != nil {
		b.hostExec(action)
		return
	}
	action()
}

// Setup performs one-time driver initialization.
func (b *Bridge) Setup() error {
	if err := b.driver.Init(); err != nil {
		return protocol.OpErrorf(protocol.ErrSetup, "failed to initialize reader SDK: %v", err)
	}
	b.logger.Info("reader SDK initialized")
	return nil
}

// Login dispatches the hosted login flow. The returned call resolves when
// the host reports the login result.
func (b *Bridge) Login(ctx context.Context, params LoginParams) (*pending.Call, error) {
	if params.AffiliateKey == "" {
		return nil, protocol.OpErrorf(protocol.ErrNoAffiliateKey, "affiliateKey is required")
	}
	req := terminal.LoginRequest{
		AffiliateKey: params.AffiliateKey,
		AccessToken:  params.AccessToken,
	}
	return b.dispatch(ctx, protocol.Login, 0, func(requestCode int) error {
		return b.driver.OpenLogin(req, requestCode)
	})
}

// Checkout validates the request and dispatches the hosted checkout flow.
// Requests that fail validation never reach the driver and never register a
// pending call.
func (b *Bridge) Checkout(ctx context.Context, params CheckoutParams) (*pending.Call, error) {
	if params.Amount.LessThan(minCheckoutAmount) {
		return nil, protocol.OpErrorf(protocol.ErrInvalidAmount,
			"amount is required, minimum %s", minCheckoutAmount.String())
	}
	if params.CurrencyCode != "" && !protocol.ValidCurrency(params.CurrencyCode) {
		return nil, protocol.OpErrorf(protocol.ErrInvalidCurrency,
			"invalid currency code: %s", params.CurrencyCode)
	}

	payment := terminal.Payment{
		Total:             params.Amount,
		Title:             params.Title,
		Currency:          params.CurrencyCode,
		SkipSuccessScreen: params.SkipSuccessScreen,
		SkipFailedScreen:  params.SkipFailedScreen,
	}
	// Tip on the reader wins when the device supports it; otherwise an
	// explicit positive tip amount applies.
	if params.TipOnCardReader && b.driver.TipOnReaderSupported() {
		payment.TipOnReader = true
	} else if params.Tip.IsPositive() {
		payment.Tip = params.Tip
	}
	payment.ForeignTransactionID = params.ForeignTransactionID
	if payment.ForeignTransactionID == "" {
		payment.ForeignTransactionID = uuid.NewString()
	}

	amount, _ := params.Amount.Float64()
	return b.dispatch(ctx, protocol.Checkout, amount, func(requestCode int) error {
		return b.driver.OpenCheckout(payment, requestCode)
	})
}

// OpenReaderSetup dispatches the hosted card-reader settings page.
func (b *Bridge) OpenReaderSetup(ctx context.Context) (*pending.Call, error) {
	return b.dispatch(ctx, protocol.ReaderSetup, 0, func(requestCode int) error {
		return b.driver.OpenCardReaderPage(requestCode)
	})
}

// PrepareForCheckout wakes the reader ahead of a checkout. Synchronous
// passthrough; no correlation involved.
func (b *Bridge) PrepareForCheckout() error {
	if err := b.driver.PrepareForCheckout(); err != nil {
		return protocol.OpErrorf(protocol.ErrPrepare, "failed to prepare card reader: %v", err)
	}
	return nil
}

// Logout ends the reader SDK session.
func (b *Bridge) Logout() error {
	return b.driver.Logout()
}

// IsLoggedIn reports the reader SDK session state.
func (b *Bridge) IsLoggedIn() bool {
	return b.driver.IsLoggedIn()
}

// CloseConnection disconnects the reader. The SDK exposes no distinct
// disconnect primitive, so this is a deliberate alias of Logout.
func (b *Bridge) CloseConnection() error {
	if err := b.driver.Logout(); err != nil {
		return protocol.OpErrorf(protocol.ErrClose, "failed to close reader connection: %v", err)
	}
	return nil
}

// Close rejects every call still in flight. Idempotent.
func (b *Bridge) Close() {
	for _, call := range b.registry.Drain() {
		call.Reject("bridge closed", protocol.ErrDispatch)
	}
	b.metrics.PendingCalls.Set(0)
}

// dispatch runs the shared correlation sequence: policy check, stale-call
// preemption, registration, then the driver launch. A launch failure claims
// the freshly-registered slot back and rejects the call, so nothing is left
// dangling.
func (b *Bridge) dispatch(ctx context.Context, class protocol.Class, amount float64, launch func(requestCode int) error) (*pending.Call, error) {
	ctx, span := b.tracer.Start(ctx, "Bridge.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("operation.class", class.String()))
	_ = ctx

	decision, err := b.enforcer.Evaluate(map[string]any{
		"operation":      class.String(),
		"pending":        b.registry.Pending(class),
		"pending_age_ms": float64(b.registry.PendingAge(class).Milliseconds()),
		"amount":         amount,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch policy: %w", err)
	}
	if decision.DenyDispatch {
		return nil, protocol.OpErrorf(protocol.ErrDispatchDenied,
			"a %s call is already in flight (%s)", class, decision.Reason)
	}

	call := pending.NewCall(class)
	if displaced := b.registry.Register(call); displaced != nil {
		if decision.PreemptPending {
			b.logger.Warn("preempting stale pending call",
				zap.String("class", class.String()),
				zap.String("call_id", displaced.ID),
				zap.String("reason", decision.Reason))
		}
		displaced.Reject(fmt.Sprintf("superseded by a new %s request", class), protocol.ErrCallSuperseded)
	}
	b.metrics.Dispatched.WithLabelValues(class.String()).Inc()
	b.metrics.PendingCalls.Set(float64(b.registry.Len()))

	requestCode, _ := class.RequestCode()
	b.runOnHost(func() {
		if err := launch(requestCode); err != nil {
			b.registry.Remove(call)
			b.metrics.PendingCalls.Set(float64(b.registry.Len()))
			b.logger.Error("operation launch failed",
				zap.String("class", class.String()), zap.Error(err))
			call.Reject(fmt.Sprintf("failed to launch %s: %v", class, err), protocol.ErrDispatch)
		}
	})

	b.logger.Debug("operation dispatched",
		zap.String("class", class.String()),
		zap.String("call_id", call.ID),
		zap.Int("request_code", requestCode))
	return call, nil
}

// resolve records the routed outcome against the metrics and completes the
// call.
func (b *Bridge) resolve(call *pending.Call, o outcome.Outcome) {
	label := "failure"
	if o.Success {
		label = "success"
	}
	b.metrics.Resolved.WithLabelValues(call.Class.String(), label).Inc()
	b.metrics.PendingCalls.Set(float64(b.registry.Len()))
	call.Resolve(o)
}
