// Package simulated emulates the hosted reader flows in-process: every
// launched operation finishes after a short delay and posts its result to
// the sink, the way a host activity would. It lets the server run
// end-to-end without a device.
package simulated

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/outcome"
	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/terminal"
)

// Driver is a terminal.Driver whose hosted screens complete on their own.
type Driver struct {
	mu       sync.Mutex
	sink     terminal.ResultSink
	loggedIn bool
	delay    time.Duration
	logger   *zap.Logger
}

// NewDriver creates a simulated driver. The sink is attached later via
// SetSink because driver and router reference each other.
func NewDriver(delay time.Duration, logger *zap.Logger) *Driver {
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	return &Driver{delay: delay, logger: logger}
}

// SetSink attaches the result sink that receives completed flows.
func (d *Driver) SetSink(sink terminal.ResultSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

func (d *Driver) post(requestCode, resultCode int, extras outcome.Bag) {
	d.mu.Lock()
	sink := d.sink
	delay := d.delay
	d.mu.Unlock()
	if sink == nil {
		d.logger.Warn("simulated driver has no result sink; dropping result",
			zap.Int("request_code", requestCode))
		return
	}
	time.AfterFunc(delay, func() {
		sink.OnActivityResult(requestCode, resultCode, extras)
	})
}

func (d *Driver) Init() error { return nil }

func (d *Driver) OpenLogin(req terminal.LoginRequest, requestCode int) error {
	d.logger.Info("simulated login screen opened", zap.String("affiliate_key", req.AffiliateKey))
	d.mu.Lock()
	d.loggedIn = true
	d.mu.Unlock()
	d.post(requestCode, protocol.ResultCodeOK, outcome.Bag{
		outcome.KeyMessage: "login successful",
	})
	return nil
}

func (d *Driver) OpenCheckout(p terminal.Payment, requestCode int) error {
	d.logger.Info("simulated checkout screen opened",
		zap.String("total", p.Total.String()),
		zap.String("currency", p.Currency))
	amount, _ := p.Total.Float64()
	tip, _ := p.Tip.Float64()
	d.post(requestCode, protocol.ResultCodeOK, outcome.Bag{
		outcome.KeyReceiptSent: false,
		outcome.KeyTxInfo: map[string]any{
			"transaction_code": "SIM-" + p.ForeignTransactionID,
			"merchant_code":    "M-SIMULATED",
			"amount":           amount,
			"tip_amount":       tip,
			"currency":         p.Currency,
			"status":           "SUCCESSFUL",
			"payment_type":     "POS",
			"entry_mode":       "chip",
			"installments":     0,
			"card_type":        "VISA",
			"last_4_digits":    "4242",
		},
	})
	return nil
}

func (d *Driver) OpenCardReaderPage(requestCode int) error {
	d.post(requestCode, protocol.ResultCodeOK, outcome.Bag{})
	return nil
}

func (d *Driver) PrepareForCheckout() error { return nil }

func (d *Driver) Logout() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loggedIn = false
	return nil
}

func (d *Driver) IsLoggedIn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loggedIn
}

func (d *Driver) TipOnReaderSupported() bool { return true }
