// Package simulated is a reference tap-to-pay module: it performs no NFC
// processing but walks the real event sequence (cardRequested,
// cardPresented, pinRequired) before completing every payment. Importing
// this package is what makes the capability available; builds that omit the
// import get the fail-fast unavailable behavior.
package simulated

import (
	"sync"
	"time"

	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/taptopay"
)

func init() {
	taptopay.RegisterFactory(func() taptopay.SDK {
		return New(20 * time.Millisecond)
	})
}

// SDK simulates the tap-to-pay capability module.
type SDK struct {
	mu       sync.Mutex
	listener taptopay.Listener
	ready    bool
	step     time.Duration
}

// New creates a simulated module whose stages advance every step interval.
func New(step time.Duration) *SDK {
	if step <= 0 {
		step = 20 * time.Millisecond
	}
	return &SDK{step: step}
}

func (s *SDK) SetListener(l taptopay.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

func (s *SDK) getListener() taptopay.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

func (s *SDK) Initialize(affiliateKey, apiToken string, onResult func(ok bool, errMsg string)) {
	go func() {
		time.Sleep(s.step)
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		onResult(true, "")
		if l := s.getListener(); l != nil {
			l.OnEvent(protocol.EventSDKReady, map[string]any{})
		}
	}()
}

func (s *SDK) StartPayment(req taptopay.PaymentRequest) {
	l := s.getListener()
	if l == nil {
		return
	}
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		l.OnPaymentError("tap-to-pay not initialized", protocol.ErrNotInitialized)
		return
	}

	l.OnEvent(protocol.EventPaymentStarting, map[string]any{
		"amount":        req.Amount,
		"currency":      req.Currency,
		"processCardAs": req.ProcessCardAs,
	})
	go func() {
		stages := []struct {
			name string
			data map[string]any
		}{
			{protocol.EventCardRequested, map[string]any{"message": "present card"}},
			{protocol.EventCardPresented, map[string]any{"message": "card detected, processing"}},
		}
		if req.ProcessCardAs == "DEBIT" {
			stages = append(stages, struct {
				name string
				data map[string]any
			}{protocol.EventPinRequired, map[string]any{"message": "enter PIN on screen"}})
		}
		for _, st := range stages {
			time.Sleep(s.step)
			l.OnEvent(st.name, st.data)
		}
		time.Sleep(s.step)
		l.OnPaymentSuccess(map[string]any{
			"transaction_code": "TAP-" + req.ForeignTransactionID,
			"amount":           float64(req.Amount),
			"currency":         req.Currency,
			"status":           "SUCCESSFUL",
			"payment_type":     "TAP_TO_PAY",
			"entry_mode":       "NFC",
			"installments":     req.Installments,
			"card_type":        "MASTERCARD",
			"last_4_digits":    "1111",
			"receipt_sent":     false,
		})
	}()
}

func (s *SDK) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *SDK) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
}
