// Package taptopay gates the optional on-device NFC payment capability
// behind a fixed interface. The capability module may not be present at
// all; when it is, it is instantiated lazily, cached for the manager's
// lifetime, and its event and payment listeners are funneled back through
// the shared pending-call machinery.
package taptopay

// PaymentRequest describes one contactless payment. Amounts are integer
// minor units of the currency.
type PaymentRequest struct {
	Amount               int64
	Currency             string // defaults to "CLP"
	ProcessCardAs        string // "CREDIT" or "DEBIT", defaults to "DEBIT"
	Installments         int    // credit only, 0 = none
	Description          string
	ForeignTransactionID string
}

// Listener receives the capability module's two event streams: ad-hoc
// status events, forwarded verbatim, and one-shot payment outcomes.
type Listener interface {
	OnEvent(name string, data map[string]any)
	OnPaymentSuccess(data map[string]any)
	OnPaymentError(message, code string)
}

// SDK is the fixed capability interface every tap-to-pay module
// implements. The manager only ever talks to this; the concrete module is
// bound at startup if one registered itself.
type SDK interface {
	SetListener(l Listener)
	// Initialize performs the module's own async init and reports through
	// onResult exactly once.
	Initialize(affiliateKey, apiToken string, onResult func(ok bool, errMsg string))
	StartPayment(req PaymentRequest)
	Ready() bool
	Teardown()
}

// Factory builds the capability module. A nil factory means the capability
// is not available in this build.
type Factory func() SDK

var registeredFactory Factory

// RegisterFactory binds the capability implementation. Implementations call
// it from init(); importing the implementation package is what makes the
// capability available.
func RegisterFactory(f Factory) {
	registeredFactory = f
}

// RegisteredFactory returns the bound factory, or nil when no
// implementation is linked in.
func RegisteredFactory() Factory {
	return registeredFactory
}
