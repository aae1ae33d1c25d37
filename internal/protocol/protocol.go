// Package protocol defines the vocabulary shared by the dispatcher, the
// pending-call registry and the result router: operation classes, the
// correlation request codes the host hands back with activity results,
// and the stable error codes surfaced to callers.
package protocol

// Class identifies one of the correlated asynchronous operations.
type Class int

const (
	// Login covers the hosted login activity.
	Login Class = iota
	// Checkout covers the hosted card-reader checkout activity.
	Checkout
	// ReaderSetup covers the hosted card-reader settings page.
	ReaderSetup
	// TapPayment covers on-device NFC payments. It has no request code:
	// tap-to-pay results arrive through the capability listener, not
	// through an activity result.
	TapPayment
)

// Request codes used to correlate activity results back to the operation
// that launched them. These form a closed set; results carrying any other
// code are not ours and are ignored.
const (
	RequestCodeLogin       = 10001
	RequestCodeCheckout    = 10002
	RequestCodeReaderSetup = 10003
)

// ResultCodeOK is the reader SDK's success code inside a result payload.
const ResultCodeOK = 1

func (c Class) String() string {
	switch c {
	case Login:
		return "login"
	case Checkout:
		return "checkout"
	case ReaderSetup:
		return "reader_setup"
	case TapPayment:
		return "tap_payment"
	default:
		return "unknown"
	}
}

// RequestCode returns the correlation code for classes that launch host
// activities. TapPayment reports false.
func (c Class) RequestCode() (int, bool) {
	switch c {
	case Login:
		return RequestCodeLogin, true
	case Checkout:
		return RequestCodeCheckout, true
	case ReaderSetup:
		return RequestCodeReaderSetup, true
	default:
		return 0, false
	}
}

// ClassForRequestCode maps an incoming correlation code back to its class.
func ClassForRequestCode(code int) (Class, bool) {
	switch code {
	case RequestCodeLogin:
		return Login, true
	case RequestCodeCheckout:
		return Checkout, true
	case RequestCodeReaderSetup:
		return ReaderSetup, true
	default:
		return 0, false
	}
}

// Classes that may hold a pending call, in a fixed order. Used when
// draining the registry at teardown.
func Classes() []Class {
	return []Class{Login, Checkout, ReaderSetup, TapPayment}
}

// Stable error codes returned to callers for programmatic matching.
const (
	ErrSetup           = "SETUP_ERROR"
	ErrNoAffiliateKey  = "NO_AFFILIATE_KEY"
	ErrNoAPIToken      = "NO_API_TOKEN"
	ErrInvalidAmount   = "INVALID_AMOUNT"
	ErrInvalidCurrency = "INVALID_CURRENCY"
	ErrPrepare         = "PREPARE_ERROR"
	ErrClose           = "CLOSE_ERROR"
	ErrLoginCancelled  = "LOGIN_CANCELLED"
	ErrCheckoutNoData  = "CHECKOUT_NO_DATA"
	ErrTapNotAvailable = "TAP_NOT_AVAILABLE"
	ErrTapInit         = "TAP_INIT_ERROR"
	ErrNotInitialized  = "NOT_INITIALIZED"
	ErrTapPay          = "TAP_PAY_ERROR"
	ErrPaymentFailed   = "PAYMENT_FAILED"
	ErrPaymentCancel   = "PAYMENT_CANCELLED"
	ErrTapTeardown     = "TAP_TEARDOWN_ERROR"
	ErrCallSuperseded  = "CALL_SUPERSEDED"
	ErrDispatchDenied  = "DISPATCH_DENIED"
	ErrDispatch        = "DISPATCH_ERROR"
)

// Names of the ad-hoc status events emitted on the tap-to-pay listener
// channel.
const (
	EventSDKReady        = "sdkReady"
	EventPaymentStarting = "paymentStarting"
	EventCardRequested   = "cardRequested"
	EventCardPresented   = "cardPresented"
	EventPinRequired     = "pinRequired"
)
