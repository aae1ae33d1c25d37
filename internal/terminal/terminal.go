// Package terminal defines the narrow interface to the reader SDK
// collaborator. The bridge only ever asks it to launch an operation
// identified by a correlation request code; results come back later through
// a ResultSink, never as return values.
package terminal

import (
	"github.com/shopspring/decimal"

	"github.com/devlas/sumup-bridge/internal/outcome"
)

// LoginRequest carries the credentials for the hosted login flow.
type LoginRequest struct {
	AffiliateKey string
	AccessToken  string // optional; skips the interactive prompt when set
}

// Payment is the fully-validated checkout descriptor handed to the driver.
// Validation happens before construction; drivers may assume the amount is
// at or above the SDK minimum and the currency is supported.
type Payment struct {
	Total                decimal.Decimal
	Title                string
	Currency             string // empty means the logged-in account's default
	TipOnReader          bool
	Tip                  decimal.Decimal
	SkipSuccessScreen    bool
	SkipFailedScreen     bool
	ForeignTransactionID string
}

// Driver launches host-controlled operations on behalf of the bridge.
// Methods that take a requestCode are asynchronous: they return once the
// hosted screen is launched, and the outcome arrives on the ResultSink
// under the same code. The remaining methods complete inline.
type Driver interface {
	// Init performs one-time SDK setup.
	Init() error

	OpenLogin(req LoginRequest, requestCode int) error
	OpenCheckout(p Payment, requestCode int) error
	OpenCardReaderPage(requestCode int) error

	PrepareForCheckout() error
	Logout() error
	IsLoggedIn() bool

	// TipOnReaderSupported reports whether the connected reader can collect
	// tips on-device. When false, an explicit tip amount is used instead.
	TipOnReaderSupported() bool
}

// ResultSink receives out-of-band activity results from the host. The
// bridge's result router implements it.
type ResultSink interface {
	OnActivityResult(requestCode, resultCode int, extras outcome.Bag)
}
