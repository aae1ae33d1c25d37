// Package outcome shapes raw result payloads into strongly-typed success or
// failure outcomes. The host delivers results as untyped key/value bags;
// everything downstream of the result router works with the types here.
package outcome

import (
	"strconv"

	"github.com/devlas/sumup-bridge/internal/protocol"
)

// Payload keys used by the reader SDK's result extras.
const (
	KeyMessage     = "message"
	KeyTxInfo      = "tx_info"
	KeyReceiptSent = "receipt_sent"
)

// CheckoutResult is the decoded transaction record of a successful checkout.
// Field names match the keys the host bridge has always emitted.
type CheckoutResult struct {
	TransactionCode string  `json:"transaction_code"`
	MerchantCode    string  `json:"merchant_code"`
	Amount          float64 `json:"amount"`
	TipAmount       float64 `json:"tip_amount"`
	VATAmount       float64 `json:"vat_amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	PaymentType     string  `json:"payment_type"`
	EntryMode       string  `json:"entry_mode"`
	Installments    int     `json:"installments"`
	CardType        string  `json:"card_type"`
	Last4Digits     string  `json:"last_4_digits"`
	ReceiptSent     bool    `json:"receipt_sent"`
}

// Outcome is the resolved result of a correlated operation: either an ack
// (Success with Message) or a failure carrying a stable Code. Checkout
// successes additionally carry the decoded transaction record.
type Outcome struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Code     string          `json:"code,omitempty"`
	Checkout *CheckoutResult `json:"checkout,omitempty"`
}

// Ack builds a success outcome carrying only a message.
func Ack(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

// Failure builds a failure outcome with a caller-facing message and a
// stable code.
func Failure(message, code string) Outcome {
	return Outcome{Success: false, Message: message, Code: code}
}

// Decode shapes an activity result into an Outcome for the given class.
// A nil extras bag means the host returned no data at all; that is always a
// distinct cancellation/no-data failure, never a success.
func Decode(class protocol.Class, resultCode int, extras Bag) Outcome {
	switch class {
	case protocol.Login:
		return decodeLogin(resultCode, extras)
	case protocol.Checkout:
		return decodeCheckout(resultCode, extras)
	case protocol.ReaderSetup:
		return decodeReaderSetup(resultCode, extras)
	default:
		return Failure("unsupported operation class", protocol.ErrDispatch)
	}
}

func decodeLogin(resultCode int, extras Bag) Outcome {
	if extras == nil {
		return Failure("login cancelled", protocol.ErrLoginCancelled)
	}
	msg := extras.String(KeyMessage)
	if resultCode == protocol.ResultCodeOK {
		if msg == "" {
			msg = "login successful"
		}
		return Ack(msg)
	}
	if msg == "" {
		msg = "login failed"
	}
	return Failure(msg, strconv.Itoa(resultCode))
}

func decodeReaderSetup(resultCode int, extras Bag) Outcome {
	// The reader settings page has no payload of its own; closing it is the
	// success case.
	if extras == nil || resultCode == protocol.ResultCodeOK {
		return Ack("card reader page closed")
	}
	msg := extras.String(KeyMessage)
	if msg == "" {
		msg = "card reader setup failed"
	}
	return Failure(msg, strconv.Itoa(resultCode))
}

func decodeCheckout(resultCode int, extras Bag) Outcome {
	if extras == nil {
		return Failure("no data returned from checkout", protocol.ErrCheckoutNoData)
	}
	if resultCode != protocol.ResultCodeOK {
		msg := extras.String(KeyMessage)
		if msg == "" {
			msg = "checkout failed"
		}
		return Failure(msg, strconv.Itoa(resultCode))
	}

	result := &CheckoutResult{ReceiptSent: extras.Bool(KeyReceiptSent)}
	if tx := extras.Sub(KeyTxInfo); tx != nil {
		result.TransactionCode = tx.String("transaction_code")
		result.MerchantCode = tx.String("merchant_code")
		result.Amount = tx.Float("amount")
		result.TipAmount = tx.Float("tip_amount")
		result.VATAmount = tx.Float("vat_amount")
		result.Currency = tx.String("currency")
		result.Status = tx.String("status")
		result.PaymentType = tx.String("payment_type")
		result.EntryMode = tx.String("entry_mode")
		result.Installments = tx.Int("installments")
		result.CardType = tx.String("card_type")
		result.Last4Digits = tx.String("last_4_digits")
	}
	return Outcome{Success: true, Message: "checkout successful", Checkout: result}
}

// DecodeTapPayment shapes the map delivered by the tap-to-pay payment
// listener on success. NFC payments have no activity result; the listener
// hands over an already-successful transaction record.
func DecodeTapPayment(data Bag) Outcome {
	result := &CheckoutResult{
		TransactionCode: data.String("transaction_code"),
		Amount:          data.Float("amount"),
		Currency:        data.String("currency"),
		Status:          data.String("status"),
		PaymentType:     data.String("payment_type"),
		EntryMode:       data.String("entry_mode"),
		Installments:    data.Int("installments"),
		CardType:        data.String("card_type"),
		Last4Digits:     data.String("last_4_digits"),
		ReceiptSent:     data.Bool(KeyReceiptSent),
	}
	return Outcome{Success: true, Message: "payment successful", Checkout: result}
}
