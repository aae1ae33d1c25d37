package protocol

// Currencies accepted by the reader SDK's checkout builder. The set is
// closed; a checkout request carrying any other code is rejected before
// dispatch.
var currencies = map[string]struct{}{
	"BGN": {},
	"BRL": {},
	"CHF": {},
	"CLP": {},
	"COP": {},
	"CZK": {},
	"DKK": {},
	"EUR": {},
	"GBP": {},
	"HRK": {},
	"HUF": {},
	"NOK": {},
	"PLN": {},
	"RON": {},
	"SEK": {},
	"USD": {},
}

// ValidCurrency reports whether code belongs to the supported set.
func ValidCurrency(code string) bool {
	_, ok := currencies[code]
	return ok
}
