package monitor

// Request contracts for the operations that carry a payload. Kept as raw
// schema documents so deployments can diff them against client
// expectations.

// CheckoutRequestSchema is the contract for POST /api/v1/checkout bodies.
const CheckoutRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "CheckoutRequest",
	"type": "object",
	"properties": {
		"amount":               { "type": "number", "exclusiveMinimum": 0 },
		"title":                { "type": "string" },
		"currencyCode":         { "type": "string", "minLength": 3, "maxLength": 3 },
		"tipOnCardReader":      { "type": "boolean" },
		"tip":                  { "type": "number", "minimum": 0 },
		"skipSuccessScreen":    { "type": "boolean" },
		"skipFailedScreen":     { "type": "boolean" },
		"foreignTransactionId": { "type": "string" }
	},
	"required": ["amount"],
	"additionalProperties": false
}`

// TapToPayCheckoutSchema is the contract for POST /api/v1/tapToPayCheckout
// bodies. Amounts are integer minor units.
const TapToPayCheckoutSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "TapToPayCheckoutRequest",
	"type": "object",
	"properties": {
		"amount":               { "type": "integer", "minimum": 1 },
		"currency":             { "type": "string", "minLength": 3, "maxLength": 3 },
		"processCardAs":        { "type": "string", "enum": ["CREDIT", "DEBIT"] },
		"installments":         { "type": "integer", "minimum": 0 },
		"description":          { "type": "string" },
		"foreignTransactionId": { "type": "string" }
	},
	"required": ["amount"],
	"additionalProperties": false
}`

// LoginRequestSchema is the contract for POST /api/v1/login bodies.
const LoginRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "LoginRequest",
	"type": "object",
	"properties": {
		"affiliateKey": { "type": "string", "minLength": 1 },
		"accessToken":  { "type": "string" }
	},
	"required": ["affiliateKey"],
	"additionalProperties": false
}`
