package protocol

import "fmt"

// OpError is a caller-facing failure with a stable code for programmatic
// matching. Validation, capability and state failures are surfaced this way
// synchronously; result-code failures reach the caller through the pending
// call instead.
type OpError struct {
	Code    string
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// OpErrorf builds an OpError with a formatted message.
func OpErrorf(code, format string, args ...any) *OpError {
	return &OpError{Code: code, Message: fmt.Sprintf(format, args...)}
}
