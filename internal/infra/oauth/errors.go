package oauth

import "fmt"

// Error codes returned by the gateway. Handlers map these onto HTTP statuses
// without inspecting provider-specific failures.
const (
	CodeInvalidProvider     = "invalid_provider"
	CodeInvalidState        = "invalid_state"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeUserInfoFailed      = "user_info_failed"
)

// Error is the single failure type surfaced by the OAuth gateway. Provider
// responses are folded into one of the four codes so callers cannot leak
// upstream detail to clients.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}
