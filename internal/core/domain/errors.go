package domain

import "fmt"

// ValidationError indicates malformed input rejected by a value object.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error for ValidationError.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// BusinessRuleError indicates an aggregate invariant was violated.
type BusinessRuleError struct {
	Rule    string
	Message string
}

// Error implements error for BusinessRuleError.
func (e *BusinessRuleError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

var (
	// ErrMaxLinkedAccounts indicates the user already has the maximum number of linked providers.
	ErrMaxLinkedAccounts = &BusinessRuleError{
		Rule:    "max_linked_accounts",
		Message: fmt.Sprintf("cannot link more than %d accounts", MaxLinkedAccounts),
	}
	// ErrProviderAlreadyLinked indicates a linked account for the provider already exists on the user.
	ErrProviderAlreadyLinked = &BusinessRuleError{
		Rule:    "provider_already_linked",
		Message: "provider is already linked to this account",
	}
	// ErrProviderNotLinked indicates no linked account exists for the provider.
	ErrProviderNotLinked = &BusinessRuleError{
		Rule:    "provider_not_linked",
		Message: "provider is not linked to this account",
	}
	// ErrLastCredential indicates unlinking would leave the user without any way to sign in.
	ErrLastCredential = &BusinessRuleError{
		Rule:    "last_credential",
		Message: "cannot remove the last remaining credential",
	}
	// ErrUserDeactivated indicates a mutation was attempted on a deactivated user.
	ErrUserDeactivated = &BusinessRuleError{
		Rule:    "user_deactivated",
		Message: "account is deactivated",
	}
)
