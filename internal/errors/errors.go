package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

// Auth and recovery taxonomy. Each code carries one stable, user-facing message.
const (
	// ErrCodeNotAuthorized indicates the email is absent from, or inactive in, the allow-list.
	ErrCodeNotAuthorized ErrorCode = "not_authorized"
	// ErrCodeAllowlistUnavailable indicates the allow-list could not be consulted (timeout, db down).
	ErrCodeAllowlistUnavailable ErrorCode = "allowlist_unavailable"
	// ErrCodeInvalidCredentials indicates the identity provider rejected the email/password pair.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeEmailUnconfirmed indicates the provider account has not confirmed its email.
	ErrCodeEmailUnconfirmed ErrorCode = "email_unconfirmed"
	// ErrCodeProfileMissing indicates no user_profiles row exists for the provider user.
	ErrCodeProfileMissing ErrorCode = "profile_missing"
	// ErrCodeProviderUnavailable indicates the identity provider could not be reached.
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodeInvalidRecoveryLink indicates the recovery fragment was absent or malformed.
	ErrCodeInvalidRecoveryLink ErrorCode = "invalid_recovery_link"
	// ErrCodeSessionExpired indicates no recovery token is held for this tab.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodePasswordTooShort indicates the new password is below the minimum length.
	ErrCodePasswordTooShort ErrorCode = "password_too_short"
	// ErrCodePasswordMismatch indicates the password and its confirmation differ.
	ErrCodePasswordMismatch ErrorCode = "password_mismatch"
	// ErrCodeUnknown carries an unclassified provider failure with its raw message.
	ErrCodeUnknown ErrorCode = "unknown"
)

// Generic codes shared by the storage layer, admin CLI, and HTTP layer.
const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeForeignKey indicates a foreign key constraint violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeRateLimited indicates the caller exceeded its request budget.
	ErrCodeRateLimited ErrorCode = "rate_limited"
)

// User-facing messages for the auth taxonomy.
const (
	MsgNotAuthorized        = "This email is not authorized to access the system. Contact your administrator."
	MsgAllowlistUnavailable = "Unable to verify authorization right now. Please try again shortly."
	MsgInvalidCredentials   = "Invalid email or password."
	MsgEmailUnconfirmed     = "Please confirm your email address before signing in."
	MsgProfileMissing       = "User profile not found. Contact your administrator."
	MsgProviderUnavailable  = "The sign-in service is unavailable. Please try again shortly."
	MsgInvalidRecoveryLink  = "Invalid reset link. Please request a new password reset."
	MsgSessionExpired       = "Session expired. Please request a new reset link."
	MsgPasswordMismatch     = "Passwords do not match."
	MsgUnknown              = "Something went wrong. Please try again."
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newErr(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NotAuthorized creates the allow-list rejection error.
func NotAuthorized() *AppError { return newErr(ErrCodeNotAuthorized, MsgNotAuthorized, nil) }

// AllowlistUnavailable wraps an infrastructure failure of the allow-list lookup.
func AllowlistUnavailable(cause error) *AppError {
	return newErr(ErrCodeAllowlistUnavailable, MsgAllowlistUnavailable, cause)
}

// InvalidCredentials creates the provider credential rejection error.
func InvalidCredentials(cause error) *AppError {
	return newErr(ErrCodeInvalidCredentials, MsgInvalidCredentials, cause)
}

// EmailUnconfirmed creates the unconfirmed-account error.
func EmailUnconfirmed(cause error) *AppError {
	return newErr(ErrCodeEmailUnconfirmed, MsgEmailUnconfirmed, cause)
}

// ProfileMissing creates the missing-profile error.
func ProfileMissing(cause error) *AppError {
	return newErr(ErrCodeProfileMissing, MsgProfileMissing, cause)
}

// ProviderUnavailable wraps a transport-level identity provider failure.
func ProviderUnavailable(cause error) *AppError {
	return newErr(ErrCodeProviderUnavailable, MsgProviderUnavailable, cause)
}

// InvalidRecoveryLink creates the malformed recovery link error.
func InvalidRecoveryLink() *AppError {
	return newErr(ErrCodeInvalidRecoveryLink, MsgInvalidRecoveryLink, nil)
}

// SessionExpired creates the missing recovery token error.
func SessionExpired() *AppError { return newErr(ErrCodeSessionExpired, MsgSessionExpired, nil) }

// PasswordTooShort creates the minimum length error for min characters.
func PasswordTooShort(minLen int) *AppError {
	e := newErr(ErrCodePasswordTooShort, fmt.Sprintf("Password must be at least %d characters.", minLen), nil)
	e.Field = "password"
	return e
}

// PasswordMismatch creates the confirmation mismatch error.
func PasswordMismatch() *AppError {
	e := newErr(ErrCodePasswordMismatch, MsgPasswordMismatch, nil)
	e.Field = "confirm_password"
	return e
}

// Unknown carries an unclassified provider message verbatim.
func Unknown(providerMessage string, cause error) *AppError {
	if providerMessage == "" {
		providerMessage = MsgUnknown
	}
	return newErr(ErrCodeUnknown, providerMessage, cause)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return newErr(ErrCodeNotFound, message, nil)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return newErr(ErrCodeNotFound, fmt.Sprintf(format, args...), nil)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return newErr(ErrCodeConflict, message, nil)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return newErr(ErrCodeValidation, message, nil)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	e := newErr(ErrCodeValidation, message, nil)
	e.Field = field
	return e
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return newErr(ErrCodeInternal, message, nil)
}

// RateLimited creates a new RateLimited error.
func RateLimited() *AppError {
	return newErr(ErrCodeRateLimited, "Too many requests. Please wait and try again.", nil)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return newErr(code, message, err)
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return newErr(code, fmt.Sprintf(format, args...), err)
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return isCode(err, code)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// UserMessage returns the single message to show a user for err.
// Errors outside the taxonomy collapse to MsgUnknown so internals never leak.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgUnknown
}
