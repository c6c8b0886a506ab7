package lynkco

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthenticationError represents authentication-related errors.
type AuthenticationError struct {
	// Type is the type of authentication error.
	Type string `json:"type"`
	// Message is a human-readable message describing the error.
	Message string `json:"message"`
	// Code is the HTTP status code associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error that caused this authentication error.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Common authentication error kinds.
var (
	// ErrInvalidRedirectURI indicates the pasted redirect URI does not carry the
	// registered msauth scheme prefix. Recoverable: the user is re-prompted and
	// the current PKCE pair stays valid.
	ErrInvalidRedirectURI = &AuthenticationError{
		Type:    "invalid_redirect_uri",
		Message: "Redirect URI does not match the registered app scheme",
		Code:    http.StatusBadRequest,
	}

	// ErrMissingDetails indicates a required input was not supplied.
	ErrMissingDetails = &AuthenticationError{
		Type:    "missing_details",
		Message: "Required login details are missing",
		Code:    http.StatusBadRequest,
	}

	// ErrLoginFailed indicates the authorization-code exchange did not yield a
	// complete token set (network failure, error status, or missing tokens).
	ErrLoginFailed = &AuthenticationError{
		Type:    "login_failed",
		Message: "Failed to exchange authorization code for tokens",
		Code:    http.StatusUnauthorized,
	}

	// ErrCCCUnavailable indicates the device-login exchange yielded no CCC token.
	// The login flow continues and degrades to a no-vehicles abort.
	ErrCCCUnavailable = &AuthenticationError{
		Type:    "ccc_unavailable",
		Message: "Device login did not return a CCC token",
		Code:    http.StatusBadGateway,
	}

	// ErrMalformedToken indicates the ID token payload could not be decoded.
	ErrMalformedToken = &AuthenticationError{
		Type:    "malformed_token",
		Message: "ID token payload could not be decoded",
		Code:    http.StatusBadRequest,
	}

	// ErrNoVINsFound indicates the vehicle lookup returned no VINs for the user.
	ErrNoVINsFound = &AuthenticationError{
		Type:    "no_vins_found",
		Message: "No vehicles found for the authenticated user",
		Code:    http.StatusNotFound,
	}

	// ErrPersistenceFailed indicates credentials could not be written to durable
	// storage. Fatal: the attempt must not report success.
	ErrPersistenceFailed = &AuthenticationError{
		Type:    "persistence_failed",
		Message: "Failed to persist credentials",
		Code:    http.StatusInternalServerError,
	}
)

// NewAuthenticationError creates a new authentication error with a cause based on a base error.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsKind reports whether err is an authentication error of the given base kind.
func IsKind(err error, baseErr *AuthenticationError) bool {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return false
	}
	return authErr.Type == baseErr.Type
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return "An unexpected error occurred. Please try again."
	}
	switch authErr.Type {
	case "invalid_redirect_uri":
		return "The pasted link is not a Lynk & Co app redirect. Please copy the full msauth:// link and try again."
	case "missing_details":
		return "Please paste the redirect link from the Lynk & Co app."
	case "login_failed":
		return "Login failed. Please open the login URL again and retry."
	case "ccc_unavailable":
		return "The vehicle service did not accept the login. Please try again later."
	case "malformed_token":
		return "The login response could not be understood. Please try again."
	case "no_vins_found":
		return "No vehicles were found for this account."
	case "persistence_failed":
		return "Your login succeeded but the credentials could not be saved. Please check the auth directory and retry."
	default:
		return "Authentication failed. Please try again."
	}
}
