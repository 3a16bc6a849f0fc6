package nest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindNetwork indicates a network-level error (connection reset, unreachable host, etc.)
	KindNetwork Kind = iota
	// KindTimeout indicates a request timeout or an expired context deadline
	KindTimeout
	// KindConnectionRefused indicates the remote end refused the connection
	KindConnectionRefused
	// KindDNS indicates a DNS resolution failure
	KindDNS
	// KindAuth indicates the service rejected the login
	KindAuth
	// KindHTTP indicates an HTTP-level error (status >= 400)
	KindHTTP
	// KindParse indicates a response body that could not be decoded
	KindParse
	// KindPrecondition indicates an operation was called before login or before a full status fetch
	KindPrecondition
	// KindInvalidArgument indicates a rejected argument (unknown category, fan mode, id, ...)
	KindInvalidArgument
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "Network Error"
	case KindTimeout:
		return "Timeout"
	case KindConnectionRefused:
		return "Connection Refused"
	case KindDNS:
		return "DNS Error"
	case KindAuth:
		return "Authentication Error"
	case KindHTTP:
		return "HTTP Error"
	case KindParse:
		return "Parse Error"
	case KindPrecondition:
		return "Precondition Failed"
	case KindInvalidArgument:
		return "Invalid Argument"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is returned by every Client operation.
type Error struct {
	Kind       Kind        // Category of error
	Message    string      // Human-readable error message
	StatusCode int         // HTTP status code (if applicable)
	Header     http.Header // Response headers received before the failure, if any
	Body       string      // Response body text for HTTP errors
	Err        error       // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel causes. Wrapped inside *Error so both errors.Is and the Is* helpers work.
var (
	ErrNoSession     = errors.New("not logged in")
	ErrNoStatus      = errors.New("status has not been fetched")
	ErrEmptyStatus   = errors.New("unable to retrieve status")
	ErrNoDevices     = errors.New("no devices in status")
	ErrNoStructures  = errors.New("no structures in status")
	ErrUnknownRecord = errors.New("no cached record")
)

// classify analyzes a transport error and returns a more specific error
func classify(err error) *Error {
	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConnectionRefused, Message: "connection refused", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return classify(urlErr.Err)
	}

	return &Error{Kind: KindNetwork, Message: "network error occurred", Err: err}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error, header http.Header) *Error {
	e := classify(err)
	e.Message = message
	e.Header = header
	return e
}

// NewAuthError creates an authentication error carrying the service's description
func NewAuthError(description string, statusCode int) *Error {
	return &Error{
		Kind:       KindAuth,
		Message:    description,
		StatusCode: statusCode,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, header http.Header, body string) *Error {
	return &Error{
		Kind:       KindHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{Kind: KindParse, Message: message, Err: err}
}

// NewPreconditionError creates an error for an operation called out of order.
// op names the operation, cause is ErrNoSession or ErrNoStatus.
func NewPreconditionError(op string, cause error) *Error {
	return &Error{Kind: KindPrecondition, Message: op + ": " + cause.Error(), Err: cause}
}

// NewInvalidArgumentError creates a validation error
func NewInvalidArgumentError(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindAuth
}

// IsPreconditionError checks if an error is a precondition error
func IsPreconditionError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPrecondition
}

// IsInvalidArgumentError checks if an error is an invalid argument error
func IsInvalidArgumentError(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindInvalidArgument
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	k, ok := kindOf(err)
	if !ok {
		return false
	}
	return k == KindNetwork || k == KindTimeout || k == KindConnectionRefused || k == KindDNS
}

// IsTransportError reports whether err came from the wire: network, HTTP or an undecodable body.
func IsTransportError(err error) bool {
	k, ok := kindOf(err)
	if !ok {
		return false
	}
	return IsNetworkError(err) || k == KindHTTP || k == KindParse
}

// IsConflict reports whether the service rejected a put, which is how a stale
// X-nl-base-version shows up.
func IsConflict(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindHTTP {
		return false
	}
	return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusBadRequest
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Kind {
	case KindTimeout:
		return "Nest service not responding (timeout)"
	case KindConnectionRefused:
		return "Connection refused by Nest service"
	case KindDNS:
		return "Cannot resolve Nest service hostname"
	case KindNetwork:
		return "Network error - check connection"
	case KindAuth:
		return "Login rejected: " + e.Message
	case KindHTTP:
		if IsConflict(err) {
			return fmt.Sprintf("Update rejected (HTTP %d) - status may be stale, refresh and retry", e.StatusCode)
		}
		return fmt.Sprintf("Nest service error (HTTP %d)", e.StatusCode)
	case KindParse:
		return "Failed to parse Nest service response"
	default:
		return e.Message
	}
}

// Hint returns troubleshooting advice for an error, or "" when there is none.
func Hint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	switch e.Kind {
	case KindAuth:
		return strings.Join([]string{
			"Troubleshooting:",
			"  • Check the account email and password",
			"  • Accounts migrated to Google sign-in cannot use this login",
		}, "\n")
	case KindTimeout, KindNetwork, KindConnectionRefused, KindDNS:
		return strings.Join([]string{
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Try again in a few seconds",
		}, "\n")
	case KindHTTP:
		if IsConflict(err) {
			return "Another client changed the device first. Run the command again to pick up the new version."
		}
		if e.StatusCode == http.StatusUnauthorized {
			return "The session token expired. Log in again."
		}
	}
	return ""
}
