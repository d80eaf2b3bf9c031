// Package domain contains the core business entities for the payments service.
package domain

import "errors"

// Domain errors - represent business rule violations.
var (
	// ErrMissingCredentials is returned when gateway credentials are absent.
	ErrMissingCredentials = errors.New("gateway credentials are not configured")

	// ErrInvalidSignatureInput is returned for locally rejected request input.
	ErrInvalidSignatureInput = errors.New("invalid signing input")

	// ErrGatewayRejected is returned when DOKU answers with a business error.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// ErrGatewayUnreachable is returned on timeouts and transport failures.
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")

	// ErrAmbiguousStatus is returned when a status query yields nothing interpretable.
	ErrAmbiguousStatus = errors.New("gateway returned no interpretable transaction status")

	// ErrInvoiceNotFound is returned when no record exists for an invoice number.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvalidTransition is returned when a status update would rewrite a
	// terminal state or commit the UNKNOWN sentinel.
	ErrInvalidTransition = errors.New("invalid transaction status transition")
)

// ErrorKind classifies gateway failures for callers that need to decide
// between retrying, surfacing a message, or aborting startup.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "CONFIGURATION"
	KindSignatureInput  ErrorKind = "SIGNATURE_INPUT"
	KindRejected        ErrorKind = "REJECTED"
	KindTransport       ErrorKind = "TRANSPORT"
	KindAmbiguousStatus ErrorKind = "AMBIGUOUS_STATUS"
)

// GatewayError wraps errors with the failure class and a human-readable
// message, usually extracted from the gateway's error envelope.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may be repeated with the same invoice
// number. Only transport failures qualify; rejections and configuration
// errors will not heal on retry.
func (e *GatewayError) Retryable() bool {
	return e.Kind == KindTransport
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(kind ErrorKind, err error, message string) *GatewayError {
	return &GatewayError{Kind: kind, Err: err, Message: message}
}
