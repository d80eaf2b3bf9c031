// Package domain contains the core business entities for the payments service.
package domain

import "time"

// CheckoutOrder is the inbound contract from the order-management flow.
// Either Items or AmountMinorUnits must be provided; when both are present
// the explicit amount wins (the order flow already computed the total).
type CheckoutOrder struct {
	OrderID          string     `json:"order_id" binding:"required"`
	AmountMinorUnits int64      `json:"amount_minor_units"`
	CustomerName     string     `json:"customer_name" binding:"required"`
	CustomerEmail    string     `json:"customer_email" binding:"required,email"`
	Items            []LineItem `json:"items"`
}

// PaymentRequest is the normalized request handed to the payment gateway.
// InvoiceNumber uniquely identifies exactly one payment attempt for the
// lifetime of the system; retries of the same logical order must carry the
// same invoice number.
type PaymentRequest struct {
	InvoiceNumber    string
	AmountMinorUnits int64
	Currency         string
	CustomerName     string
	CustomerEmail    string
	CallbackURL      string
	DueWindowMinutes int
}

// Validate rejects malformed requests before any network call is made.
func (r PaymentRequest) Validate() error {
	switch {
	case r.InvoiceNumber == "":
		return NewGatewayError(KindSignatureInput, ErrInvalidSignatureInput, "invoice number is required")
	case r.AmountMinorUnits < 0:
		return NewGatewayError(KindSignatureInput, ErrInvalidSignatureInput, "amount must not be negative")
	case r.CustomerEmail == "":
		return NewGatewayError(KindSignatureInput, ErrInvalidSignatureInput, "customer email is required")
	case r.DueWindowMinutes <= 0:
		return NewGatewayError(KindSignatureInput, ErrInvalidSignatureInput, "due window must be positive")
	}
	return nil
}

// GatewayPaymentResult is the normalized outcome of a successful payment
// initiation. Owned by the order flow, not cached here.
type GatewayPaymentResult struct {
	PaymentURL    string `json:"payment_url"`
	InvoiceNumber string `json:"invoice_number"`
	SessionID     string `json:"session_id,omitempty"`
}

// TransactionRecord correlates an issued invoice with the last status the
// gateway reported for it.
type TransactionRecord struct {
	InvoiceNumber    string            `json:"invoice_number"`
	OrderID          string            `json:"order_id"`
	AmountMinorUnits int64             `json:"amount_minor_units"`
	Status           TransactionStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	LastCheckedAt    time.Time         `json:"last_checked_at"`
}

// CallbackHint carries the untrusted query parameters the gateway appends to
// the shopper's redirect. They identify which invoice to re-verify and
// nothing more; the status hint must never be trusted directly.
type CallbackHint struct {
	InvoiceNumber string `json:"invoice_number" binding:"required"`
	StatusHint    string `json:"status,omitempty"`
	PaymentCode   string `json:"payment_code,omitempty"`
}
