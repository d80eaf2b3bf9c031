// Package ports defines the interfaces (ports) for the payments service.
// These are contracts that adapters must implement.
package ports

import (
	"context"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"
)

// PaymentGateway defines the interface for interacting with DOKU.
type PaymentGateway interface {
	// InitiatePayment creates a checkout payment session and returns the URL
	// the shopper is redirected to. Fails with *domain.GatewayError on any
	// non-success response.
	InitiatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.GatewayPaymentResult, error)

	// CheckStatus issues a signed, authoritative status query for an invoice.
	// Safe to call repeatedly; it never changes gateway-side state.
	CheckStatus(ctx context.Context, invoiceNumber string) (domain.TransactionStatus, error)
}

// InvoiceAllocator produces invoice numbers that are unique per order and
// stable across retries of the same logical order.
type InvoiceAllocator interface {
	Allocate(orderID string) (string, error)

	// Reallocate mints a fresh invoice for an order whose previous attempt is
	// known failed or expired. Order ids that already carry an invoice prefix
	// are returned verbatim, as in Allocate.
	Reallocate(orderID string) (string, error)
}

// TransactionStore persists the correlation between issued invoices and the
// last status the gateway reported for them.
type TransactionStore interface {
	// Save records a newly issued invoice. Saving an invoice that already
	// exists is a no-op so that initiation retries stay idempotent.
	Save(ctx context.Context, rec domain.TransactionRecord) error

	// Get returns the record for an invoice, or domain.ErrInvoiceNotFound.
	Get(ctx context.Context, invoiceNumber string) (*domain.TransactionRecord, error)

	// UpdateStatus applies an authoritative status observation. It enforces
	// the transition rules: terminal states are immutable and UNKNOWN is
	// never committed (domain.ErrInvalidTransition otherwise).
	UpdateStatus(ctx context.Context, invoiceNumber string, status domain.TransactionStatus, checkedAt time.Time) error
}
