// Package invoice allocates the invoice identities that correlate one payment
// attempt with one logical order across the storefront, the commerce backend
// and the payment gateway.
package invoice

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"
)

const prefix = "INV"

// Allocator mints invoice numbers of the form INV-<orderID>-<epochSeconds>.
//
// Allocations are memoized per order id, so retries of the same logical order
// always reuse the first invoice instead of minting a second one. Uniqueness
// across distinct orders comes from the order id embedded in the number, not
// from the timestamp suffix.
type Allocator struct {
	mu     sync.Mutex
	issued map[string]string // order id -> invoice number

	now func() time.Time
}

// NewAllocator creates an allocator using the wall clock.
func NewAllocator() *Allocator {
	return &Allocator{
		issued: make(map[string]string),
		now:    time.Now,
	}
}

// Allocate returns the invoice number for an order. Order identifiers that
// already carry the invoice prefix are reused verbatim, which lets replays
// reference an existing invoice directly.
func (a *Allocator) Allocate(orderID string) (string, error) {
	if orderID == "" {
		return "", domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "order id is required")
	}

	if strings.HasPrefix(orderID, prefix) {
		return orderID, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if inv, ok := a.issued[orderID]; ok {
		return inv, nil
	}

	inv := a.mint(orderID)
	a.issued[orderID] = inv
	return inv, nil
}

// Reallocate mints a fresh invoice for an order whose previous payment
// attempt is known failed or expired. The old allocation is forgotten.
func (a *Allocator) Reallocate(orderID string) (string, error) {
	if orderID == "" {
		return "", domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "order id is required")
	}

	if strings.HasPrefix(orderID, prefix) {
		return orderID, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	inv := a.mint(orderID)
	a.issued[orderID] = inv
	return inv, nil
}

func (a *Allocator) mint(orderID string) string {
	return fmt.Sprintf("%s-%s-%d", prefix, orderID, a.now().Unix())
}
