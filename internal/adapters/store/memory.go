// Package store provides TransactionStore implementations for correlating
// issued invoices with their last known gateway status.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"
)

// MemoryStore is an in-process TransactionStore. Used in tests and as a
// fallback when no SQLite path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.TransactionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.TransactionRecord)}
}

// Save records a newly issued invoice. Saving an existing invoice is a no-op
// so that initiation retries never reset an already observed status.
func (s *MemoryStore) Save(_ context.Context, rec domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.InvoiceNumber]; ok {
		return nil
	}
	s.records[rec.InvoiceNumber] = rec
	return nil
}

// Get returns the record for an invoice number.
func (s *MemoryStore) Get(_ context.Context, invoiceNumber string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[invoiceNumber]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return &rec, nil
}

// UpdateStatus applies an authoritative status observation under the
// transition rules.
func (s *MemoryStore) UpdateStatus(_ context.Context, invoiceNumber string, status domain.TransactionStatus, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[invoiceNumber]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	if !domain.CanTransition(rec.Status, status) {
		return domain.ErrInvalidTransition
	}

	rec.Status = status
	rec.LastCheckedAt = checkedAt
	s.records[invoiceNumber] = rec
	return nil
}
