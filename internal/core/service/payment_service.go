// Package service implements the core business logic.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"
	"github.com/pasarindo/payments/internal/core/ports"
)

// PaymentService orchestrates payment initiation and status reconciliation.
type PaymentService struct {
	gateway   ports.PaymentGateway
	allocator ports.InvoiceAllocator
	store     ports.TransactionStore

	callbackURL      string
	dueWindowMinutes int

	logger *slog.Logger
	now    func() time.Time
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	gateway ports.PaymentGateway,
	allocator ports.InvoiceAllocator,
	store ports.TransactionStore,
	callbackURL string,
	dueWindowMinutes int,
) *PaymentService {
	return &PaymentService{
		gateway:          gateway,
		allocator:        allocator,
		store:            store,
		callbackURL:      callbackURL,
		dueWindowMinutes: dueWindowMinutes,
		logger:           slog.Default().With("component", "payment_service"),
		now:              time.Now,
	}
}

// InitiateCheckout allocates an invoice for the order, records it, and asks
// the gateway for a payment URL. Retrying the same logical order reuses the
// original invoice; a fresh one is minted only when the previous attempt is
// known failed or expired.
func (s *PaymentService) InitiateCheckout(ctx context.Context, order domain.CheckoutOrder) (*domain.GatewayPaymentResult, error) {
	amount, err := resolveAmount(order)
	if err != nil {
		return nil, err
	}

	invoiceNumber, err := s.allocator.Allocate(order.OrderID)
	if err != nil {
		return nil, err
	}

	// A prior attempt that already failed or expired releases the invoice
	// identity; anything else keeps it.
	if prev, err := s.store.Get(ctx, invoiceNumber); err == nil {
		switch prev.Status {
		case domain.StatusSuccess:
			return nil, domain.NewGatewayError(domain.KindRejected,
				domain.ErrGatewayRejected, "order "+order.OrderID+" is already paid")
		case domain.StatusFailed, domain.StatusExpired:
			invoiceNumber, err = s.allocator.Reallocate(order.OrderID)
			if err != nil {
				return nil, err
			}
		}
	}

	req := domain.PaymentRequest{
		InvoiceNumber:    invoiceNumber,
		AmountMinorUnits: amount,
		Currency:         domain.Currency,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		CallbackURL:      s.callbackURL,
		DueWindowMinutes: s.dueWindowMinutes,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.Save(ctx, domain.TransactionRecord{
		InvoiceNumber:    invoiceNumber,
		OrderID:          order.OrderID,
		AmountMinorUnits: amount,
		Status:           domain.StatusPending,
		CreatedAt:        now,
		LastCheckedAt:    now,
	}); err != nil {
		return nil, err
	}

	result, err := s.gateway.InitiatePayment(ctx, req)
	if err != nil {
		// The record stays PENDING: the gateway may have received the call
		// even if we never saw a response, and a later status check is the
		// only safe way to learn the outcome.
		s.logger.Warn("payment initiation failed",
			"order_id", order.OrderID, "invoice_number", invoiceNumber, "error", err)
		return nil, err
	}

	return result, nil
}

// ReconcileStatus handles a callback hint: it re-verifies the invoice against
// the gateway and commits the authoritative answer. The hint's status field
// is client-supplied and is never trusted to set state.
func (s *PaymentService) ReconcileStatus(ctx context.Context, hint domain.CallbackHint) (*domain.TransactionRecord, error) {
	if hint.StatusHint != "" {
		s.logger.Debug("ignoring client-supplied status hint",
			"invoice_number", hint.InvoiceNumber, "hint", hint.StatusHint)
	}
	return s.CheckStatus(ctx, hint.InvoiceNumber)
}

// CheckStatus queries the gateway for the authoritative transaction status
// and updates the stored record. Safe to call repeatedly; polling callers see
// the same answer until the gateway reports a transition.
func (s *PaymentService) CheckStatus(ctx context.Context, invoiceNumber string) (*domain.TransactionRecord, error) {
	status, err := s.gateway.CheckStatus(ctx, invoiceNumber)
	if err != nil {
		var gerr *domain.GatewayError
		if errors.As(err, &gerr) {
			switch gerr.Kind {
			case domain.KindTransport, domain.KindAmbiguousStatus:
				// The true state may simply be pending. Surface whatever we
				// know instead of a hard failure.
				if rec, storeErr := s.store.Get(ctx, invoiceNumber); storeErr == nil {
					s.logger.Warn("status query inconclusive, reporting last known state",
						"invoice_number", invoiceNumber, "status", rec.Status, "error", err)
					return rec, nil
				}
			}
		}
		return nil, err
	}

	checkedAt := s.now()
	err = s.store.UpdateStatus(ctx, invoiceNumber, status, checkedAt)
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		// The invoice was initiated before this process started tracking it;
		// adopt it with the status the gateway just reported.
		rec := domain.TransactionRecord{
			InvoiceNumber: invoiceNumber,
			Status:        status,
			CreatedAt:     checkedAt,
			LastCheckedAt: checkedAt,
		}
		if saveErr := s.store.Save(ctx, rec); saveErr != nil {
			return nil, saveErr
		}
		return &rec, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		s.logger.Warn("gateway reported a conflicting terminal status, keeping stored state",
			"invoice_number", invoiceNumber, "reported", status)
	case err != nil:
		return nil, err
	}

	return s.store.Get(ctx, invoiceNumber)
}

// resolveAmount picks the explicit amount when present, otherwise totals the
// line items and rounds half-to-even to the smallest currency unit.
func resolveAmount(order domain.CheckoutOrder) (int64, error) {
	if order.AmountMinorUnits > 0 {
		return order.AmountMinorUnits, nil
	}
	if order.AmountMinorUnits < 0 {
		return 0, domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "amount must not be negative")
	}
	if len(order.Items) == 0 {
		return 0, domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "order has no amount and no items")
	}
	return domain.MinorUnits(domain.OrderTotal(order.Items)), nil
}
