// Package handlers contains the HTTP handlers for the payments service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pasarindo/payments/internal/core/domain"
	"github.com/pasarindo/payments/internal/core/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// checkoutResponse is the envelope returned by CreateCheckout.
type checkoutResponse struct {
	Success       bool   `json:"success"`
	PaymentURL    string `json:"payment_url,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}

// statusResponse is the envelope returned by CheckStatus.
type statusResponse struct {
	Success       bool   `json:"success"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}

// CreateCheckout handles POST /api/v1/payments/checkout
// Called by the order-management flow after an order is created.
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var order domain.CheckoutOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, checkoutResponse{
			Success:   false,
			Error:     "Invalid request: " + err.Error(),
			ErrorCode: "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.service.InitiateCheckout(c.Request.Context(), order)
	if err != nil {
		status, code, msg := classifyError(err)
		slog.Warn("checkout failed", "order_id", order.OrderID, "code", code, "error", err)
		c.JSON(status, checkoutResponse{Success: false, Error: msg, ErrorCode: code})
		return
	}

	c.JSON(http.StatusOK, checkoutResponse{
		Success:       true,
		PaymentURL:    result.PaymentURL,
		InvoiceNumber: result.InvoiceNumber,
		SessionID:     result.SessionID,
	})
}

// CheckStatus handles POST /api/v1/payments/status
// Called by the checkout-finish page with the (untrusted) callback
// parameters; the authoritative answer always comes from the gateway.
func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	var hint domain.CallbackHint
	if err := c.ShouldBindJSON(&hint); err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{
			Success:   false,
			Error:     "Invalid request: " + err.Error(),
			ErrorCode: "VALIDATION_ERROR",
		})
		return
	}

	rec, err := h.service.ReconcileStatus(c.Request.Context(), hint)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, statusResponse{
				Success:   false,
				Error:     "unknown invoice number",
				ErrorCode: "INVOICE_NOT_FOUND",
			})
			return
		}

		// The payment may simply still be processing; don't turn a
		// reconciliation hiccup into a hard failure for the shopper.
		slog.Warn("status reconciliation failed", "invoice_number", hint.InvoiceNumber, "error", err)
		c.JSON(http.StatusOK, statusResponse{
			Success:       true,
			InvoiceNumber: hint.InvoiceNumber,
			Status:        string(domain.StatusPending),
		})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		Success:       true,
		InvoiceNumber: rec.InvoiceNumber,
		Status:        string(rec.Status),
	})
}

// Health handles GET /health
func (h *PaymentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pasarindo-payments",
		"version": "1.0.0",
	})
}

// classifyError maps a service error to an HTTP status, a stable error code
// and a caller-facing message.
func classifyError(err error) (int, string, string) {
	var gerr *domain.GatewayError
	if !errors.As(err, &gerr) {
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}

	switch gerr.Kind {
	case domain.KindSignatureInput:
		return http.StatusBadRequest, "VALIDATION_ERROR", gerr.Message
	case domain.KindRejected:
		return http.StatusPaymentRequired, "GATEWAY_REJECTED", gerr.Message
	case domain.KindTransport:
		return http.StatusBadGateway, "GATEWAY_UNREACHABLE", "Payment gateway is unreachable, please retry"
	case domain.KindConfiguration:
		return http.StatusInternalServerError, "CONFIGURATION_ERROR", "Payment gateway is not configured"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
