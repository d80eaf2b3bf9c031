package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarindo/payments/internal/adapters/store"
	"github.com/pasarindo/payments/internal/core/domain"
	"github.com/pasarindo/payments/internal/core/invoice"
	"github.com/pasarindo/payments/internal/core/service"
)

type stubGateway struct {
	status      domain.TransactionStatus
	initiateErr error
}

func (g *stubGateway) InitiatePayment(_ context.Context, req domain.PaymentRequest) (*domain.GatewayPaymentResult, error) {
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}
	return &domain.GatewayPaymentResult{
		PaymentURL:    "https://pay/x",
		InvoiceNumber: req.InvoiceNumber,
	}, nil
}

func (g *stubGateway) CheckStatus(context.Context, string) (domain.TransactionStatus, error) {
	return g.status, nil
}

func newTestRouter(g *stubGateway) http.Handler {
	svc := service.NewPaymentService(g, invoice.NewAllocator(), store.NewMemoryStore(),
		"https://shop.example/checkout/finish", 60)
	return SetupRouter(NewPaymentHandler(svc), "test")
}

func TestCreateCheckout_OK(t *testing.T) {
	router := newTestRouter(&stubGateway{status: domain.StatusPending})

	body := `{"order_id":"5012","amount_minor_units":150000,"customer_name":"Andi","customer_email":"a@b.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_url":"https://pay/x"`)
	assert.Contains(t, w.Body.String(), `"invoice_number":"INV-5012-`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateCheckout_ValidationError(t *testing.T) {
	router := newTestRouter(&stubGateway{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout",
		strings.NewReader(`{"order_id":"5012"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestCreateCheckout_GatewayRejected(t *testing.T) {
	router := newTestRouter(&stubGateway{
		initiateErr: domain.NewGatewayError(domain.KindRejected, domain.ErrGatewayRejected, "duplicate invoice"),
	})

	body := `{"order_id":"5012","amount_minor_units":150000,"customer_name":"Andi","customer_email":"a@b.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate invoice")
}

// The callback page sends whatever the shopper's URL carried; the response
// must reflect the authoritative query, not the forged hint.
func TestCheckStatus_IgnoresForgedHint(t *testing.T) {
	g := &stubGateway{status: domain.StatusPending}
	router := newTestRouter(g)

	// Seed a pending invoice through the normal flow.
	seed := `{"order_id":"5012","amount_minor_units":150000,"customer_name":"Andi","customer_email":"a@b.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", strings.NewReader(seed))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var invoiceNumber string
	body := w.Body.String()
	if i := strings.Index(body, `"invoice_number":"`); i >= 0 {
		rest := body[i+len(`"invoice_number":"`):]
		invoiceNumber = rest[:strings.Index(rest, `"`)]
	}
	require.NotEmpty(t, invoiceNumber)

	check := `{"invoice_number":"` + invoiceNumber + `","status":"SUCCESS","payment_code":"VA-1"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/status", strings.NewReader(check))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
}

func TestCheckStatus_UnknownInvoiceWithPendingGateway(t *testing.T) {
	router := newTestRouter(&stubGateway{status: domain.StatusPending})

	check := `{"invoice_number":"INV-nope-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/status", strings.NewReader(check))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The gateway answered authoritatively, so the invoice gets adopted.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubGateway{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
