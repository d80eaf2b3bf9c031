package doku

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasarindo/payments/internal/core/domain"
)

const (
	testClientID = "BRN-0201-123"
	testSecret   = "super-secret"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		ClientID:  testClientID,
		SecretKey: testSecret,
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	c.backoffBase = time.Millisecond
	return c
}

func testRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		InvoiceNumber:    "INV-1-123",
		AmountMinorUnits: 150000,
		Currency:         domain.Currency,
		CustomerName:     "Andi",
		CustomerEmail:    "a@b.com",
		CallbackURL:      "https://shop.example/checkout/finish",
		DueWindowMinutes: 60,
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://api-sandbox.doku.com"})
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, domain.KindConfiguration, gerr.Kind)
}

func TestInitiatePayment_RoundTrip(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"response":{"order":{"invoice_number":"INV-1-123"},"payment":{"url":"https://pay/x"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	result, err := c.InitiatePayment(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://pay/x", result.PaymentURL)
	assert.Equal(t, "INV-1-123", result.InvoiceNumber)
	assert.Empty(t, result.SessionID)

	// The signature header must verify against the exact bytes received.
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, testClientID, gotHeaders.Get("Client-Id"))
	assert.NotEmpty(t, gotHeaders.Get("Request-Id"))

	want, err := Sign(testSecret, SigningContext{
		ClientID:      testClientID,
		RequestID:     gotHeaders.Get("Request-Id"),
		TimestampUTC:  gotHeaders.Get("Request-Timestamp"),
		RequestTarget: paymentTarget,
		Body:          gotBody,
	})
	require.NoError(t, err)
	assert.Equal(t, want, gotHeaders.Get("Signature"))

	assert.JSONEq(t, `{
		"order":{"invoice_number":"INV-1-123","amount":150000,"callback_url":"https://shop.example/checkout/finish","auto_redirect":true},
		"payment":{"payment_due_date":60},
		"customer":{"name":"Andi","email":"a@b.com"}
	}`, string(gotBody))
}

func TestInitiatePayment_SessionIDLocations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "documented field",
			body: `{"response":{"order":{"invoice_number":"INV-1-123","session_id":"sess-1"},"payment":{"url":"https://pay/x"}}}`,
			want: "sess-1",
		},
		{
			name: "observed fallback field",
			body: `{"response":{"order":{"invoice_number":"INV-1-123"},"payment":{"url":"https://pay/x"},"payment_session_id":"sess-2"}}`,
			want: "sess-2",
		},
		{
			name: "absent",
			body: `{"response":{"order":{"invoice_number":"INV-1-123"},"payment":{"url":"https://pay/x"}}}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			result, err := c.InitiatePayment(context.Background(), testRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.SessionID)
		})
	}
}

func TestInitiatePayment_ErrorEnvelopeShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"structured error object", `{"error":{"message":"insufficient"}}`, "insufficient"},
		{"top-level message", `{"message":"insufficient"}`, "insufficient"},
		{"opaque error object", `{"error":{"code":"E42"}}`, `{"code":"E42"}`},
		{"non-json body", `gateway exploded`, genericRejectMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			_, err := c.InitiatePayment(context.Background(), testRequest())
			require.Error(t, err)

			var gerr *domain.GatewayError
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, domain.KindRejected, gerr.Kind)
			assert.Contains(t, gerr.Message, tt.wantMsg)
			assert.False(t, gerr.Retryable())
		})
	}
}

func TestInitiatePayment_RejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid signature"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.InitiatePayment(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInitiatePayment_ValidatesLocally(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1") // must never be dialled

	req := testRequest()
	req.InvoiceNumber = ""
	_, err := c.InitiatePayment(context.Background(), req)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, domain.KindSignatureInput, gerr.Kind)
}

// flakyTransport fails the first failures round trips, then delegates.
type flakyTransport struct {
	failures int
	attempts atomic.Int32
	inner    http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if int(f.attempts.Add(1)) <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.inner.RoundTrip(r)
}

func TestInitiatePayment_RetriesTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"order":{"invoice_number":"INV-1-123"},"payment":{"url":"https://pay/x"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ft := &flakyTransport{failures: 2, inner: http.DefaultTransport}
	c.httpClient.Transport = ft

	result, err := c.InitiatePayment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "INV-1-123", result.InvoiceNumber)
	assert.Equal(t, int32(3), ft.attempts.Load())
}

func TestInitiatePayment_TransportErrorAfterExhaustedRetries(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.InitiatePayment(context.Background(), testRequest())
	require.Error(t, err)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, domain.KindTransport, gerr.Kind)
	assert.True(t, gerr.Retryable())
}

func TestCheckStatus_Mapping(t *testing.T) {
	tests := []struct {
		gateway string
		want    domain.TransactionStatus
	}{
		{"SUCCESS", domain.StatusSuccess},
		{"PENDING", domain.StatusPending},
		{"FAILED", domain.StatusFailed},
		{"EXPIRED", domain.StatusExpired},
		{"success", domain.StatusSuccess}, // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, statusTarget, r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"order":{"invoice_number":"INV-1-123"}}`, string(body))
				w.Write([]byte(`{"response":{"transaction":{"status":"` + tt.gateway + `"}}}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			status, err := c.CheckStatus(context.Background(), "INV-1-123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestCheckStatus_UnrecognizedStatusIsAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"transaction":{"status":"HALF-PAID"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	status, err := c.CheckStatus(context.Background(), "INV-1-123")
	require.Error(t, err)
	assert.Equal(t, domain.StatusUnknown, status)

	var gerr *domain.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, domain.KindAmbiguousStatus, gerr.Kind)
}

// Repeated checks against an unchanged backend return the same answer and do
// not mutate gateway-side state observable to the test.
func TestCheckStatus_Idempotent(t *testing.T) {
	var queries atomic.Int32
	gatewayState := "PENDING"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries.Add(1)
		w.Write([]byte(`{"response":{"transaction":{"status":"` + gatewayState + `"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	first, err := c.CheckStatus(context.Background(), "INV-1-123")
	require.NoError(t, err)
	second, err := c.CheckStatus(context.Background(), "INV-1-123")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "PENDING", gatewayState)
	assert.Equal(t, int32(2), queries.Load())
}

// Every call re-signs with a fresh Request-Id while the body, and so the
// invoice identity, stays identical.
func TestCheckStatus_FreshRequestIdentityPerCall(t *testing.T) {
	var ids []string
	var bodies []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ids = append(ids, r.Header.Get("Request-Id"))
		bodies = append(bodies, string(body))
		w.Write([]byte(`{"response":{"transaction":{"status":"PENDING"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.CheckStatus(context.Background(), "INV-1-123")
	require.NoError(t, err)
	_, err = c.CheckStatus(context.Background(), "INV-1-123")
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, bodies[0], bodies[1])
}
