package doku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pasarindo/payments/internal/core/domain"
)

const (
	paymentTarget = "/checkout/v1/payment"
	statusTarget  = "/checkout/v1/payment/status"

	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// Config holds what the client needs to talk to DOKU.
type Config struct {
	BaseURL   string
	ClientID  string
	SecretKey string

	// Timeout bounds each HTTP attempt. Zero means the default.
	Timeout time.Duration
}

// Client implements ports.PaymentGateway against the DOKU checkout API.
//
// Each call constructs its own SigningContext from its own inputs; there is
// no shared mutable state beyond the read-only credentials, so concurrent
// initiations and status checks need no locking.
type Client struct {
	baseURL    string
	clientID   string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger

	maxAttempts int
	backoffBase time.Duration

	// overridable in tests
	now          func() time.Time
	newRequestID func() string
}

// NewClient creates a DOKU client. Missing credentials are a configuration
// error surfaced here, at startup, never per request.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.SecretKey == "" {
		return nil, domain.NewGatewayError(domain.KindConfiguration,
			domain.ErrMissingCredentials, "DOKU client id and secret key must be configured")
	}
	if cfg.BaseURL == "" {
		return nil, domain.NewGatewayError(domain.KindConfiguration,
			domain.ErrMissingCredentials, "DOKU base URL must be configured")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		secretKey:    cfg.SecretKey,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       slog.Default().With("component", "doku"),
		maxAttempts:  defaultMaxAttempts,
		backoffBase:  defaultBackoffBase,
		now:          time.Now,
		newRequestID: func() string { return "REQ-" + uuid.NewString() },
	}, nil
}

// request body shapes, fixed by the gateway API.

type orderSection struct {
	InvoiceNumber string `json:"invoice_number"`
	Amount        int64  `json:"amount"`
	CallbackURL   string `json:"callback_url"`
	AutoRedirect  bool   `json:"auto_redirect"`
}

type paymentSection struct {
	PaymentDueDate int `json:"payment_due_date"` // minutes
}

type customerSection struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type paymentRequestBody struct {
	Order    orderSection    `json:"order"`
	Payment  paymentSection  `json:"payment"`
	Customer customerSection `json:"customer"`
}

type statusRequestBody struct {
	Order struct {
		InvoiceNumber string `json:"invoice_number"`
	} `json:"order"`
}

type initiateResponse struct {
	Response struct {
		Order struct {
			InvoiceNumber string `json:"invoice_number"`
		} `json:"order"`
		Payment struct {
			URL string `json:"url"`
		} `json:"payment"`
	} `json:"response"`
}

type statusResponse struct {
	Response struct {
		Transaction struct {
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"response"`
}

// InitiatePayment creates a checkout payment session for the request and
// returns the payment URL the shopper is redirected to.
func (c *Client) InitiatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.GatewayPaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := paymentRequestBody{
		Order: orderSection{
			InvoiceNumber: req.InvoiceNumber,
			Amount:        req.AmountMinorUnits,
			CallbackURL:   req.CallbackURL,
			AutoRedirect:  true,
		},
		Payment:  paymentSection{PaymentDueDate: req.DueWindowMinutes},
		Customer: customerSection{Name: req.CustomerName, Email: req.CustomerEmail},
	}

	// Marshal exactly once: these bytes are digested, signed and transmitted.
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "failed to encode payment request")
	}

	respBody, status, err := c.post(ctx, paymentTarget, raw)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		msg := extractErrorMessage(respBody)
		c.logger.Warn("payment initiation rejected",
			"invoice_number", req.InvoiceNumber, "http_status", status, "reason", msg)
		return nil, domain.NewGatewayError(domain.KindRejected, domain.ErrGatewayRejected, msg)
	}

	var parsed initiateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "malformed gateway response")
	}
	if parsed.Response.Payment.URL == "" || parsed.Response.Order.InvoiceNumber == "" {
		return nil, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "gateway response missing payment url or invoice number")
	}

	c.logger.Info("payment initiated",
		"invoice_number", parsed.Response.Order.InvoiceNumber,
		"amount", req.AmountMinorUnits)

	return &domain.GatewayPaymentResult{
		PaymentURL:    parsed.Response.Payment.URL,
		InvoiceNumber: parsed.Response.Order.InvoiceNumber,
		SessionID:     extractSessionID(respBody),
	}, nil
}

// CheckStatus issues an authoritative status query for an invoice. Repeated
// calls are safe; the query never mutates gateway-side state.
func (c *Client) CheckStatus(ctx context.Context, invoiceNumber string) (domain.TransactionStatus, error) {
	if invoiceNumber == "" {
		return domain.StatusUnknown, domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "invoice number is required")
	}

	var body statusRequestBody
	body.Order.InvoiceNumber = invoiceNumber

	raw, err := json.Marshal(body)
	if err != nil {
		return domain.StatusUnknown, domain.NewGatewayError(domain.KindSignatureInput,
			domain.ErrInvalidSignatureInput, "failed to encode status request")
	}

	respBody, status, err := c.post(ctx, statusTarget, raw)
	if err != nil {
		return domain.StatusUnknown, err
	}

	if status < 200 || status >= 300 {
		msg := extractErrorMessage(respBody)
		return domain.StatusUnknown, domain.NewGatewayError(domain.KindRejected, domain.ErrGatewayRejected, msg)
	}

	var parsed statusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.StatusUnknown, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "malformed gateway response")
	}

	mapped := mapTransactionStatus(parsed.Response.Transaction.Status)
	if mapped == domain.StatusUnknown {
		return domain.StatusUnknown, domain.NewGatewayError(domain.KindAmbiguousStatus,
			domain.ErrAmbiguousStatus, "gateway reported status "+parsed.Response.Transaction.Status)
	}

	return mapped, nil
}

// mapTransactionStatus maps the gateway's status vocabulary onto the internal
// model. Anything unrecognized is UNKNOWN, which callers must treat as
// "query again later", never as a final state.
func mapTransactionStatus(status string) domain.TransactionStatus {
	switch strings.ToUpper(status) {
	case "SUCCESS":
		return domain.StatusSuccess
	case "PENDING":
		return domain.StatusPending
	case "FAILED":
		return domain.StatusFailed
	case "EXPIRED":
		return domain.StatusExpired
	default:
		return domain.StatusUnknown
	}
}

// post sends a signed POST and retries transport failures with bounded
// exponential backoff. Every attempt gets a fresh Request-Id, timestamp and
// signature; the body bytes, and with them the invoice identity, never change
// across attempts.
func (c *Client) post(ctx context.Context, target string, raw []byte) ([]byte, int, error) {
	var lastErr error
	delay := c.backoffBase

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, 0, domain.NewGatewayError(domain.KindTransport,
					domain.ErrGatewayUnreachable, "request cancelled: "+ctx.Err().Error())
			case <-time.After(delay):
			}
			delay *= 2
		}

		respBody, status, err := c.send(ctx, target, raw)
		if err == nil {
			return respBody, status, nil
		}
		lastErr = err
		c.logger.Warn("gateway request failed",
			"target", target, "attempt", attempt, "error", err)

		var gerr *domain.GatewayError
		if !(errors.As(err, &gerr) && gerr.Retryable()) {
			return nil, 0, err
		}
	}

	return nil, 0, lastErr
}

// send performs one signed HTTP attempt.
func (c *Client) send(ctx context.Context, target string, raw []byte) ([]byte, int, error) {
	requestID := c.newRequestID()
	timestamp := requestTimestamp(c.now())

	signature, err := Sign(c.secretKey, SigningContext{
		ClientID:      c.clientID,
		RequestID:     requestID,
		TimestampUTC:  timestamp,
		RequestTarget: target,
		Body:          raw,
	})
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+target, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Client-Id", c.clientID)
	httpReq.Header.Set("Request-Id", requestID)
	httpReq.Header.Set("Request-Timestamp", timestamp)
	httpReq.Header.Set("Signature", signature)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "request failed: "+err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, domain.NewGatewayError(domain.KindTransport,
			domain.ErrGatewayUnreachable, "failed to read response: "+err.Error())
	}

	return respBody, resp.StatusCode, nil
}
