// Package doku implements the PaymentGateway port against the DOKU (Jokul)
// checkout V2 API, including its request-signing scheme.
package doku

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"
)

// SigningContext carries the per-call identity a signature is computed over.
// It is built fresh for every outbound call and never retained; RequestID is
// unique per HTTP call, not per invoice.
type SigningContext struct {
	ClientID      string
	RequestID     string
	TimestampUTC  string
	RequestTarget string
	Body          []byte
}

// Sign computes the Signature header value for a request.
//
// The component order is fixed by the gateway. The digest is over the exact
// body bytes that will be transmitted; re-serialising the body after signing
// invalidates the signature.
func Sign(secretKey string, sc SigningContext) (string, error) {
	if secretKey == "" || sc.ClientID == "" {
		return "", domain.NewGatewayError(domain.KindConfiguration,
			domain.ErrMissingCredentials, "client id and secret key are required for signing")
	}

	component := strings.Join([]string{
		"Client-Id:" + sc.ClientID,
		"Request-Id:" + sc.RequestID,
		"Request-Timestamp:" + sc.TimestampUTC,
		"Request-Target:" + sc.RequestTarget,
		"Digest:" + bodyDigest(sc.Body),
	}, "\n")

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(component))

	return "HMACSHA256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// bodyDigest returns the base64 SHA-256 digest of the request body bytes.
func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// requestTimestamp formats a signing timestamp: UTC, second precision, a
// literal "Z" suffix. No sub-second fraction, no timezone offset.
func requestTimestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05") + "Z"
}
