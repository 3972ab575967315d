package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSecret    = errors.New("signing secret is not configured")
)

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the signature header against the exact bytes
// received. The body must not be re-serialized before calling this.
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrMissingSecret
	}
	return compare(Sign(body, secret), signature)
}

// VerifyPaymentSignature checks the checkout callback signature, computed
// over "<payment_id>|<subscription_id>" with the API key secret.
func VerifyPaymentSignature(paymentId, subscriptionId, signature, keySecret string) error {
	if strings.TrimSpace(keySecret) == "" {
		return ErrMissingSecret
	}
	return compare(Sign([]byte(paymentId+"|"+subscriptionId), keySecret), signature)
}

func compare(expected, provided string) error {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrInvalidSignature
	}
	return nil
}
