package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	secret := "whsec"
	good := Sign(body, secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantErr   error
	}{
		{"valid", body, good, secret, nil},
		{"uppercase hex accepted", body, strings.ToUpper(good), secret, nil},
		{"tampered body", []byte(`{"event":"payment.captured","payload":{} }`), good, secret, ErrInvalidSignature},
		{"wrong secret", body, good, "other", ErrInvalidSignature},
		{"empty signature", body, "", secret, ErrInvalidSignature},
		{"missing secret", body, good, "", ErrMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyWebhookSignature(tt.body, tt.signature, tt.secret)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	sig := Sign([]byte("pay_1|sub_1"), "key")

	require.NoError(t, VerifyPaymentSignature("pay_1", "sub_1", sig, "key"))
	assert.ErrorIs(t, VerifyPaymentSignature("pay_1", "sub_2", sig, "key"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyPaymentSignature("pay_1", "sub_1", sig, ""), ErrMissingSecret)
}

func TestSubscriptionFromMap(t *testing.T) {
	s := SubscriptionFromMap(map[string]interface{}{
		"id":          "sub_1",
		"plan_id":     "plan_1",
		"status":      "active",
		"paid_count":  float64(2),
		"current_end": float64(1709251200),
		"notes":       map[string]interface{}{"adminId": "abc", "n": float64(1)},
	})

	assert.Equal(t, "sub_1", s.Id)
	assert.Equal(t, 2, s.PaidCount)
	require.NotNil(t, s.NextDueOn)
	assert.Equal(t, int64(1709251200), s.NextDueOn.Unix())
	assert.Equal(t, map[string]string{"adminId": "abc"}, s.Notes)
}
