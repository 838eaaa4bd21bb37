package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"event":"invoice.paid","payload":{}}`)

	assert.True(t, VerifyWebhookSignature(payload, sign(payload, secret), secret))
}

func TestVerifyWebhookSignatureRejectsTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"event":"invoice.paid"}`)
	signature := sign(payload, secret)

	tampered := []byte(`{"event":"subscription.activated"}`)
	assert.False(t, VerifyWebhookSignature(tampered, signature, secret))
}

func TestVerifyWebhookSignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"event":"invoice.paid"}`)
	signature := sign(payload, "other_secret")

	assert.False(t, VerifyWebhookSignature(payload, signature, "whsec_test"))
}

func TestVerifyWebhookSignatureRejectsGarbage(t *testing.T) {
	payload := []byte(`{}`)

	assert.False(t, VerifyWebhookSignature(payload, "", "whsec_test"))
	assert.False(t, VerifyWebhookSignature(payload, "not-hex!!", "whsec_test"))
	assert.False(t, VerifyWebhookSignature(payload, "deadbeef", "whsec_test"))
}
