package services

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"nexora/pkg/utils"
)

const testWebhookSecret = "whsec_test_4242"

func signedHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func eventJSON(id string, created int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":"payment_intent.succeeded","created":%d,"data":{"object":{"id":"pi_1"}}}`,
		id, created))
}

func TestVerifyAcceptsSignedPayload(t *testing.T) {
	v := NewStripeVerifier(testWebhookSecret, 5*time.Minute)
	payload := eventJSON("evt_sig_ok", time.Now().Unix())

	event, err := v.Verify(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_sig_ok", event.ID)
	assert.Equal(t, "payment_intent.succeeded", string(event.Type))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := NewStripeVerifier(testWebhookSecret, 5*time.Minute)
	payload := eventJSON("evt_tampered", time.Now().Unix())
	header := signedHeader(payload, testWebhookSecret, time.Now())

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = 'X'

	_, err := v.Verify(tampered, header)
	assert.ErrorIs(t, err, utils.ErrInvalidSignature)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewStripeVerifier(testWebhookSecret, 5*time.Minute)
	payload := eventJSON("evt_wrong_secret", time.Now().Unix())

	_, err := v.Verify(payload, signedHeader(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, utils.ErrInvalidSignature)
}

func TestVerifyRejectsGarbageHeader(t *testing.T) {
	v := NewStripeVerifier(testWebhookSecret, 5*time.Minute)
	payload := eventJSON("evt_garbage", time.Now().Unix())

	for _, header := range []string{"", "not-a-signature", "t=abc,v1=zz"} {
		_, err := v.Verify(payload, header)
		assert.ErrorIs(t, err, utils.ErrInvalidSignature, "header %q", header)
	}
}

func TestVerifyRejectsStaleEvent(t *testing.T) {
	// Signature is fresh but the event itself was created an hour ago:
	// a correctly signed replay of an old delivery.
	v := NewStripeVerifier(testWebhookSecret, 5*time.Minute)
	payload := eventJSON("evt_stale", time.Now().Add(-time.Hour).Unix())

	_, err := v.Verify(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	assert.ErrorIs(t, err, utils.ErrStaleEvent)
}

func TestVerifyZeroFreshnessDisablesStalenessCheck(t *testing.T) {
	v := NewStripeVerifier(testWebhookSecret, 0)
	payload := eventJSON("evt_old_ok", time.Now().Add(-24*time.Hour).Unix())

	event, err := v.Verify(payload, signedHeader(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_old_ok", event.ID)
}
