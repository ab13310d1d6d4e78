package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "123",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"contacts": [{"profile": {"name": "Chidi"}, "wa_id": "2348012345678"}],
				"messages": [{
					"from": "2348012345678",
					"id": "wamid.abc",
					"timestamp": "1756720000",
					"type": "text",
					"text": {"body": "I wan buy 2 bags"}
				}]
			}
		}]
	}]
}`

func newTestBot(appSecret string) *WhatsAppBot {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWhatsAppBot("token", "verify-me", appSecret, "555", log)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookChallenge(t *testing.T) {
	b := newTestBot("")

	r := httptest.NewRequest("GET", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil)
	w := httptest.NewRecorder()
	b.VerifyWebhook(w, r)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "42", w.Body.String())

	r = httptest.NewRequest("GET", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil)
	w = httptest.NewRecorder()
	b.VerifyWebhook(w, r)
	assert.Equal(t, 403, w.Code)
}

func TestParseWebhookFlattensMessages(t *testing.T) {
	b := newTestBot("")

	msgs, err := b.ParseWebhook([]byte(samplePayload), "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "wamid.abc", msgs[0].PlatformMsgID)
	assert.Equal(t, "2348012345678", msgs[0].PlatformChatID)
	assert.Equal(t, "Chidi", msgs[0].SenderName)
	assert.Equal(t, "I wan buy 2 bags", msgs[0].Text)
	assert.Equal(t, int64(1756720000), msgs[0].Timestamp.Unix())
}

func TestParseWebhookSignature(t *testing.T) {
	b := newTestBot("s3cret")
	body := []byte(samplePayload)

	_, err := b.ParseWebhook(body, "sha256=deadbeef")
	require.Error(t, err)

	msgs, err := b.ParseWebhook(body, sign("s3cret", body))
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestParseWebhookIgnoresForeignObjects(t *testing.T) {
	b := newTestBot("")

	msgs, err := b.ParseWebhook([]byte(`{"object":"page","entry":[]}`), "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
