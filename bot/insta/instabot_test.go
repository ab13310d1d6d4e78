package insta

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"object": "instagram",
	"entry": [{
		"id": "789",
		"time": 1756720000,
		"messaging": [
			{
				"sender": {"id": "cust-1"},
				"recipient": {"id": "seller-1"},
				"timestamp": 1756720000000,
				"message": {"mid": "mid.1", "text": "how much be this shoe"}
			},
			{
				"sender": {"id": "seller-1"},
				"recipient": {"id": "cust-1"},
				"timestamp": 1756720001000,
				"message": {"mid": "mid.2", "text": "15k", "is_echo": true}
			}
		]
	}]
}`

func newTestBot() *InstaBot {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInstaBot("token", "verify-me", "", log)
}

func TestParseWebhookSkipsEchoes(t *testing.T) {
	b := newTestBot()

	msgs, err := b.ParseWebhook([]byte(samplePayload), "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mid.1", msgs[0].PlatformMsgID)
	assert.Equal(t, "cust-1", msgs[0].SenderID)
	assert.Equal(t, "how much be this shoe", msgs[0].Text)
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	b := newTestBot()

	_, err := b.ParseWebhook([]byte("not json"), "")
	require.Error(t, err)
}
