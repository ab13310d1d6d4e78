package core

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OrderPulse/ai/analyzer"
	"OrderPulse/ai/patterns"
	"OrderPulse/entity"
)

func inbound(id, chat, text string, at time.Time) entity.InboundMessage {
	return entity.InboundMessage{
		PlatformMsgID:  id,
		PlatformChatID: chat,
		SenderID:       chat,
		SenderName:     "Chidi",
		Text:           text,
		Timestamp:      at,
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	c, repo, emitter := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry, Source: entity.SourcePattern}})

	now := time.Now()
	batch := []entity.InboundMessage{
		inbound("m1", "chat-1", "hello", now),
		inbound("m2", "chat-1", "is it available", now.Add(time.Second)),
	}

	first, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewMessages)
	assert.Equal(t, 1, first.Conversations)

	second, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewMessages)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 0, second.Conversations)

	assert.Len(t, repo.messages, 2)
	assert.Len(t, repo.conversations, 1)

	// the redelivered batch must not inflate unread
	convos, err := c.Conversations(context.Background(), "tenant-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, convos, 1)
	assert.Equal(t, 2, convos[0].Unread)
	assert.Len(t, emitter.messages, 2)
}

func TestIngestOrderingAndUnread(t *testing.T) {
	c, _, emitter := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry, Source: entity.SourcePattern}})

	now := time.Now()
	batch := []entity.InboundMessage{
		inbound("m1", "chat-1", "first", now),
		inbound("m2", "chat-2", "other thread", now.Add(time.Second)),
		inbound("m3", "chat-1", "second", now.Add(2*time.Second)),
	}

	report, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, report.NewMessages)
	assert.Equal(t, 2, report.Conversations)

	convos, err := c.Conversations(context.Background(), "tenant-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, convos, 2)

	// most recent activity first, summary reflects the last message of the batch
	assert.Equal(t, "chat-1", convos[0].PlatformChatID)
	assert.Equal(t, "second", convos[0].LastMessage.Excerpt)
	assert.Equal(t, 2, convos[0].Unread)
	assert.Equal(t, 1, convos[1].Unread)

	// one conversation-updated per touched thread, not per message
	assert.Len(t, emitter.updates, 2)

	// per-conversation batch order preserved in fan-out
	var chat1 []string
	for _, ev := range emitter.messages {
		if ev.Message.PlatformMsgID == "m1" || ev.Message.PlatformMsgID == "m3" {
			chat1 = append(chat1, ev.Message.PlatformMsgID)
		}
	}
	assert.Equal(t, []string{"m1", "m3"}, chat1)
}

func TestIngestBackfillsParticipantWithoutOverwriting(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry}})

	now := time.Now()
	bare := entity.InboundMessage{PlatformMsgID: "m1", PlatformChatID: "chat-1", Text: "hi", Timestamp: now}
	_, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformInstagram, []entity.InboundMessage{bare})
	require.NoError(t, err)

	named := inbound("m2", "chat-1", "still me", now.Add(time.Second))
	_, err = c.Ingest(context.Background(), "tenant-a", entity.PlatformInstagram, []entity.InboundMessage{named})
	require.NoError(t, err)

	convo, err := repo.FindConversation(context.Background(), "tenant-a", entity.PlatformInstagram, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.Equal(t, "Chidi", convo.ParticipantName)

	// a later name must not replace the stored one
	renamed := named
	renamed.PlatformMsgID = "m3"
	renamed.SenderName = "Someone Else"
	renamed.Timestamp = now.Add(2 * time.Second)
	_, err = c.Ingest(context.Background(), "tenant-a", entity.PlatformInstagram, []entity.InboundMessage{renamed})
	require.NoError(t, err)

	convo, err = repo.FindConversation(context.Background(), "tenant-a", entity.PlatformInstagram, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "Chidi", convo.ParticipantName)
}

// A thread appearing more than once in one batch must accumulate all
// per-message mutations on the copy the epilogue persists.
func TestIngestPersistsOrderFlagFromLaterBatchMessage(t *testing.T) {
	an := &stubAnalyzer{queue: []entity.AIAnalysis{
		{Intent: entity.IntentInquiry, Source: entity.SourcePattern},
		{OrderDetected: true, Confidence: 0.9, Intent: entity.IntentPurchase, Source: entity.SourcePattern},
	}}
	c, repo, emitter := newTestCore(an)

	now := time.Now()
	batch := []entity.InboundMessage{
		inbound("m1", "chat-1", "wetin you sell", now),
		inbound("m2", "chat-1", "ok I wan buy 2", now.Add(time.Second)),
	}

	_, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp, batch)
	require.NoError(t, err)
	require.Len(t, emitter.orders, 1)

	convo, err := repo.FindConversation(context.Background(), "tenant-a", entity.PlatformWhatsApp, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.True(t, convo.OrderDetected)
	assert.Equal(t, 2, convo.Unread)
	assert.Equal(t, "ok I wan buy 2", convo.LastMessage.Excerpt)
}

func TestIngestBackfillsParticipantWithinOneBatch(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry}})

	now := time.Now()
	bare := entity.InboundMessage{PlatformMsgID: "m1", PlatformChatID: "chat-1", Text: "hi", Timestamp: now}
	named := inbound("m2", "chat-1", "na me", now.Add(time.Second))

	_, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp,
		[]entity.InboundMessage{bare, named})
	require.NoError(t, err)

	convo, err := repo.FindConversation(context.Background(), "tenant-a", entity.PlatformWhatsApp, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.Equal(t, "Chidi", convo.ParticipantName)
}

func TestIngestRedeliveryMergesTimestampAndType(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry}})

	now := time.Now().Truncate(time.Millisecond)
	_, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp,
		[]entity.InboundMessage{inbound("m1", "chat-1", "original", now)})
	require.NoError(t, err)

	// drop the hot cache entry so the store path handles the redelivery
	c.seen.Flush()

	later := inbound("m1", "chat-1", "edited text ignored", now.Add(time.Minute))
	later.Type = "image"
	report, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp,
		[]entity.InboundMessage{later})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Duplicates)

	stored, err := repo.FindMessageByPlatformID(context.Background(), entity.PlatformWhatsApp, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "original", stored.Content)
	assert.Equal(t, "image", stored.Type)
	assert.True(t, stored.Timestamp.After(now))
}

func TestIngestWholeBatchStoreFailure(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{}})
	repo.failMessages = true

	report, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp,
		[]entity.InboundMessage{inbound("m1", "chat-1", "hello", time.Now())})
	require.Error(t, err)
	assert.Equal(t, 0, report.NewMessages)
	assert.Len(t, report.Errors, 1)
}

// A pidgin purchase message must flow end to end on the pattern path alone:
// no provider credentials, yet the order is detected, extracted and fanned
// out.
func TestIngestDetectsPidginOrderWithoutProvider(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	conf := testConfig()
	an := analyzer.New(conf, patterns.New(), log)

	c, repo, emitter := newTestCore(an)

	msg := inbound("m1", "chat-1", "I wan buy 2 bags, how much e be, send to Lekki", time.Now())
	report, err := c.Ingest(context.Background(), "tenant-a", entity.PlatformWhatsApp,
		[]entity.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NewMessages)

	require.Len(t, emitter.orders, 1)
	order := emitter.orders[0]
	require.NotNil(t, order.Order)
	assert.Equal(t, 2, order.Order.Quantity)
	assert.Contains(t, order.Order.DeliveryAddress, "Lekki")
	assert.GreaterOrEqual(t, order.Confidence, 0.5)

	convo, err := repo.FindConversation(context.Background(), "tenant-a", entity.PlatformWhatsApp, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.True(t, convo.OrderDetected)

	stored, err := repo.FindMessageByPlatformID(context.Background(), entity.PlatformWhatsApp, "m1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.Analysis)
	assert.Equal(t, entity.SourcePattern, stored.Analysis.Source)
	assert.Equal(t, entity.FallbackNoCredentials, stored.Analysis.FallbackReason)
	assert.False(t, stored.Analysis.PendingAnalysis)
	assert.NotEmpty(t, stored.Analysis.SuggestedReplies)
}
