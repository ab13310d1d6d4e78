package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"OrderPulse/ai/analyzer"
	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

type touchedConversation struct {
	conversation *entity.Conversation
	newCustomer  int
}

// Ingest runs one inbound batch through dedup, persistence, classification
// and fan-out. Messages are processed in batch order; a failure on one
// message skips that message only. The returned error is non-nil only when
// the whole batch produced nothing but store failures.
func (c *Core) Ingest(ctx context.Context, tenant, platform string, batch []entity.InboundMessage) (entity.IngestReport, error) {
	var report entity.IngestReport
	if c.repo == nil {
		return report, fmt.Errorf("repository not configured")
	}
	if len(batch) == 0 {
		return report, nil
	}

	log := c.log.With(slog.String("tenant", tenant), slog.String("platform", platform))
	touched := make(map[primitive.ObjectID]*touchedConversation)
	storeFailures := 0

	for _, raw := range batch {
		report.Processed++

		dup, err := c.checkDuplicate(ctx, platform, raw)
		if err != nil {
			storeFailures++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: dedup check: %v", raw.PlatformMsgID, err))
			continue
		}
		if dup {
			report.Duplicates++
			continue
		}

		convo, created, err := c.resolveConversation(ctx, tenant, platform, raw)
		if err != nil {
			storeFailures++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: resolve conversation: %v", raw.PlatformMsgID, err))
			continue
		}
		if created {
			report.Conversations++
		}
		// later messages of a thread mutate the copy already scheduled for
		// the summary write, not the fresh store read
		if prev := touched[convo.ID]; prev != nil {
			backfillParticipant(prev.conversation, convo)
			convo = prev.conversation
		}

		msg := &entity.Message{
			ConversationID: convo.ID,
			Tenant:         tenant,
			Platform:       platform,
			PlatformMsgID:  raw.PlatformMsgID,
			Sender:         entity.SenderCustomer,
			Content:        raw.Text,
			Type:           messageType(raw.Type),
			Status:         entity.StatusDelivered,
			Timestamp:      messageTimestamp(raw.Timestamp),
		}

		msg, err = c.repo.CreateMessage(ctx, msg)
		if err != nil {
			storeFailures++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: store message: %v", raw.PlatformMsgID, err))
			log.Error("store inbound message", sl.Err(err))
			continue
		}
		report.NewMessages++
		c.seen.Set(dedupKey(platform, raw.PlatformMsgID), struct{}{}, cache.DefaultExpiration)

		analysis := c.classifyInbound(ctx, tenant, convo.ID, msg)
		msg.Analysis = &analysis
		if err := c.repo.UpdateMessage(ctx, msg); err != nil {
			// message itself is already persisted, keep going
			log.Error("attach analysis", sl.Err(err), slog.String("message", msg.ID.Hex()))
		}

		orderFlagged := analysis.OrderDetected && analysis.Confidence >= c.orderConfidence
		if orderFlagged {
			convo.OrderDetected = true
		}

		t := touched[convo.ID]
		if t == nil {
			t = &touchedConversation{conversation: convo}
			touched[convo.ID] = t
		}
		t.newCustomer++
		t.conversation.LastMessage = entity.LastMessage{
			Excerpt: excerpt(msg.Content, excerptLimit),
			Sender:  entity.SenderCustomer,
			At:      msg.Timestamp,
		}

		c.emitter.NewMessage(tenant, entity.NewMessageEvent{
			Tenant:         tenant,
			ConversationID: convo.ID.Hex(),
			Message:        *msg,
		})
		if orderFlagged {
			c.emitter.OrderDetected(tenant, entity.OrderDetectedEvent{
				Tenant:           tenant,
				ConversationID:   convo.ID.Hex(),
				MessageID:        msg.ID.Hex(),
				Confidence:       analysis.Confidence,
				Order:            analysis.Order,
				SuggestedReplies: analysis.SuggestedReplies,
			})
		}
	}

	// batch epilogue: one summary write and one event per touched thread
	for _, t := range touched {
		convo := t.conversation
		convo.Unread += t.newCustomer
		if err := c.repo.UpdateConversation(ctx, convo); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("conversation %s: summary update: %v", convo.ID.Hex(), err))
			log.Error("update conversation summary", sl.Err(err), slog.String("conversation", convo.ID.Hex()))
			continue
		}
		c.emitter.ConversationUpdated(tenant, entity.ConversationUpdatedEvent{
			Tenant:       tenant,
			Conversation: *convo,
		})
	}

	if storeFailures == len(batch) {
		return report, fmt.Errorf("ingest batch failed: store rejected all %d messages", len(batch))
	}
	return report, nil
}

// checkDuplicate consults the hot cache first and falls back to the store.
// A redelivery carrying a newer timestamp updates the stored row's timestamp
// and type in place; content stays immutable and nothing is ever inserted.
// Messages without a platform id cannot be deduplicated and always pass.
func (c *Core) checkDuplicate(ctx context.Context, platform string, raw entity.InboundMessage) (bool, error) {
	if raw.PlatformMsgID == "" {
		return false, nil
	}
	if _, hit := c.seen.Get(dedupKey(platform, raw.PlatformMsgID)); hit {
		return true, nil
	}
	existing, err := c.repo.FindMessageByPlatformID(ctx, platform, raw.PlatformMsgID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	c.seen.Set(dedupKey(platform, raw.PlatformMsgID), struct{}{}, cache.DefaultExpiration)
	if raw.Timestamp.After(existing.Timestamp) {
		existing.Timestamp = raw.Timestamp
		if raw.Type != "" {
			existing.Type = raw.Type
		}
		if err := c.repo.UpdateMessage(ctx, existing); err != nil {
			c.log.Error("update redelivered message", sl.Err(err),
				slog.String("platform_msg_id", raw.PlatformMsgID))
		}
	}
	return true, nil
}

// resolveConversation finds or creates the thread for one inbound message and
// backfills participant details that earlier deliveries lacked.
func (c *Core) resolveConversation(ctx context.Context, tenant, platform string, raw entity.InboundMessage) (*entity.Conversation, bool, error) {
	convo, err := c.repo.FindConversation(ctx, tenant, platform, raw.PlatformChatID)
	if err != nil {
		return nil, false, err
	}
	if convo != nil {
		if convo.ParticipantName == "" && raw.SenderName != "" {
			convo.ParticipantName = raw.SenderName
		}
		if convo.ParticipantAvatar == "" && raw.SenderAvatar != "" {
			convo.ParticipantAvatar = raw.SenderAvatar
		}
		if convo.ParticipantID == "" && raw.SenderID != "" {
			convo.ParticipantID = raw.SenderID
		}
		return convo, false, nil
	}

	convo = &entity.Conversation{
		Tenant:            tenant,
		Platform:          platform,
		PlatformChatID:    raw.PlatformChatID,
		ParticipantID:     raw.SenderID,
		ParticipantName:   raw.SenderName,
		ParticipantAvatar: raw.SenderAvatar,
		Status:            entity.ConversationActive,
		EntryMode:         entity.EntrySynced,
	}
	convo, err = c.repo.CreateConversation(ctx, convo)
	if err != nil {
		return nil, false, err
	}
	return convo, true, nil
}

// backfillParticipant fills participant fields dst is missing from src,
// never replacing ones already set.
func backfillParticipant(dst, src *entity.Conversation) {
	if dst.ParticipantName == "" {
		dst.ParticipantName = src.ParticipantName
	}
	if dst.ParticipantAvatar == "" {
		dst.ParticipantAvatar = src.ParticipantAvatar
	}
	if dst.ParticipantID == "" {
		dst.ParticipantID = src.ParticipantID
	}
}

// classifyInbound builds the short conversation context and runs the
// analyzer. The analyzer never fails; in the worst case the result is a
// pattern fallback marked pending.
func (c *Core) classifyInbound(ctx context.Context, tenant string, conversationID primitive.ObjectID, msg *entity.Message) entity.AIAnalysis {
	var contextLines []string
	if c.contextMessages > 0 {
		recent, err := c.repo.FindRecentMessages(ctx, conversationID, c.contextMessages+1)
		if err != nil {
			c.log.Warn("load conversation context", sl.Err(err))
		}
		for _, m := range recent {
			if m.ID == msg.ID {
				continue
			}
			contextLines = append(contextLines, m.Sender+": "+m.Content)
			if len(contextLines) == c.contextMessages {
				break
			}
		}
	}

	analysisResult := c.an.Classify(ctx, analyzer.Request{
		Tenant:  tenant,
		Content: msg.Content,
		Context: contextLines,
	})
	if analysisResult.PendingAnalysis {
		analysisResult.Attempts = 1
	}
	return analysisResult
}

func dedupKey(platform, platformMsgID string) string {
	return platform + ":" + platformMsgID
}

func messageType(t string) string {
	if t == "" {
		return "text"
	}
	return t
}

func messageTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
