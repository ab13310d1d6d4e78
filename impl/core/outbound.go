package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

// OutboundRequest is one seller reply to deliver.
type OutboundRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content" validate:"required"`
}

// SendOutbound persists a seller message and delivers it through the
// platform connector. Without an active connection the message stays
// pending for a later retry; that is a normal outcome, not an error.
func (c *Core) SendOutbound(ctx context.Context, tenant string, req OutboundRequest) (*entity.Message, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository not configured")
	}
	convoID, err := primitive.ObjectIDFromHex(req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("bad conversation id: %w", err)
	}
	convo, err := c.repo.GetConversation(ctx, convoID)
	if err != nil {
		return nil, err
	}
	if convo == nil || convo.Tenant != tenant {
		return nil, fmt.Errorf("conversation not found")
	}

	msg := &entity.Message{
		ConversationID: convo.ID,
		Tenant:         tenant,
		Platform:       convo.Platform,
		Sender:         entity.SenderSeller,
		Content:        req.Content,
		Type:           "text",
		Status:         entity.StatusPending,
		Timestamp:      time.Now(),
		Read:           true,
	}
	msg, err = c.repo.CreateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("store outbound message: %w", err)
	}

	recipient := req.RecipientID
	if recipient == "" {
		recipient = convo.ParticipantID
	}
	return c.deliver(ctx, tenant, convo, msg, recipient)
}

// RetryOutbound re-sends one previously failed message. Only failed messages
// are eligible; pending ones belong to an offline connection and go out when
// it returns.
func (c *Core) RetryOutbound(ctx context.Context, tenant, messageID, recipientID string) (*entity.Message, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository not configured")
	}
	id, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, fmt.Errorf("bad message id: %w", err)
	}
	msg, err := c.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Tenant != tenant {
		return nil, fmt.Errorf("message not found")
	}
	if msg.Status != entity.StatusFailed {
		return nil, fmt.Errorf("message %s is %s, only failed messages can be retried", messageID, msg.Status)
	}
	convo, err := c.repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if convo == nil {
		return nil, fmt.Errorf("conversation not found")
	}

	msg.Status = entity.StatusPending
	if err := c.repo.UpdateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("reset message status: %w", err)
	}

	recipient := recipientID
	if recipient == "" {
		recipient = convo.ParticipantID
	}
	return c.deliver(ctx, tenant, convo, msg, recipient)
}

// deliver attempts the platform send and records the outcome on the message
// and the conversation summary.
func (c *Core) deliver(ctx context.Context, tenant string, convo *entity.Conversation, msg *entity.Message, recipient string) (*entity.Message, error) {
	log := c.log.With(slog.String("tenant", tenant), slog.String("platform", convo.Platform))

	connector := c.connectors[convo.Platform]
	connected := connector != nil
	if connected {
		state, err := c.repo.FindSyncState(ctx, tenant, convo.Platform)
		if err != nil {
			log.Warn("load sync state before send", sl.Err(err))
		}
		connected = state != nil && state.Status != entity.SyncDisconnected
	}
	if !connected {
		// Lite Mode: keep it pending until the connection comes back
		log.Info("outbound queued, connection inactive", slog.String("message", msg.ID.Hex()))
		return msg, nil
	}

	platformMsgID, sendErr := connector.Send(ctx, tenant, recipient, msg.Content)
	if sendErr != nil {
		msg.Status = entity.StatusFailed
		if err := c.repo.UpdateMessage(ctx, msg); err != nil {
			log.Error("mark message failed", sl.Err(err))
		}
		log.Error("outbound send", sl.Err(sendErr), slog.String("message", msg.ID.Hex()))
		return msg, fmt.Errorf("send via %s: %w", convo.Platform, sendErr)
	}

	msg.PlatformMsgID = platformMsgID
	msg.Status = entity.StatusSent
	if err := c.repo.UpdateMessage(ctx, msg); err != nil {
		log.Error("mark message sent", sl.Err(err))
	}

	convo.LastMessage = entity.LastMessage{
		Excerpt: excerpt(msg.Content, excerptLimit),
		Sender:  entity.SenderSeller,
		At:      msg.Timestamp,
	}
	if err := c.repo.UpdateConversation(ctx, convo); err != nil {
		log.Error("update conversation summary", sl.Err(err))
	}
	c.emitter.ConversationUpdated(tenant, entity.ConversationUpdatedEvent{
		Tenant:       tenant,
		Conversation: *convo,
	})
	return msg, nil
}
