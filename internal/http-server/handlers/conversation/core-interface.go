package conversation

import (
	"context"

	"OrderPulse/entity"
)

type Core interface {
	Conversations(ctx context.Context, tenant string, limit, offset int) ([]entity.Conversation, error)
	MarkRead(ctx context.Context, tenant, conversationID string) error
}
