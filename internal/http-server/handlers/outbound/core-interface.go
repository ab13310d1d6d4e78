package outbound

import (
	"context"

	"OrderPulse/entity"
	"OrderPulse/impl/core"
)

type Core interface {
	SendOutbound(ctx context.Context, tenant string, req core.OutboundRequest) (*entity.Message, error)
	RetryOutbound(ctx context.Context, tenant, messageID, recipientID string) (*entity.Message, error)
}
