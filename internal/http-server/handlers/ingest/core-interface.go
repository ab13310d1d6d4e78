package ingest

import (
	"context"

	"OrderPulse/entity"
)

type Core interface {
	Ingest(ctx context.Context, tenant, platform string, batch []entity.InboundMessage) (entity.IngestReport, error)
}
