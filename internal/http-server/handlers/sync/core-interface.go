package sync

import (
	"context"
	"time"

	"OrderPulse/entity"
)

type Core interface {
	TriggerSync(ctx context.Context, tenant, platform string) (entity.SyncReport, error)
	GetSyncStatus(ctx context.Context, tenant, platform string) (*entity.SyncState, error)
}

// Scheduler manages the periodic sync timers.
type Scheduler interface {
	Schedule(tenant, platform string, interval time.Duration)
	Cancel(tenant, platform string)
}
