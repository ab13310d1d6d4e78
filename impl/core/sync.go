package core

import (
	"context"
	"fmt"
	"log/slog"

	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

// alert threshold for repeated sync failures on one connection
const syncErrorAlertAfter = 3

// TriggerSync runs one sync pass for a (tenant, platform) connection.
// "not connected" and "already in progress" are outcomes on the report, not
// errors; errors are reserved for the store being unreachable.
func (c *Core) TriggerSync(ctx context.Context, tenant, platform string) (entity.SyncReport, error) {
	var report entity.SyncReport
	if c.repo == nil {
		return report, fmt.Errorf("repository not configured")
	}
	log := c.log.With(slog.String("tenant", tenant), slog.String("platform", platform))

	state, err := c.repo.FindSyncState(ctx, tenant, platform)
	if err != nil {
		return report, fmt.Errorf("load sync state: %w", err)
	}
	if state == nil || state.Status == entity.SyncDisconnected {
		report.Outcome = entity.SyncNotConnected
		return report, nil
	}

	acquired, err := c.repo.BeginSync(ctx, tenant, platform)
	if err != nil {
		return report, fmt.Errorf("begin sync: %w", err)
	}
	if !acquired {
		report.Outcome = entity.SyncAlreadyRunning
		return report, nil
	}

	cursor := state.Cursor
	var syncErr error
	defer func() {
		// the flag release must go through even when the trigger's context
		// died mid-sync
		rctx := context.WithoutCancel(ctx)
		if err := c.repo.FinishSync(rctx, tenant, platform, cursor, syncErr); err != nil {
			log.Error("release sync flag", sl.Err(err))
		}
		if syncErr != nil {
			c.alertOnRepeatedFailures(rctx, tenant, platform, log)
		}
	}()

	connector := c.connectors[platform]
	if connector == nil {
		syncErr = fmt.Errorf("no connector for platform %q", platform)
		report.Outcome = entity.SyncFailed
		report.Errors = append(report.Errors, syncErr.Error())
		return report, nil
	}

	page, nextCursor, hasMore, err := connector.SyncMessages(ctx, tenant, cursor)
	if err != nil {
		syncErr = fmt.Errorf("fetch page: %w", err)
		report.Outcome = entity.SyncFailed
		report.Errors = append(report.Errors, syncErr.Error())
		log.Error("sync page fetch", sl.Err(err))
		return report, nil
	}

	ingested, err := c.Ingest(ctx, tenant, platform, page)
	report.Processed = ingested.Processed
	report.NewMessages = ingested.NewMessages
	report.Duplicates = ingested.Duplicates
	report.Conversations = ingested.Conversations
	report.Errors = append(report.Errors, ingested.Errors...)
	if err != nil {
		syncErr = err
		report.Outcome = entity.SyncFailed
		return report, nil
	}

	cursor = nextCursor
	report.Outcome = entity.SyncCompleted
	report.HasMore = hasMore
	log.Info("sync completed",
		slog.Int("processed", report.Processed),
		slog.Int("new", report.NewMessages),
		slog.Int("duplicates", report.Duplicates),
		slog.Bool("has_more", hasMore))
	return report, nil
}

// GetSyncStatus returns the persisted connection state, defaulting to
// disconnected when the pair has never been seen.
func (c *Core) GetSyncStatus(ctx context.Context, tenant, platform string) (*entity.SyncState, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository not configured")
	}
	state, err := c.repo.FindSyncState(ctx, tenant, platform)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &entity.SyncState{
			Tenant:   tenant,
			Platform: platform,
			Status:   entity.SyncDisconnected,
		}, nil
	}
	return state, nil
}

// MarkConnected flips a (tenant, platform) pair to idle so syncs can run.
// Webhook traffic proves the connection, so handlers call this on first
// delivery; it is also exposed for explicit connects.
func (c *Core) MarkConnected(ctx context.Context, tenant, platform string) error {
	if c.repo == nil {
		return fmt.Errorf("repository not configured")
	}
	state, err := c.repo.FindSyncState(ctx, tenant, platform)
	if err != nil {
		return err
	}
	if state != nil && state.Status != entity.SyncDisconnected {
		return nil
	}
	if state == nil {
		state = &entity.SyncState{Tenant: tenant, Platform: platform}
	}
	state.Status = entity.SyncIdle
	return c.repo.UpsertSyncState(ctx, state)
}

// MarkDisconnected stops future syncs for the pair.
func (c *Core) MarkDisconnected(ctx context.Context, tenant, platform string) error {
	if c.repo == nil {
		return fmt.Errorf("repository not configured")
	}
	state, err := c.repo.FindSyncState(ctx, tenant, platform)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	state.Status = entity.SyncDisconnected
	return c.repo.UpsertSyncState(ctx, state)
}

func (c *Core) alertOnRepeatedFailures(ctx context.Context, tenant, platform string, log *slog.Logger) {
	state, err := c.repo.FindSyncState(ctx, tenant, platform)
	if err != nil || state == nil {
		return
	}
	if state.ConsecutiveErrors >= syncErrorAlertAfter {
		log.Error("sync failing repeatedly",
			slog.Int("consecutive_errors", state.ConsecutiveErrors),
			slog.String("last_error", state.LastError))
	}
}
