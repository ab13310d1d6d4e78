package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OrderPulse/entity"
)

func connectedState(repo *fakeRepo, tenant, platform string) {
	_ = repo.UpsertSyncState(context.Background(), &entity.SyncState{
		Tenant:   tenant,
		Platform: platform,
		Status:   entity.SyncIdle,
	})
}

func TestTriggerSyncNotConnected(t *testing.T) {
	c, _, _ := newTestCore(&stubAnalyzer{})

	report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncNotConnected, report.Outcome)
}

func TestTriggerSyncCompletesAndAdvancesCursor(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{Intent: entity.IntentInquiry}})
	connectedState(repo, "tenant-a", entity.PlatformWhatsApp)

	c.SetConnector(&fakeConnector{
		platform: entity.PlatformWhatsApp,
		page: []entity.InboundMessage{
			inbound("m1", "chat-1", "hello", time.Now()),
			inbound("m2", "chat-1", "anyone there", time.Now().Add(time.Second)),
		},
		next:    "cursor-2",
		hasMore: true,
	})

	report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncCompleted, report.Outcome)
	assert.Equal(t, 2, report.NewMessages)
	assert.True(t, report.HasMore)

	state, err := c.GetSyncStatus(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncIdle, state.Status)
	assert.False(t, state.InProgress)
	assert.Equal(t, "cursor-2", state.Cursor)
	assert.Zero(t, state.ConsecutiveErrors)
}

func TestTriggerSyncMutualExclusion(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{result: entity.AIAnalysis{}})
	connectedState(repo, "tenant-a", entity.PlatformWhatsApp)

	c.SetConnector(&fakeConnector{
		platform:  entity.PlatformWhatsApp,
		page:      []entity.InboundMessage{inbound("m1", "chat-1", "hi", time.Now())},
		syncDelay: 200 * time.Millisecond,
	})

	const racers = 4
	outcomes := make(chan string, racers)
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformWhatsApp)
			if err != nil {
				errs <- err
				return
			}
			outcomes <- report.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	counts := map[string]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[entity.SyncCompleted], "exactly one racer may win")
	assert.Equal(t, racers-1, counts[entity.SyncAlreadyRunning])

	state, err := c.GetSyncStatus(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.False(t, state.InProgress, "flag must be released after the run")
}

func TestTriggerSyncFailureReleasesFlagAndCounts(t *testing.T) {
	c, repo, _ := newTestCore(&stubAnalyzer{})
	connectedState(repo, "tenant-a", entity.PlatformInstagram)

	c.SetConnector(&fakeConnector{
		platform: entity.PlatformInstagram,
		syncErr:  fmt.Errorf("graph api 500"),
	})

	for i := 1; i <= 2; i++ {
		report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformInstagram)
		require.NoError(t, err)
		assert.Equal(t, entity.SyncFailed, report.Outcome)

		state, err := c.GetSyncStatus(context.Background(), "tenant-a", entity.PlatformInstagram)
		require.NoError(t, err)
		assert.False(t, state.InProgress)
		assert.Equal(t, entity.SyncErrored, state.Status)
		assert.Equal(t, i, state.ConsecutiveErrors)
		assert.Contains(t, state.LastError, "graph api 500")
	}

	// an errored connection is still connected and can recover
	report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, report.Outcome)
}

func TestMarkConnectedAndDisconnected(t *testing.T) {
	c, _, _ := newTestCore(&stubAnalyzer{})

	require.NoError(t, c.MarkConnected(context.Background(), "tenant-a", entity.PlatformWhatsApp))
	state, err := c.GetSyncStatus(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncIdle, state.Status)

	// connecting twice keeps the existing state
	require.NoError(t, c.MarkConnected(context.Background(), "tenant-a", entity.PlatformWhatsApp))

	require.NoError(t, c.MarkDisconnected(context.Background(), "tenant-a", entity.PlatformWhatsApp))
	report, err := c.TriggerSync(context.Background(), "tenant-a", entity.PlatformWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncNotConnected, report.Outcome)
}
