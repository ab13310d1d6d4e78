package core

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"OrderPulse/ai/analyzer"
	"OrderPulse/entity"
	"OrderPulse/internal/lib/sl"
)

// SweepPendingAnalysis re-drives messages whose classification fell back
// while the provider was down. Each message gets another provider attempt;
// success overwrites the fallback analysis, failure just burns one attempt.
// Returns how many messages got a final analysis.
func (c *Core) SweepPendingAnalysis(ctx context.Context) (int, error) {
	if c.repo == nil || c.an == nil {
		return 0, nil
	}
	if !c.an.CanProceed() {
		// provider is rate limited or the breaker is open, try next tick
		return 0, nil
	}

	pending, err := c.repo.FindPendingAnalysis(ctx, c.sweepBatch, c.sweepAttempts)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	resolved := make(chan struct{}, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, msg := range pending {
		msg := msg
		g.Go(func() error {
			if c.resweep(ctx, &msg) {
				resolved <- struct{}{}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(resolved)

	count := len(resolved)
	if count > 0 {
		c.log.Info("pending analysis sweep",
			slog.Int("picked_up", len(pending)),
			slog.Int("resolved", count))
	}
	return count, nil
}

func (c *Core) resweep(ctx context.Context, msg *entity.Message) bool {
	prevAttempts := 0
	if msg.Analysis != nil {
		prevAttempts = msg.Analysis.Attempts
	}

	var contextLines []string
	if c.contextMessages > 0 {
		recent, err := c.repo.FindRecentMessages(ctx, msg.ConversationID, c.contextMessages+1)
		if err == nil {
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
	}

	result := c.an.Classify(ctx, analyzer.Request{
		Tenant:  msg.Tenant,
		Content: msg.Content,
		Context: contextLines,
	})
	result.Attempts = prevAttempts + 1
	msg.Analysis = &result

	if err := c.repo.UpdateMessage(ctx, msg); err != nil {
		c.log.Error("persist swept analysis", sl.Err(err), slog.String("message", msg.ID.Hex()))
		return false
	}
	return !result.PendingAnalysis
}

// StartSweeper runs SweepPendingAnalysis on a fixed interval until Close.
func (c *Core) StartSweeper(interval time.Duration) {
	if c.sweepStop != nil {
		return
	}
	c.sweepStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := c.SweepPendingAnalysis(context.Background()); err != nil {
					c.log.Error("pending analysis sweep", sl.Err(err))
				}
			case <-c.sweepStop:
				return
			}
		}
	}()
	c.log.Info("pending analysis sweeper started", slog.Duration("interval", interval))
}

// Close stops background work owned by the core.
func (c *Core) Close() {
	if c.sweepStop != nil {
		close(c.sweepStop)
		c.sweepStop = nil
	}
}
