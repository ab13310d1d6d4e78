package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"OrderPulse/ai/patterns"
	"OrderPulse/entity"
	"OrderPulse/internal/config"
	"OrderPulse/internal/lib/sl"
)

// Weights blending provider and pattern confidence. Agreement between the two
// signals is rewarded without letting either dominate.
const (
	providerWeight = 0.7
	patternWeight  = 0.3

	// pattern score strong enough to force the order flag on its own
	patternOverrideConfidence = 0.8
)

// Completer is the slice of the OpenAI client the analyzer needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request is one classification job.
type Request struct {
	Tenant  string
	Content string
	Context []string // up to N recent messages, oldest first
}

// Analyzer wraps the AI provider with a sliding-window rate limiter, a
// circuit breaker and the offline pattern classifier as fallback. It must be
// a long-lived singleton: the limiter window and breaker counters are
// per-instance state and are ineffective if rebuilt per request.
type Analyzer struct {
	client    Completer
	model     string
	timeout   time.Duration
	available bool

	limiter  *SlidingWindow
	breaker  *Breaker
	patterns *patterns.Classifier

	log *slog.Logger
}

func New(conf *config.Config, classifier *patterns.Classifier, logger *slog.Logger) *Analyzer {
	a := &Analyzer{
		model:     conf.OpenAI.Model,
		timeout:   time.Duration(conf.OpenAI.TimeoutSeconds) * time.Second,
		available: conf.OpenAI.ApiKey != "",
		limiter:   NewSlidingWindow(conf.Analyzer.RequestsPerWindow, time.Duration(conf.Analyzer.WindowSeconds)*time.Second),
		breaker:   NewBreaker(conf.Analyzer.FailureThreshold, time.Duration(conf.Analyzer.CooldownSeconds)*time.Second, conf.Analyzer.HalfOpenProbes, conf.Analyzer.SuccessToClose),
		patterns:  classifier,
		log:       logger.With(sl.Module("analyzer")),
	}
	if a.available {
		a.client = openai.NewClient(conf.OpenAI.ApiKey)
	}
	return a
}

// SetClient replaces the provider client. Reserved for tests.
func (a *Analyzer) SetClient(client Completer) {
	a.client = client
	a.available = client != nil
}

// Available reports whether the provider path is configured at all. False
// means missing credentials, permanent for the process lifetime.
func (a *Analyzer) Available() bool {
	return a.available
}

// CanProceed reports whether a provider call would be attempted right now.
// It does not consume limiter budget.
func (a *Analyzer) CanProceed() bool {
	return a.available && a.breaker.State() != StateOpen && a.limiter.Remaining() > 0
}

// Classify produces a classification for one message. It never returns an
// error: every provider failure degrades to the pattern classifier's output
// with a reason code, and transient failures are flagged pending for the
// retry sweep.
func (a *Analyzer) Classify(ctx context.Context, req Request) entity.AIAnalysis {
	pattern := a.patterns.Classify(req.Content)

	if !a.available {
		return a.degraded(pattern, entity.FallbackNoCredentials, false)
	}
	// Limiter first: half-open probes are a bounded quota and must only be
	// spent on calls that actually go out.
	if !a.limiter.Allow() {
		a.log.Debug("rate limit exhausted, falling back", slog.String("tenant", req.Tenant))
		return a.degraded(pattern, entity.FallbackRateLimited, true)
	}
	if !a.breaker.Allow() {
		a.log.Debug("circuit open, falling back", slog.String("tenant", req.Tenant))
		return a.degraded(pattern, entity.FallbackCircuitOpen, true)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req.Content, req.Context)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.breaker.RecordFailure()
		reason := classifyProviderError(ctx, err)
		a.log.With(
			slog.String("tenant", req.Tenant),
			slog.String("reason", reason),
		).Warn("provider call failed", sl.Err(err))
		return a.degraded(pattern, reason, true)
	}

	if len(resp.Choices) == 0 {
		a.breaker.RecordFailure()
		return a.degraded(pattern, entity.FallbackBadResponse, true)
	}

	provider, err := parseProviderResponse(resp.Choices[0].Message.Content)
	if err != nil {
		a.breaker.RecordFailure()
		a.log.With(slog.String("tenant", req.Tenant)).Warn("unparseable provider response", sl.Err(err))
		return a.degraded(pattern, entity.FallbackBadResponse, true)
	}

	a.breaker.RecordSuccess()
	return blend(provider, pattern)
}

// degraded builds a pattern-only result carrying the reason the provider was
// skipped. Transient reasons are marked pending for the retry sweep; missing
// credentials are not.
func (a *Analyzer) degraded(pattern patterns.Result, reason string, pending bool) entity.AIAnalysis {
	return entity.AIAnalysis{
		OrderDetected:    pattern.OrderDetected,
		Confidence:       pattern.Confidence,
		Intent:           pattern.Intent,
		Order:            pattern.Order,
		SuggestedReplies: pattern.SuggestedReplies,
		Source:           entity.SourcePattern,
		FallbackReason:   reason,
		PendingAnalysis:  pending,
		AnalyzedAt:       time.Now(),
	}
}

// blend merges the provider result with the pattern signal.
func blend(provider *providerResult, pattern patterns.Result) entity.AIAnalysis {
	confidence := providerWeight*provider.Confidence + patternWeight*pattern.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	orderDetected := provider.OrderDetected
	if !orderDetected && pattern.OrderDetected && pattern.Confidence >= patternOverrideConfidence {
		orderDetected = true
	}

	intent := provider.Intent
	if !validIntent(intent) {
		intent = pattern.Intent
	}

	order := mergeOrder(provider, pattern.Order)

	replies := provider.SuggestedReplies
	if len(replies) == 0 {
		replies = pattern.SuggestedReplies
	}

	return entity.AIAnalysis{
		OrderDetected:    orderDetected,
		Confidence:       confidence,
		Intent:           intent,
		Order:            order,
		SuggestedReplies: replies,
		Source:           entity.SourceProvider,
		AnalyzedAt:       time.Now(),
	}
}

// mergeOrder prefers provider fields, falling back per-field to the pattern
// extraction.
func mergeOrder(provider *providerResult, pattern *entity.ExtractedOrder) *entity.ExtractedOrder {
	merged := entity.ExtractedOrder{
		Product:         provider.Product,
		Quantity:        provider.Quantity,
		Price:           provider.Price,
		DeliveryAddress: provider.DeliveryAddress,
		Contact:         provider.Contact,
		Notes:           provider.Notes,
	}
	if pattern != nil {
		if merged.Quantity == 0 {
			merged.Quantity = pattern.Quantity
		}
		if merged.Price == 0 {
			merged.Price = pattern.Price
		}
		if merged.DeliveryAddress == "" {
			merged.DeliveryAddress = pattern.DeliveryAddress
		}
		if merged.Contact == "" {
			merged.Contact = pattern.Contact
		}
	}
	if merged == (entity.ExtractedOrder{}) {
		return nil
	}
	return &merged
}

// classifyProviderError maps provider failures to the fallback reason
// taxonomy. A deadline hit on the caller's context is a processing timeout,
// one on our per-call budget is a provider timeout.
func classifyProviderError(parent context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		if parent.Err() != nil {
			return entity.FallbackProcessingTimeout
		}
		return entity.FallbackTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return entity.FallbackQuota
		case apiErr.HTTPStatusCode >= 500:
			return entity.FallbackUnavailable
		}
	}
	return entity.FallbackUnavailable
}
