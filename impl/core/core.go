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
	"OrderPulse/internal/config"
	"OrderPulse/internal/events"
	"OrderPulse/internal/lib/sl"
)

// Repository is the store collaborator. Persistence details (Mongo) live
// behind it; the core only relies on its CRUD semantics and the
// compare-and-set contract of BeginSync.
type Repository interface {
	CheckApiKey(ctx context.Context, key string) (string, error)
	GenerateApiKey(ctx context.Context, tenant string) (string, error)

	FindConversation(ctx context.Context, tenant, platform, platformChatID string) (*entity.Conversation, error)
	GetConversation(ctx context.Context, id primitive.ObjectID) (*entity.Conversation, error)
	CreateConversation(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, error)
	UpdateConversation(ctx context.Context, conversation *entity.Conversation) error
	ListConversations(ctx context.Context, tenant string, limit, offset int) ([]entity.Conversation, error)
	MarkConversationRead(ctx context.Context, id primitive.ObjectID) error

	CreateMessage(ctx context.Context, message *entity.Message) (*entity.Message, error)
	UpdateMessage(ctx context.Context, message *entity.Message) error
	GetMessage(ctx context.Context, id primitive.ObjectID) (*entity.Message, error)
	FindMessageByPlatformID(ctx context.Context, platform, platformMsgID string) (*entity.Message, error)
	FindRecentMessages(ctx context.Context, conversationID primitive.ObjectID, limit int) ([]entity.Message, error)
	FindPendingAnalysis(ctx context.Context, limit, maxAttempts int) ([]entity.Message, error)

	FindSyncState(ctx context.Context, tenant, platform string) (*entity.SyncState, error)
	UpsertSyncState(ctx context.Context, state *entity.SyncState) error
	BeginSync(ctx context.Context, tenant, platform string) (bool, error)
	FinishSync(ctx context.Context, tenant, platform, cursor string, syncErr error) error
}

// Analyzer classifies one message, degrading internally instead of failing.
type Analyzer interface {
	Classify(ctx context.Context, req analyzer.Request) entity.AIAnalysis
	Available() bool
	CanProceed() bool
}

// Connector is one messaging platform's delivery capability set.
type Connector interface {
	Platform() string
	Send(ctx context.Context, tenant, recipientID, text string) (string, error)
	Health(ctx context.Context) error
	SyncMessages(ctx context.Context, tenant, cursor string) ([]entity.InboundMessage, string, bool, error)
}

const (
	dedupCacheTTL     = 10 * time.Minute
	dedupCacheSweep   = 30 * time.Minute
	excerptLimit      = 120
	sweepConcurrency  = 4
	listConversations = 50
)

// Core wires ingestion, sync orchestration and outbound delivery together.
// One instance lives for the whole process.
type Core struct {
	repo       Repository
	an         Analyzer
	emitter    events.Emitter
	connectors map[string]Connector

	// hot dedup cache in front of the store exists-check
	seen *cache.Cache

	orderConfidence float64
	contextMessages int
	sweepBatch      int
	sweepAttempts   int

	authKey   string
	log       *slog.Logger
	sweepStop chan struct{}
}

func New(conf *config.Config, log *slog.Logger) *Core {
	return &Core{
		connectors:      make(map[string]Connector),
		seen:            cache.New(dedupCacheTTL, dedupCacheSweep),
		emitter:         events.Noop{},
		orderConfidence: conf.Analyzer.OrderConfidence,
		contextMessages: conf.Analyzer.ContextMessages,
		sweepBatch:      conf.Sweep.BatchSize,
		sweepAttempts:   conf.Sweep.MaxAttempts,
		log:             log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetAnalyzer(an Analyzer) {
	c.an = an
}

func (c *Core) SetEmitter(emitter events.Emitter) {
	if emitter != nil {
		c.emitter = emitter
	}
}

func (c *Core) SetConnector(connector Connector) {
	c.connectors[connector.Platform()] = connector
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

// Init creates store indexes. Call once after the setters.
func (c *Core) Init(ctx context.Context) {
	type indexer interface {
		EnsureConversationIndexes(ctx context.Context) error
		EnsureMessageIndexes(ctx context.Context) error
		EnsureSyncStateIndexes(ctx context.Context) error
	}
	if ix, ok := c.repo.(indexer); ok {
		if err := ix.EnsureConversationIndexes(ctx); err != nil {
			c.log.Error("ensure conversation indexes", sl.Err(err))
		}
		if err := ix.EnsureMessageIndexes(ctx); err != nil {
			c.log.Error("ensure message indexes", sl.Err(err))
		}
		if err := ix.EnsureSyncStateIndexes(ctx); err != nil {
			c.log.Error("ensure sync state indexes", sl.Err(err))
		}
	}
}

// AuthenticateByToken resolves an API key to its principal. The configured
// service key authenticates as the admin tenant; every other key is looked
// up in the store.
func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.UserAuth, error) {
	if c.authKey != "" && token == c.authKey {
		return &entity.UserAuth{Username: "service", Tenant: "service", Role: "admin"}, nil
	}
	if c.repo == nil {
		return nil, fmt.Errorf("repository not configured")
	}
	tenant, err := c.repo.CheckApiKey(ctx, token)
	if err != nil {
		return nil, err
	}
	return &entity.UserAuth{Username: tenant, Tenant: tenant, Role: "seller"}, nil
}

// TenantFromToken is the websocket variant of AuthenticateByToken.
func (c *Core) TenantFromToken(ctx context.Context, token string) (string, error) {
	user, err := c.AuthenticateByToken(ctx, token)
	if err != nil {
		return "", err
	}
	return user.Tenant, nil
}

func (c *Core) GenerateApiKey(ctx context.Context, tenant string) (string, error) {
	if c.repo == nil {
		return "", fmt.Errorf("repository not configured")
	}
	return c.repo.GenerateApiKey(ctx, tenant)
}

// Classify exposes the analyzer to the API layer.
func (c *Core) Classify(ctx context.Context, tenant, content string, contextLines []string) entity.AIAnalysis {
	return c.an.Classify(ctx, analyzer.Request{
		Tenant:  tenant,
		Content: content,
		Context: contextLines,
	})
}

// Conversations lists a tenant's threads for the inbox UI.
func (c *Core) Conversations(ctx context.Context, tenant string, limit, offset int) ([]entity.Conversation, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("repository not configured")
	}
	if limit <= 0 {
		limit = listConversations
	}
	return c.repo.ListConversations(ctx, tenant, limit, offset)
}

// MarkRead clears the unread counter for one conversation.
func (c *Core) MarkRead(ctx context.Context, tenant, conversationID string) error {
	if c.repo == nil {
		return fmt.Errorf("repository not configured")
	}
	id, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return fmt.Errorf("bad conversation id: %w", err)
	}
	convo, err := c.repo.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if convo == nil || convo.Tenant != tenant {
		return fmt.Errorf("conversation not found")
	}
	return c.repo.MarkConversationRead(ctx, id)
}

func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
