package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"OrderPulse/ai/analyzer"
	"OrderPulse/entity"
	"OrderPulse/internal/config"
)

// fakeRepo is an in-memory Repository. BeginSync implements the same
// compare-and-set contract as the Mongo FindOneAndUpdate, guarded by the
// repo mutex, so concurrency tests exercise real mutual exclusion.
type fakeRepo struct {
	mu            sync.Mutex
	conversations map[primitive.ObjectID]entity.Conversation
	messages      map[primitive.ObjectID]entity.Message
	states        map[string]entity.SyncState
	keys          map[string]string

	failMessages bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		conversations: make(map[primitive.ObjectID]entity.Conversation),
		messages:      make(map[primitive.ObjectID]entity.Message),
		states:        make(map[string]entity.SyncState),
		keys:          make(map[string]string),
	}
}

func stateKey(tenant, platform string) string {
	return tenant + "|" + platform
}

func (r *fakeRepo) CheckApiKey(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.keys[key]
	if !ok {
		return "", fmt.Errorf("unknown api key")
	}
	return tenant, nil
}

func (r *fakeRepo) GenerateApiKey(_ context.Context, tenant string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := "key-" + tenant
	r.keys[key] = tenant
	return key, nil
}

func (r *fakeRepo) FindConversation(_ context.Context, tenant, platform, platformChatID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.Tenant == tenant && c.Platform == platform && c.PlatformChatID == platformChatID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetConversation(_ context.Context, id primitive.ObjectID) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (r *fakeRepo) CreateConversation(_ context.Context, c *entity.Conversation) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.conversations[c.ID] = *c
	return c, nil
}

func (r *fakeRepo) UpdateConversation(_ context.Context, c *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[c.ID]; !ok {
		return fmt.Errorf("conversation not found")
	}
	c.UpdatedAt = time.Now()
	r.conversations[c.ID] = *c
	return nil
}

func (r *fakeRepo) ListConversations(_ context.Context, tenant string, limit, offset int) ([]entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Conversation
	for _, c := range r.conversations {
		if c.Tenant == tenant {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.At.After(out[j].LastMessage.At)
	})
	return out, nil
}

func (r *fakeRepo) MarkConversationRead(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	c.Unread = 0
	r.conversations[id] = c
	return nil
}

func (r *fakeRepo) CreateMessage(_ context.Context, m *entity.Message) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMessages {
		return nil, fmt.Errorf("store unavailable")
	}
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now()
	r.messages[m.ID] = *m
	return m, nil
}

func (r *fakeRepo) UpdateMessage(_ context.Context, m *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[m.ID]; !ok {
		return fmt.Errorf("message not found")
	}
	r.messages[m.ID] = *m
	return nil
}

func (r *fakeRepo) GetMessage(_ context.Context, id primitive.ObjectID) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	out := m
	return &out, nil
}

func (r *fakeRepo) FindMessageByPlatformID(_ context.Context, platform, platformMsgID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMessages {
		return nil, fmt.Errorf("store unavailable")
	}
	for _, m := range r.messages {
		if m.Platform == platform && m.PlatformMsgID == platformMsgID {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindRecentMessages(_ context.Context, conversationID primitive.ObjectID, limit int) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeRepo) FindPendingAnalysis(_ context.Context, limit, maxAttempts int) ([]entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Message
	for _, m := range r.messages {
		if m.Analysis != nil && m.Analysis.PendingAnalysis && m.Analysis.Attempts < maxAttempts {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) FindSyncState(_ context.Context, tenant, platform string) (*entity.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[stateKey(tenant, platform)]
	if !ok {
		return nil, nil
	}
	out := s
	return &out, nil
}

func (r *fakeRepo) UpsertSyncState(_ context.Context, s *entity.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = time.Now()
	r.states[stateKey(s.Tenant, s.Platform)] = *s
	return nil
}

func (r *fakeRepo) BeginSync(_ context.Context, tenant, platform string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[stateKey(tenant, platform)]
	if !ok || s.InProgress {
		return false, nil
	}
	s.InProgress = true
	s.Status = entity.SyncSyncing
	r.states[stateKey(tenant, platform)] = s
	return true, nil
}

func (r *fakeRepo) FinishSync(_ context.Context, tenant, platform, cursor string, syncErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[stateKey(tenant, platform)]
	if !ok {
		return fmt.Errorf("sync state not found")
	}
	s.InProgress = false
	s.UpdatedAt = time.Now()
	if syncErr != nil {
		s.Status = entity.SyncErrored
		s.LastError = syncErr.Error()
		s.ConsecutiveErrors++
	} else {
		s.Status = entity.SyncIdle
		s.Cursor = cursor
		s.LastSyncAt = time.Now()
		s.LastError = ""
		s.ConsecutiveErrors = 0
	}
	r.states[stateKey(tenant, platform)] = s
	return nil
}

// fakeConnector is a scripted platform connector.
type fakeConnector struct {
	platform string

	mu        sync.Mutex
	sent      []string
	sendErr   error
	page      []entity.InboundMessage
	next      string
	hasMore   bool
	syncErr   error
	syncDelay time.Duration
	syncCalls int
}

func (f *fakeConnector) Platform() string { return f.platform }

func (f *fakeConnector) Send(_ context.Context, _, recipientID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, recipientID+":"+text)
	return fmt.Sprintf("wamid.%d", len(f.sent)), nil
}

func (f *fakeConnector) Health(context.Context) error { return nil }

func (f *fakeConnector) SyncMessages(_ context.Context, _, _ string) ([]entity.InboundMessage, string, bool, error) {
	f.mu.Lock()
	f.syncCalls++
	delay := f.syncDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if f.syncErr != nil {
		return nil, "", false, f.syncErr
	}
	return f.page, f.next, f.hasMore, nil
}

func (f *fakeConnector) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// recordingEmitter captures fan-out calls in order.
type recordingEmitter struct {
	mu       sync.Mutex
	messages []entity.NewMessageEvent
	orders   []entity.OrderDetectedEvent
	updates  []entity.ConversationUpdatedEvent
}

func (e *recordingEmitter) NewMessage(_ string, p entity.NewMessageEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, p)
}

func (e *recordingEmitter) OrderDetected(_ string, p entity.OrderDetectedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = append(e.orders, p)
}

func (e *recordingEmitter) ConversationUpdated(_ string, p entity.ConversationUpdatedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updates = append(e.updates, p)
}

// stubAnalyzer returns canned results without touching any provider. A
// non-empty queue is consumed one result per call before falling back to
// result.
type stubAnalyzer struct {
	mu         sync.Mutex
	result     entity.AIAnalysis
	queue      []entity.AIAnalysis
	blocked    bool
	classified int
}

func (s *stubAnalyzer) Classify(context.Context, analyzer.Request) entity.AIAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classified++
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next
	}
	return s.result
}

func (s *stubAnalyzer) Available() bool  { return true }
func (s *stubAnalyzer) CanProceed() bool { return !s.blocked }

func (s *stubAnalyzer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classified
}

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.Analyzer.OrderConfidence = 0.5
	conf.Analyzer.ContextMessages = 5
	conf.Analyzer.RequestsPerWindow = 15
	conf.Analyzer.WindowSeconds = 60
	conf.Analyzer.FailureThreshold = 5
	conf.Analyzer.CooldownSeconds = 30
	conf.Analyzer.HalfOpenProbes = 3
	conf.Analyzer.SuccessToClose = 2
	conf.Sweep.BatchSize = 20
	conf.Sweep.MaxAttempts = 3
	return conf
}

func newTestCore(an Analyzer) (*Core, *fakeRepo, *recordingEmitter) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(testConfig(), log)
	repo := newFakeRepo()
	emitter := &recordingEmitter{}
	c.SetRepository(repo)
	c.SetAnalyzer(an)
	c.SetEmitter(emitter)
	return c, repo, emitter
}
