package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/turn"
	"go.uber.org/zap"
)

// ConversationState 会话级属性包。
//
// 单个会话同一时刻只有一个写者；不同会话之间互不共享可变状态。
type ConversationState struct {
	storage Storage
	backend string
	metrics *metrics.Collector
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[string]*cachedState
}

type cachedState struct {
	props    map[string]json.RawMessage
	etag     string
	snapshot []byte
}

// Option configures a ConversationState.
type Option func(*ConversationState)

// WithBackendName labels metrics with the backend name. Default "memory".
func WithBackendName(name string) Option {
	return func(s *ConversationState) { s.backend = name }
}

// WithMetrics records flushes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *ConversationState) { s.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *ConversationState) { s.logger = l }
}

// NewConversationState creates a ConversationState over storage.
func NewConversationState(storage Storage, opts ...Option) *ConversationState {
	s := &ConversationState{
		storage: storage,
		backend: "memory",
		logger:  zap.NewNop(),
		cache:   make(map[string]*cachedState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "conversation_state"))
	return s
}

// Key returns the storage key for the conversation of tc.
func (s *ConversationState) Key(tc turn.Context) (string, error) {
	if tc == nil {
		return "", ErrMissingConversation
	}
	act := tc.Activity()
	if act == nil || act.Conversation == nil || act.Conversation.ID == "" {
		return "", ErrMissingConversation
	}
	channel := act.ChannelID
	if channel == "" {
		channel = "default"
	}
	return channel + "/conversations/" + act.Conversation.ID, nil
}

// Load reads the conversation's properties into the cache. Without force an
// already loaded conversation is not read again.
func (s *ConversationState) Load(ctx context.Context, tc turn.Context, force bool) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	_, err = s.load(ctx, key, force)
	return err
}

func (s *ConversationState) load(ctx context.Context, key string, force bool) (*cachedState, error) {
	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok && !force {
		return cached, nil
	}

	cached = &cachedState{props: map[string]json.RawMessage{}}
	item, err := s.storage.Read(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load conversation state: %w", err)
	default:
		if len(item.Data) > 0 {
			if err := json.Unmarshal(item.Data, &cached.props); err != nil {
				return nil, fmt.Errorf("decode conversation state %q: %w", key, err)
			}
		}
		cached.etag = item.ETag
		cached.snapshot = item.Data
	}

	s.mu.Lock()
	s.cache[key] = cached
	s.mu.Unlock()
	return cached, nil
}

// Get decodes property name into out. It reports false when the property is unset.
func (s *ConversationState) Get(ctx context.Context, tc turn.Context, name string, out any) (bool, error) {
	key, err := s.Key(tc)
	if err != nil {
		return false, err
	}
	cached, err := s.load(ctx, key, false)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	raw, ok := cached.props[name]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode property %q: %w", name, err)
	}
	return true, nil
}

// Set stores v under name in the cache. It is persisted by SaveChanges.
func (s *ConversationState) Set(ctx context.Context, tc turn.Context, name string, v any) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	cached, err := s.load(ctx, key, false)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode property %q: %w", name, err)
	}

	s.mu.Lock()
	cached.props[name] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes property name from the cache.
func (s *ConversationState) Delete(ctx context.Context, tc turn.Context, name string) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	cached, err := s.load(ctx, key, false)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(cached.props, name)
	s.mu.Unlock()
	return nil
}

// SaveChanges writes the cached properties when they changed or force is set.
// A forced write ignores the stored e-tag.
func (s *ConversationState) SaveChanges(ctx context.Context, tc turn.Context, force bool) (err error) {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	cached, err := s.load(ctx, key, false)
	if err != nil {
		return err
	}

	s.mu.Lock()
	data, err := json.Marshal(cached.props)
	etag := cached.etag
	unchanged := cached.snapshot != nil && bytes.Equal(data, cached.snapshot)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}
	if !force && (unchanged || (cached.snapshot == nil && len(cached.props) == 0)) {
		return nil
	}

	defer func() { s.metrics.RecordStateFlush(s.backend, err) }()

	if force {
		etag = AnyETag
	}
	written, err := s.storage.Write(ctx, key, &Item{Data: data, ETag: etag})
	if err != nil {
		s.logger.Warn("conversation state flush failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("save conversation state: %w", err)
	}

	s.mu.Lock()
	cached.etag = written
	cached.snapshot = data
	s.mu.Unlock()

	s.logger.Debug("conversation state flushed", zap.String("key", key), zap.Bool("force", force))
	return nil
}

// Clear drops every property of the conversation. The empty bag is persisted
// by the next SaveChanges.
func (s *ConversationState) Clear(ctx context.Context, tc turn.Context) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	cached, err := s.load(ctx, key, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	cached.props = map[string]json.RawMessage{}
	s.mu.Unlock()
	return nil
}

// Forget drops the conversation from the cache and leaves storage untouched.
// Callers forget a conversation once its engagement has ended and been saved;
// the next access reloads it from storage.
func (s *ConversationState) Forget(tc turn.Context) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// Len 返回缓存中的会话数
func (s *ConversationState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// DeleteState removes the conversation from storage and the cache.
func (s *ConversationState) DeleteState(ctx context.Context, tc turn.Context) error {
	key, err := s.Key(tc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return s.storage.Delete(ctx, key)
}
