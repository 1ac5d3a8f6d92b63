package state

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/google/uuid"
)

// 存储错误.
var (
	ErrNotFound            = errors.New("state: not found")
	ErrETagConflict        = errors.New("state: etag conflict")
	ErrMissingConversation = errors.New("state: activity has no conversation")
)

// AnyETag 表示无条件写入.
const AnyETag = "*"

// Item is a stored state blob with its e-tag.
type Item struct {
	Data []byte
	ETag string
}

// Storage is a key-value store with optimistic concurrency.
type Storage interface {
	// Read returns ErrNotFound when the key is absent.
	Read(ctx context.Context, key string) (*Item, error)
	// Write stores item under key and returns the new e-tag.
	Write(ctx context.Context, key string, item *Item) (string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// etagAllows reports whether a write carrying incoming may replace an item stored with stored.
func etagAllows(stored, incoming string) bool {
	return incoming == "" || incoming == AnyETag || incoming == stored
}

func newETag() string {
	return uuid.New().String()
}

// =============================================================================
// 📊 带指标的存储装饰器
// =============================================================================

type instrumented struct {
	next    Storage
	backend string
	metrics *metrics.Collector
}

// Instrument wraps s so every operation is timed under backend.
func Instrument(s Storage, backend string, c *metrics.Collector) Storage {
	if c == nil {
		return s
	}
	return &instrumented{next: s, backend: backend, metrics: c}
}

func (i *instrumented) Read(ctx context.Context, key string) (*Item, error) {
	start := time.Now()
	defer func() { i.metrics.RecordStateOperation(i.backend, "read", time.Since(start)) }()
	return i.next.Read(ctx, key)
}

func (i *instrumented) Write(ctx context.Context, key string, item *Item) (string, error) {
	start := time.Now()
	defer func() { i.metrics.RecordStateOperation(i.backend, "write", time.Since(start)) }()
	return i.next.Write(ctx, key, item)
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer func() { i.metrics.RecordStateOperation(i.backend, "delete", time.Since(start)) }()
	return i.next.Delete(ctx, key)
}
