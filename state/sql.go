package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// stateRecord is a row of the conversation_states table created by the
// embedded migrations.
type stateRecord struct {
	Key       string    `gorm:"column:state_key;primaryKey;size:255"`
	ETag      string    `gorm:"column:etag;size:64;not null"`
	Data      []byte    `gorm:"column:data"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (stateRecord) TableName() string { return "conversation_states" }

// Transactor runs fn in a transaction. *database.PoolManager implements it
// with retries on transient failures.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SQLStorage stores state in a relational database through gorm.
type SQLStorage struct {
	db *gorm.DB
	tx Transactor
}

// SQLOption configures a SQLStorage.
type SQLOption func(*SQLStorage)

// WithTransactor routes write transactions through t.
func WithTransactor(t Transactor) SQLOption {
	return func(s *SQLStorage) { s.tx = t }
}

// NewSQLStorage creates a SQLStorage. The table must exist; see AutoMigrate
// and internal/migration.
func NewSQLStorage(db *gorm.DB, opts ...SQLOption) *SQLStorage {
	s := &SQLStorage{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLStorage) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.tx != nil {
		return s.tx.WithTransaction(ctx, fn)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

var _ Storage = (*SQLStorage)(nil)

// AutoMigrate creates the table with gorm's migrator. Production deployments
// use the versioned migrations instead.
func (s *SQLStorage) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&stateRecord{})
}

// Read implements Storage.
func (s *SQLStorage) Read(ctx context.Context, key string) (*Item, error) {
	var rec stateRecord
	err := s.db.WithContext(ctx).Where("state_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state %q: %w", key, err)
	}
	return &Item{Data: rec.Data, ETag: rec.ETag}, nil
}

// Write implements Storage.
func (s *SQLStorage) Write(ctx context.Context, key string, item *Item) (string, error) {
	etag := newETag()
	now := time.Now().UTC()

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var cur stateRecord
		err := tx.Where("state_key = ?", key).First(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&stateRecord{Key: key, ETag: etag, Data: item.Data, UpdatedAt: now}).Error
		}
		if err != nil {
			return err
		}
		if !etagAllows(cur.ETag, item.ETag) {
			return fmt.Errorf("%w: key %q", ErrETagConflict, key)
		}

		res := tx.Model(&stateRecord{}).
			Where("state_key = ? AND etag = ?", key, cur.ETag).
			Updates(map[string]any{"etag": etag, "data": item.Data, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: key %q changed during write", ErrETagConflict, key)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrETagConflict) {
			return "", err
		}
		return "", fmt.Errorf("write state %q: %w", key, err)
	}
	return etag, nil
}

// Delete implements Storage.
func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&stateRecord{}).Error; err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}
