// Package store persists feedback, web signals and briefs as three JSON
// collections on a key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Collection keys.
const (
	FeedbackKey = "voc_feedback_items"
	SignalsKey  = "voc_web_signals"
	BriefsKey   = "voc_product_briefs"
)

// ErrNotFound is returned by Get when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Record is anything stored in a collection.
type Record interface {
	FeedbackRecord | WebSignalRecord | Brief
	RecordID() string
}

// Collection is one newest-first JSON array stored under a single key.
// Every read-modify-write holds the collection's mutex.
type Collection[T Record] struct {
	mu  sync.Mutex
	kv  KV
	key string
}

// Store groups the three collections over one backend.
type Store struct {
	kv       KV
	Feedback *Collection[FeedbackRecord]
	Signals  *Collection[WebSignalRecord]
	Briefs   *Collection[Brief]
}

// New wraps a backend.
func New(kv KV) *Store {
	return &Store{
		kv:       kv,
		Feedback: &Collection[FeedbackRecord]{kv: kv, key: FeedbackKey},
		Signals:  &Collection[WebSignalRecord]{kv: kv, key: SignalsKey},
		Briefs:   &Collection[Brief]{kv: kv, key: BriefsKey},
	}
}

// NewMemory returns a store backed by process memory.
func NewMemory() *Store {
	return New(NewMemoryKV())
}

// Options selects and configures a backend.
type Options struct {
	Driver        string // sqlite, redis, memory
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// Open creates a store for the configured driver.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		kv, err := OpenSQLite(filepath.Join(opts.DataDir, "vocintel.db"))
		if err != nil {
			return nil, err
		}
		return New(kv), nil
	case "redis":
		kv, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return New(kv), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", opts.Driver)
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Backend returns the underlying KV.
func (s *Store) Backend() KV {
	return s.kv
}

// ClearAll empties each collection in turn. A failure leaves earlier
// collections cleared.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.Feedback.Clear(ctx); err != nil {
		return err
	}
	if err := s.Signals.Clear(ctx); err != nil {
		return err
	}
	return s.Briefs.Clear(ctx)
}

// Key returns the backend key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// List returns the collection newest-first, or an empty slice when it has
// never been written.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Append prepends rec and persists the collection.
func (c *Collection[T]) Append(ctx context.Context, rec T) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	items = append([]T{rec}, items...)
	if err := c.save(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteByID removes the first record with the given id. When none matches
// nothing is written.
func (c *Collection[T]) DeleteByID(ctx context.Context, id string) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if item.RecordID() == id {
			items = append(items[:i:i], items[i+1:]...)
			if err := c.save(ctx, items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return items, nil
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	items, err := c.List(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	for _, item := range items {
		if item.RecordID() == id {
			return item, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %s: %w", c.key, id, ErrNotFound)
}

// Replace overwrites the whole collection with items, which must already be
// newest-first.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	return c.save(ctx, items)
}

// Clear removes the collection.
func (c *Collection[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Delete(ctx, c.key)
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	items := []T{}
	if !ok || len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.key, err)
	}
	return c.kv.Set(ctx, c.key, data)
}
