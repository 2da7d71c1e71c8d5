package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCursor indicates no checkpoint is stored for the key.
var ErrNoCursor = errors.New("no cursor stored")

// DefaultCursorTTL bounds how long an abandoned checkpoint is kept.
const DefaultCursorTTL = 7 * 24 * time.Hour

// cursorKeyPrefix namespaces checkpoint keys in Redis.
const cursorKeyPrefix = "congress:cursor:"

// CursorStore persists the next-page link of an interrupted traversal.
type CursorStore interface {
	// Load returns the stored cursor or ErrNoCursor.
	Load(ctx context.Context, key string) (string, error)
	// Save stores the cursor, replacing any previous one.
	Save(ctx context.Context, key, cursor string) error
	// Clear removes the cursor. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}

// RedisCursorStore keeps checkpoints in Redis with a TTL.
type RedisCursorStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCursorStore creates a Redis-backed cursor store.
// A non-positive ttl falls back to DefaultCursorTTL.
func NewRedisCursorStore(redisClient *redis.Client, ttl time.Duration) *RedisCursorStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultCursorTTL
	}
	return &RedisCursorStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Load retrieves the cursor for key.
func (s *RedisCursorStore) Load(ctx context.Context, key string) (string, error) {
	cursor, err := s.redis.Get(ctx, cursorKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoCursor
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return cursor, nil
}

// Save stores the cursor for key and refreshes its TTL.
func (s *RedisCursorStore) Save(ctx context.Context, key, cursor string) error {
	if cursor == "" {
		return fmt.Errorf("cursor cannot be empty")
	}
	if err := s.redis.Set(ctx, cursorKey(key), cursor, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear deletes the cursor for key.
func (s *RedisCursorStore) Clear(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, cursorKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func cursorKey(key string) string {
	return cursorKeyPrefix + key
}

// MemoryCursorStore keeps checkpoints in process memory. Safe for concurrent use.
type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

// NewMemoryCursorStore creates an empty in-memory cursor store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

// Load retrieves the cursor for key.
func (s *MemoryCursorStore) Load(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.cursors[key]
	if !ok {
		return "", ErrNoCursor
	}
	return cursor, nil
}

// Save stores the cursor for key.
func (s *MemoryCursorStore) Save(_ context.Context, key, cursor string) error {
	if cursor == "" {
		return fmt.Errorf("cursor cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = cursor
	return nil
}

// Clear deletes the cursor for key.
func (s *MemoryCursorStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, key)
	return nil
}
