package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix  = "gallery:snapshot"
	defaultSnapshotTTL = 24 * time.Hour
)

// SnapshotStore persists tier entries so a restarted process has something to serve
// while its first refresh is failing.
type SnapshotStore interface {
	// Load returns nil, nil when no snapshot exists.
	Load(ctx context.Context, tier string) (*Entry, error)
	Save(ctx context.Context, tier string, entry *Entry) error
	Close() error
}

// RedisSnapshotStore keeps one JSON snapshot per tier under gallery:snapshot:<tier>.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSnapshotStore struct{}

// NewSnapshotStore returns a Redis-backed store when caching is enabled, a no-op otherwise.
func NewSnapshotStore(cfg config.CacheConfig) (SnapshotStore, error) {
	if !cfg.Enabled {
		return &noopSnapshotStore{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.SnapshotTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}

	return NewRedisSnapshotStore(client, ttl), nil
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func NewNoopSnapshotStore() SnapshotStore {
	return &noopSnapshotStore{}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, tier string) (*Entry, error) {
	payload, err := s.client.Get(ctx, snapshotKey(tier)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", tier, err)
	}
	return &entry, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, tier string, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", tier, err)
	}

	if err := s.client.Set(ctx, snapshotKey(tier), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

func (n *noopSnapshotStore) Load(ctx context.Context, tier string) (*Entry, error) {
	return nil, nil
}

func (n *noopSnapshotStore) Save(ctx context.Context, tier string, entry *Entry) error {
	return nil
}

func (n *noopSnapshotStore) Close() error {
	return nil
}

func snapshotKey(tier string) string {
	return snapshotKeyPrefix + ":" + tier
}
