package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDocPrefix = "diagrid:doc:"
	redisDocSet    = "diagrid:docs"
)

// RedisConfig configures the Redis document store.
type RedisConfig struct {
	Addr     string // host:port
	Password string // empty for no auth
	DB       int
}

// RedisStore is a Redis-backed document store for multi-instance
// deployments. Documents are stored as JSON values under diagrid:doc:<id>
// with IDs tracked in a set for listing.
type RedisStore struct {
	client *redis.Client
}

// NewRedis creates a Redis document store and verifies connectivity. The
// initial ping is retried, so a server still starting up does not fail the
// store immediately.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	err := Retry(ctx, 3, 500*time.Millisecond, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return &RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Document, error) {
	data, err := s.client.Get(ctx, redisDocPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

func (s *RedisStore) Put(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisDocPrefix+doc.ID, data, 0)
	pipe.SAdd(ctx, redisDocSet, doc.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, redisDocPrefix+id)
	pipe.SRem(ctx, redisDocSet, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Document, error) {
	ids, err := s.client.SMembers(ctx, redisDocSet).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	out := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// ID set and value drifted apart; self-heal the set.
			_ = s.client.SRem(ctx, redisDocSet, id).Err()
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}
