package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/logger"
)

// Cache stores ephemeral health and metric snapshots. It is never required
// for correctness of the session state machine.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// New creates a cache backed by the configured redis instance
func New(cfg *config.Redis, log *logger.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{
		rdb: rdb,
		ttl: time.Duration(cfg.TTLSeconds) * time.Second,
		log: log.Named("database"),
	}
}

// SetJSON stores v as JSON under key with the configured expiry
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data for key %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Error("Error writing data to redis for key %s: %v", key, err)
		return err
	}
	return nil
}

// GetJSON fetches key into v. Returns false when the key does not exist.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		c.log.Error("Error fetching data from redis for key %s: %v", key, err)
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal data for key %s: %w", key, err)
	}
	return true, nil
}

// Delete removes keys from the cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("Error deleting redis keys %v: %v", keys, err)
		return err
	}
	return nil
}

// MergeJSON merges entries into the JSON object map stored at key. Existing
// entries for other sub-keys are preserved. Used for the per-ASN enum
// summaries reported by agents.
func (c *Cache) MergeJSON(ctx context.Context, key string, entries map[string]json.RawMessage) error {
	current := make(map[string]json.RawMessage)
	if _, err := c.GetJSON(ctx, key, &current); err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = v
	}
	return c.SetJSON(ctx, key, current)
}

// Close releases the redis connection
func (c *Cache) Close() error {
	return c.rdb.Close()
}
