package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/tarang-screening-server/internal/domain"
)

// CacheClient is a two-tier cache for classifier probabilities: an in-process
// LRU in front of an optional Redis instance shared between replicas.
type CacheClient struct {
	local      *expirable.LRU[string, float64]
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client. An empty RedisURL keeps the
// cache process-local.
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 24 * time.Hour
	}
	if config.LocalSize <= 0 {
		config.LocalSize = 1024
	}

	c := &CacheClient{
		local:      expirable.NewLRU[string, float64](config.LocalSize, nil, config.DefaultTTL),
		defaultTTL: config.DefaultTTL,
	}
	if config.RedisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.redis = client
	return c, nil
}

// cachedProbability is the Redis payload.
type cachedProbability struct {
	Probability float64   `json:"probability"`
	CachedAt    time.Time `json:"cached_at"`
}

// GetProbability returns a cached probability. Redis hits are promoted to
// the local tier.
func (c *CacheClient) GetProbability(ctx context.Context, key string) (float64, bool, error) {
	if p, ok := c.local.Get(key); ok {
		return p, true, nil
	}
	if c.redis == nil {
		return 0, false, nil
	}

	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get probability cache: %w", err)
	}

	var cached cachedProbability
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return 0, false, nil
	}

	c.local.Add(key, cached.Probability)
	return cached.Probability, true, nil
}

// SetProbability stores a probability in both tiers.
func (c *CacheClient) SetProbability(ctx context.Context, key string, p float64) error {
	c.local.Add(key, p)
	if c.redis == nil {
		return nil
	}

	data, err := json.Marshal(cachedProbability{Probability: p, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal probability: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.defaultTTL).Err()
}

// Purge empties the local tier. Redis entries expire on their own TTL.
func (c *CacheClient) Purge() {
	c.local.Purge()
}

// Ping checks if the Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// FeatureKey hashes the feature map in column-name order so that equal
// inputs share a cache entry regardless of map iteration order.
func FeatureKey(features domain.Features) string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(features[name], 'g', -1, 64))
		b.WriteByte(';')
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("classifier:aq10:%x", hash[:16])
}
