// Package cache puts an optional Redis-backed query cache in front of
// searches. Concurrent misses for the same key are computed once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/services"
)

const keyPrefix = "docsearch:search:"

// QueryCache caches search results per index. A QueryCache without a store
// is disabled: every call computes.
type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	prom   *metrics.Metrics
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64

	// gens counts the invalidations of each index. A result computed before
	// an invalidation is not stored.
	genMu sync.RWMutex
	gens  map[string]uint64
}

// New wraps store. A nil store yields a disabled cache. prom may be nil.
func New(store Store, ttl time.Duration, prom *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		prom:   prom,
		logger: logger.WithComponent("query-cache"),
		gens:   make(map[string]uint64),
	}
}

// Open connects to Redis as configured. An empty address or an unreachable
// server disables the cache with a warning instead of failing.
func Open(ctx context.Context, cfg config.RedisConfig, prom *metrics.Metrics) *QueryCache {
	log := logger.WithComponent("query-cache")
	if cfg.Addr == "" {
		log.Warn("redis address not configured, query cache disabled")
		return New(nil, cfg.CacheTTL, prom)
	}
	store, err := NewRedisStore(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable, query cache disabled", "addr", cfg.Addr, "error", err)
		return New(nil, cfg.CacheTTL, prom)
	}
	log.Info("query cache enabled", "addr", cfg.Addr, "ttl", cfg.CacheTTL)
	return New(store, cfg.CacheTTL, prom)
}

// Enabled reports whether results are cached.
func (c *QueryCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get returns the cached result for query against index.
func (c *QueryCache) Get(ctx context.Context, index string, query services.SearchQuery) (*services.SearchResult, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := BuildKey(index, query)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var result services.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "index", index, "query", query.QueryString, "key", key)
	return &result, true
}

// Set stores result for query against index.
func (c *QueryCache) Set(ctx context.Context, index string, query services.SearchQuery, result *services.SearchResult) {
	if !c.Enabled() {
		return
	}
	key := BuildKey(index, query)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once per key,
// caching its result. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	index string,
	query services.SearchQuery,
	computeFn func() (*services.SearchResult, error),
) (*services.SearchResult, bool, error) {
	if !c.Enabled() {
		result, err := computeFn()
		return result, false, err
	}
	if result, ok := c.Get(ctx, index, query); ok {
		return result, true, nil
	}
	gen := c.generation(index)
	key := BuildKey(index, query)
	val, err, _ := c.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(ctx, index, gen, query, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*services.SearchResult), false, nil
}

// Invalidate drops every cached result of index. Searches still running
// against the old index no longer store their results.
func (c *QueryCache) Invalidate(ctx context.Context, index string) error {
	if !c.Enabled() {
		return nil
	}
	c.genMu.Lock()
	c.gens[index]++
	c.genMu.Unlock()

	deleted, err := c.store.DeletePrefix(ctx, indexPrefix(index))
	if err != nil {
		return fmt.Errorf("invalidating cache for index %s: %w", index, err)
	}
	c.logger.Info("cache invalidate", "index", index, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) generation(index string) uint64 {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	return c.gens[index]
}

// setIfCurrent stores result unless index was invalidated after gen was read.
// The read lock is held across the write so that Invalidate's delete comes
// after it.
func (c *QueryCache) setIfCurrent(ctx context.Context, index string, gen uint64, query services.SearchQuery, result *services.SearchResult) {
	c.genMu.RLock()
	defer c.genMu.RUnlock()
	if c.gens[index] != gen {
		c.logger.Debug("index changed during search, result not cached", "index", index)
		return
	}
	c.Set(ctx, index, query, result)
}

// Stats returns the hit and miss counts since creation.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the backing store.
func (c *QueryCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.store.Close()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.prom != nil {
		c.prom.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.prom != nil {
		c.prom.CacheMissesTotal.Inc()
	}
}

// BuildKey returns the cache key of query against index. Queries that differ
// only in letter case or spacing share a key.
func BuildKey(index string, query services.SearchQuery) string {
	query.QueryString = NormalizeQuery(query.QueryString)
	raw, err := json.Marshal(query)
	if err != nil {
		raw = []byte(query.QueryString)
	}
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s%x", indexPrefix(index), hash[:16])
}

func indexPrefix(index string) string {
	return keyPrefix + index + ":"
}

// NormalizeQuery lower-cases the query and collapses runs of whitespace.
// Word order is kept since it shows in the result terms.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
