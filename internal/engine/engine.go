// Package engine keeps the named search indexes a docsearch server serves,
// persists them and runs their builds in the background.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/diwan-editor/docsearch/internal/cache"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/indexing"
	"github.com/diwan-editor/docsearch/internal/jobs"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/internal/persistence"
)

// Engine manages multiple search indexes.
// It implements the services.IndexManager interface.
type Engine struct {
	mu         sync.RWMutex
	indexes    map[string]*IndexInstance
	storage    persistence.Storage
	jobManager *jobs.Manager
	cache      *cache.QueryCache
	metrics    *metrics.Metrics
	bulk       indexing.BulkIndexingConfig
	log        *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithStorage persists indexes in s. Without storage indexes live in memory
// only.
func WithStorage(s persistence.Storage) Option {
	return func(e *Engine) { e.storage = s }
}

// WithJobManager runs background builds on m instead of a private manager.
func WithJobManager(m *jobs.Manager) Option {
	return func(e *Engine) { e.jobManager = m }
}

// WithCache puts c in front of every search.
func WithCache(c *cache.QueryCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records searches and builds in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBulkConfig sets the worker and batch sizes used by builds.
func WithBulkConfig(cfg indexing.BulkIndexingConfig) Option {
	return func(e *Engine) { e.bulk = cfg }
}

// New creates an engine and loads every index found in its storage.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		indexes: make(map[string]*IndexInstance),
		bulk:    indexing.DefaultBulkIndexingConfig(),
		log:     logger.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.jobManager == nil {
		e.jobManager = jobs.NewManager(runtime.NumCPU(), jobs.WithPrometheus(e.metrics))
		e.jobManager.Start()
	}
	if e.cache == nil {
		e.cache = cache.New(nil, 0, e.metrics)
	}
	if err := e.loadIndexes(); err != nil {
		return nil, err
	}
	return e, nil
}

// Close stops background jobs and releases the cache and the storage.
func (e *Engine) Close() error {
	e.jobManager.Stop()
	var errs []string
	if err := e.cache.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if e.storage != nil {
		if err := e.storage.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing engine: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Jobs returns the manager running the engine's background jobs.
func (e *Engine) Jobs() *jobs.Manager {
	return e.jobManager
}

// ListIndexes returns the names of all loaded indexes in order.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateName rejects names that cannot be used as a storage key.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return internalErrors.NewValidationError("name", "index name cannot be empty")
	}
	if strings.TrimSpace(name) != name {
		return internalErrors.NewValidationError("name", "index name cannot have leading or trailing whitespace")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return internalErrors.NewValidationError("name", fmt.Sprintf("index name '%s' cannot contain path separators", name))
	}
	return nil
}

// invalidate drops cached results of name. Failures only cost stale hits
// until the TTL expires, so they are logged.
func (e *Engine) invalidate(ctx context.Context, name string) {
	if err := e.cache.Invalidate(ctx, name); err != nil {
		e.log.Warn("cache invalidation failed", "index", name, "error", err)
	}
}

func (e *Engine) updateGaugeLocked() {
	if e.metrics != nil {
		e.metrics.IndexesLoaded.Set(float64(len(e.indexes)))
	}
}
