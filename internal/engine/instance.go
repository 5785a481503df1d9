package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/cache"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/internal/search"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/services"
)

// IndexInstance is one loaded, immutable index and its search service.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	idx      *searchindex.Index
	searcher *search.Service
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
}

// newIndexInstance wraps idx in a search service.
func newIndexInstance(idx *searchindex.Index, c *cache.QueryCache, m *metrics.Metrics) (*IndexInstance, error) {
	searcher, err := search.NewService(idx)
	if err != nil {
		return nil, err
	}
	return &IndexInstance{idx: idx, searcher: searcher, cache: c, metrics: m}, nil
}

// Search answers query, through the query cache when one is enabled.
func (i *IndexInstance) Search(ctx context.Context, query services.SearchQuery) (services.SearchResult, error) {
	start := time.Now()
	name := i.idx.Settings.Name

	result, hit, err := i.cache.GetOrCompute(ctx, name, query, func() (*services.SearchResult, error) {
		r, err := i.searcher.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})

	status := "miss"
	switch {
	case !i.cache.Enabled():
		status = "disabled"
	case hit:
		status = "hit"
	}
	if err != nil {
		i.metrics.ObserveSearch(name, 0, status, time.Since(start), err)
		return services.SearchResult{}, err
	}
	i.metrics.ObserveSearch(name, len(result.Hits), status, time.Since(start), nil)
	out := *result
	if hit {
		out.QueryId = uuid.NewString()
	}
	return out, nil
}

// MultiSearch runs several named queries concurrently. Each goes through
// Search, so it is cached and counted like a single query.
func (i *IndexInstance) MultiSearch(ctx context.Context, query services.MultiSearchQuery) (*services.MultiSearchResult, error) {
	return search.MultiSearchWith(ctx, i, query)
}

// Settings returns the configuration settings for this index.
func (i *IndexInstance) Settings() config.IndexSettings {
	return i.idx.Settings
}

// Stats returns document and token counts.
func (i *IndexInstance) Stats() searchindex.Stats {
	return i.idx.Stats()
}

// Index returns the underlying index, for export.
func (i *IndexInstance) Index() *searchindex.Index {
	return i.idx
}

// Document returns the document stored under ref.
func (i *IndexInstance) Document(ref string) (model.Document, error) {
	doc, ok := i.idx.Document(ref)
	if !ok {
		return model.Document{}, internalErrors.NewDocumentNotFoundError(ref, i.idx.Settings.Name)
	}
	return doc, nil
}
