package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/services"
)

// MultiSearch executes multiple named search queries in parallel
func (s *Service) MultiSearch(ctx context.Context, multiQuery services.MultiSearchQuery) (*services.MultiSearchResult, error) {
	return MultiSearchWith(ctx, s, multiQuery)
}

// MultiSearchWith runs each named query through searcher in parallel. A
// query without a limit takes the request's limit.
func MultiSearchWith(ctx context.Context, searcher services.Searcher, multiQuery services.MultiSearchQuery) (*services.MultiSearchResult, error) {
	startTime := time.Now()

	if len(multiQuery.Queries) == 0 {
		return nil, internalErrors.NewValidationError("queries", "at least one query is required")
	}
	seen := make(map[string]bool, len(multiQuery.Queries))
	for _, nq := range multiQuery.Queries {
		if nq.Name == "" {
			return nil, internalErrors.NewValidationError("queries", "each query must have a non-empty name")
		}
		if seen[nq.Name] {
			return nil, internalErrors.NewValidationError("queries", fmt.Sprintf("duplicate query name '%s'", nq.Name))
		}
		seen[nq.Name] = true
	}

	var mu sync.Mutex
	results := make(map[string]services.SearchResult, len(multiQuery.Queries))

	g, gctx := errgroup.WithContext(ctx)
	for _, nq := range multiQuery.Queries {
		g.Go(func() error {
			query := nq.SearchQuery
			if query.Limit == 0 {
				query.Limit = multiQuery.Limit
			}
			result, err := searcher.Search(gctx, query)
			if err != nil {
				return fmt.Errorf("error executing query '%s': %w", nq.Name, err)
			}
			mu.Lock()
			results[nq.Name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("multi-search cancelled: %w", ctx.Err())
		}
		return nil, err
	}

	processingTime := time.Since(startTime)

	return &services.MultiSearchResult{
		Results:          results,
		TotalQueries:     len(multiQuery.Queries),
		ProcessingTimeMs: float64(processingTime.Nanoseconds()) / 1e6,
	}, nil
}
