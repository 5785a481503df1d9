package indexing

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
)

// BulkIndexingConfig contains configuration for bulk indexing operations
type BulkIndexingConfig struct {
	BatchSize        int // Number of documents analyzed by one worker at a time
	WorkerCount      int // Number of parallel analysis workers
	ProgressCallback func(processed, total int, message string)
}

// DefaultBulkIndexingConfig returns sensible defaults for bulk indexing
func DefaultBulkIndexingConfig() BulkIndexingConfig {
	return BulkIndexingConfig{
		BatchSize:   100,
		WorkerCount: runtime.NumCPU(),
	}
}

// BulkIndexer analyzes documents in parallel and applies them to a Builder
// in document order, so the result equals adding them one by one.
type BulkIndexer struct {
	builder *Builder
	config  BulkIndexingConfig
}

// NewBulkIndexer creates a new bulk indexer with the given configuration
func NewBulkIndexer(builder *Builder, config BulkIndexingConfig) *BulkIndexer {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBulkIndexingConfig().BatchSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &BulkIndexer{builder: builder, config: config}
}

// BulkAddDocuments adds docs to the builder. On error the builder holds an
// unspecified prefix of docs and should be discarded.
func (bi *BulkIndexer) BulkAddDocuments(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	start := time.Now()
	bi.builder.log.Info("starting bulk indexing", "documents", len(docs), "workers", bi.config.WorkerCount)

	analyzed := make([]analyzedDocument, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bi.config.WorkerCount)
	for from := 0; from < len(docs); from += bi.config.BatchSize {
		to := min(from+bi.config.BatchSize, len(docs))
		g.Go(func() error {
			for i := from; i < to; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				analyzed[i] = bi.builder.analyze(docs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bulk indexing cancelled: %w", err)
	}

	for i, a := range analyzed {
		if err := bi.builder.apply(a); err != nil {
			return fmt.Errorf("failed to add document %s: %w", a.doc.Ref(), err)
		}
		processed := i + 1
		if bi.config.ProgressCallback != nil && (processed%bi.config.BatchSize == 0 || processed == len(docs)) {
			bi.config.ProgressCallback(processed, len(docs), fmt.Sprintf("Indexed %d of %d documents", processed, len(docs)))
		}
	}

	duration := time.Since(start)
	bi.builder.log.Info("bulk indexing completed",
		"documents", len(docs),
		"duration", duration,
		"docs_per_sec", float64(len(docs))/duration.Seconds())
	return nil
}

// BuildIndex builds a complete index from docs with the given settings.
func BuildIndex(ctx context.Context, settings config.IndexSettings, docs []model.Document, cfg BulkIndexingConfig) (*searchindex.Index, error) {
	builder, err := NewBuilder(settings)
	if err != nil {
		return nil, err
	}
	if err := NewBulkIndexer(builder, cfg).BulkAddDocuments(ctx, docs); err != nil {
		return nil, err
	}
	return builder.Build()
}
