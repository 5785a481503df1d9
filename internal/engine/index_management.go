package engine

import (
	"context"
	"fmt"

	"github.com/diwan-editor/docsearch/config"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/indexing"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/services"
)

// BuildIndex builds an index named settings.Name from docs and serves it,
// replacing any index of that name.
func (e *Engine) BuildIndex(ctx context.Context, settings config.IndexSettings, docs []model.Document) error {
	return e.buildIndex(ctx, settings, docs, e.bulk)
}

func (e *Engine) buildIndex(ctx context.Context, settings config.IndexSettings, docs []model.Document, cfg indexing.BulkIndexingConfig) error {
	if err := validateName(settings.Name); err != nil {
		return err
	}
	idx, err := indexing.BuildIndex(ctx, settings, docs, cfg)
	if err != nil {
		e.recordBuild("build", err)
		return fmt.Errorf("building index '%s': %w", settings.Name, err)
	}
	if err := e.put(ctx, idx); err != nil {
		e.recordBuild("build", err)
		return err
	}
	e.recordBuild("build", nil)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(len(docs)))
	}
	e.log.Info("index built", "index", settings.Name, "documents", len(docs))
	return nil
}

// ImportIndex decodes a searchindex.json or searchindex.js file and serves
// it as name, replacing any index of that name.
func (e *Engine) ImportIndex(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	idx, err := searchindex.Unmarshal(name, data)
	if err != nil {
		e.recordBuild("import", err)
		return err
	}
	if err := e.put(context.Background(), idx); err != nil {
		e.recordBuild("import", err)
		return err
	}
	e.recordBuild("import", nil)
	e.log.Info("index imported", "index", name, "documents", idx.Len(), "bytes", len(data))
	return nil
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, internalErrors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves the settings for a specific index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return config.IndexSettings{}, internalErrors.NewIndexNotFoundError(name)
	}
	return instance.Settings(), nil
}

// DeleteIndex removes an index from memory and storage.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; !exists {
		return internalErrors.NewIndexNotFoundError(name)
	}
	if err := e.remove(name); err != nil {
		return fmt.Errorf("failed to delete index '%s': %w", name, err)
	}
	delete(e.indexes, name)
	e.updateGaugeLocked()
	e.invalidate(context.Background(), name)

	e.log.Info("index deleted", "index", name)
	return nil
}

// RenameIndex serves the index oldName under newName.
func (e *Engine) RenameIndex(oldName, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if oldName == newName {
		return internalErrors.NewSameNameError(oldName)
	}
	instance, exists := e.indexes[oldName]
	if !exists {
		return internalErrors.NewIndexNotFoundError(oldName)
	}
	if _, exists := e.indexes[newName]; exists {
		return internalErrors.NewIndexAlreadyExistsError(newName)
	}

	renamed := *instance.idx
	renamed.Settings.Name = newName
	next, err := newIndexInstance(&renamed, e.cache, e.metrics)
	if err != nil {
		return err
	}
	if err := e.persist(newName, &renamed); err != nil {
		return fmt.Errorf("failed to persist renamed index: %w", err)
	}
	if err := e.remove(oldName); err != nil {
		e.log.Warn("failed to remove old index snapshot", "index", oldName, "error", err)
	}

	e.indexes[newName] = next
	delete(e.indexes, oldName)
	e.invalidate(context.Background(), oldName)
	e.invalidate(context.Background(), newName)

	e.log.Info("index renamed", "from", oldName, "to", newName)
	return nil
}

// put persists idx and swaps it in under its name.
func (e *Engine) put(ctx context.Context, idx *searchindex.Index) error {
	instance, err := newIndexInstance(idx, e.cache, e.metrics)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	name := idx.Settings.Name
	if err := e.persist(name, idx); err != nil {
		return fmt.Errorf("failed to persist index '%s': %w", name, err)
	}
	e.indexes[name] = instance
	e.updateGaugeLocked()
	e.invalidate(ctx, name)
	return nil
}

func (e *Engine) recordBuild(kind string, err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(kind, status).Inc()
}
