package engine

import (
	"fmt"

	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/persistence"
	"github.com/diwan-editor/docsearch/internal/searchindex"
)

// loadIndexes loads every snapshot in storage. Unreadable snapshots are
// skipped with a warning so one bad entry does not keep the server down.
func (e *Engine) loadIndexes() error {
	if e.storage == nil {
		return nil
	}
	e.log.Info("loading indexes", "path", e.storage.Path())

	err := e.storage.ForEach(func(name string, data []byte) error {
		idx, err := persistence.DecodeIndex(data)
		if err != nil {
			e.log.Warn("skipping unreadable index snapshot", "index", name, "error", err)
			return nil
		}
		if idx.Settings.Name != name {
			e.log.Warn("skipping index snapshot stored under another name",
				"key", name, "settings_name", idx.Settings.Name)
			return nil
		}
		instance, err := newIndexInstance(idx, e.cache, e.metrics)
		if err != nil {
			e.log.Warn("skipping index snapshot", "index", name, "error", err)
			return nil
		}
		e.indexes[name] = instance
		e.log.Info("index loaded", "index", name, "documents", idx.Len())
		return nil
	})
	e.updateGaugeLocked()
	return err
}

// persist writes a snapshot of idx under name.
func (e *Engine) persist(name string, idx *searchindex.Index) error {
	if e.storage == nil {
		return nil
	}
	data, err := persistence.EncodeIndex(idx)
	if err != nil {
		return fmt.Errorf("%w: %w", internalErrors.ErrPersistenceFailed, err)
	}
	if err := e.storage.Set(name, data); err != nil {
		return fmt.Errorf("%w: %w", internalErrors.ErrPersistenceFailed, err)
	}
	return nil
}

// remove deletes the snapshot of name. A missing snapshot is not an error.
func (e *Engine) remove(name string) error {
	if e.storage == nil {
		return nil
	}
	if err := e.storage.Delete(name); err != nil {
		return fmt.Errorf("%w: %w", internalErrors.ErrPersistenceFailed, err)
	}
	return nil
}
