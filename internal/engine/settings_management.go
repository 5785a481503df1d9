package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/diwan-editor/docsearch/config"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
)

// UpdateIndexSettings replaces the query-time options of an index: search
// options (bool, expand, boosts) and results options. Fields, pipeline and
// language are baked into the tries, so changing them needs a rebuild and is
// rejected.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return internalErrors.NewIndexNotFoundError(name)
	}
	return e.updateSettingsLocked(name, instance, newSettings)
}

// PatchIndexSettings lays patch over the current settings of an index, under
// the same rules as UpdateIndexSettings.
func (e *Engine) PatchIndexSettings(name string, patch config.SettingsPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return internalErrors.NewIndexNotFoundError(name)
	}
	return e.updateSettingsLocked(name, instance, patch.Apply(instance.idx.Settings))
}

func (e *Engine) updateSettingsLocked(name string, instance *IndexInstance, newSettings config.IndexSettings) error {
	current := instance.idx.Settings

	if newSettings.Name != "" && newSettings.Name != name {
		return internalErrors.NewValidationError("name",
			fmt.Sprintf("cannot change index name from '%s' to '%s' during settings update", name, newSettings.Name))
	}
	newSettings.Name = name
	if err := checkRebuildFields(current, &newSettings); err != nil {
		return err
	}

	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return internalErrors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	updated := *instance.idx
	updated.Settings = newSettings
	next, err := newIndexInstance(&updated, e.cache, e.metrics)
	if err != nil {
		return err
	}
	if err := e.persist(name, &updated); err != nil {
		return fmt.Errorf("failed to save updated settings for index '%s': %w", name, err)
	}
	e.indexes[name] = next
	e.invalidate(context.Background(), name)

	e.log.Info("index settings updated", "index", name)
	return nil
}

// checkRebuildFields fills the index-time settings left empty in next from
// current and rejects changes to them.
func checkRebuildFields(current config.IndexSettings, next *config.IndexSettings) error {
	if len(next.Fields) == 0 {
		next.Fields = current.Fields
	}
	if next.Pipeline == nil {
		next.Pipeline = current.Pipeline
	}
	if next.Lang == "" {
		next.Lang = current.Lang
	}

	var changed []string
	if !reflect.DeepEqual(next.Fields, current.Fields) {
		changed = append(changed, "fields")
	}
	if !reflect.DeepEqual(next.Pipeline, current.Pipeline) {
		changed = append(changed, "pipeline")
	}
	if next.Lang != current.Lang {
		changed = append(changed, "lang")
	}
	if len(changed) > 0 {
		return internalErrors.NewValidationError(strings.Join(changed, ","),
			"changing "+strings.Join(changed, ", ")+" requires rebuilding the index")
	}
	return nil
}
