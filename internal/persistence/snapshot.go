package persistence

import (
	"fmt"
	"time"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/store"
)

// snapshot is the gob form of a search index.
type snapshot struct {
	Settings  config.IndexSettings
	Inverted  *index.InvertedIndex
	Documents *store.DocumentStore
	Ref       string
	Version   string
	SavedAt   time.Time
}

// EncodeIndex encodes idx as a gob snapshot.
func EncodeIndex(idx *searchindex.Index) ([]byte, error) {
	return EncodeGob(snapshot{
		Settings:  idx.Settings,
		Inverted:  idx.Inverted,
		Documents: idx.Documents,
		Ref:       idx.Ref,
		Version:   idx.Version,
		SavedAt:   time.Now().UTC(),
	})
}

// DecodeIndex decodes a snapshot written by EncodeIndex.
func DecodeIndex(data []byte) (*searchindex.Index, error) {
	var snap snapshot
	if err := DecodeGob(data, &snap); err != nil {
		return nil, err
	}
	if snap.Inverted == nil || snap.Documents == nil {
		return nil, fmt.Errorf("snapshot of index '%s' is incomplete", snap.Settings.Name)
	}
	if snap.Documents.Docs == nil {
		snap.Documents.Docs = make(map[string]model.Document)
	}
	if snap.Documents.DocInfo == nil {
		snap.Documents.DocInfo = make(map[string]store.DocInfo)
	}
	return &searchindex.Index{
		Settings:  snap.Settings,
		Inverted:  snap.Inverted,
		Documents: snap.Documents,
		Ref:       snap.Ref,
		Version:   snap.Version,
	}, nil
}
