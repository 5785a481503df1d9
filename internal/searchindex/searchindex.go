// Package searchindex defines a complete documentation search index and the
// file format it is shipped in: the elasticlunr JSON document, optionally
// wrapped in the JavaScript assignment static sites load.
package searchindex

import (
	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/store"
)

const (
	// DefaultRef is the document property used as ref.
	DefaultRef = "id"
	// ElasticlunrVersion is the index version expected by the browser side.
	ElasticlunrVersion = "0.9.5"
)

// Index is a complete search index: settings, field tries and documents.
// An Index is immutable; share it freely between goroutines.
type Index struct {
	Settings  config.IndexSettings
	Inverted  *index.InvertedIndex
	Documents *store.DocumentStore
	Ref       string
	Version   string
}

// Document returns the document stored under ref.
func (idx *Index) Document(ref string) (model.Document, bool) {
	return idx.Documents.Get(ref)
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return idx.Documents.Len()
}

// DocURLs returns the URL of every document, positioned by document id.
func (idx *Index) DocURLs() []string {
	refs := idx.Documents.Refs()
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		doc, _ := idx.Documents.Get(ref)
		urls = append(urls, doc.URL)
	}
	return urls
}

// Stats summarises an index for listings and the inspect command.
type Stats struct {
	Name           string         `json:"name"`
	Documents      int            `json:"documents"`
	TokensPerField map[string]int `json:"tokens_per_field"`
	Pipeline       []string       `json:"pipeline"`
	Bool           string         `json:"bool"`
	Expand         bool           `json:"expand"`
}

// Stats returns document and token counts.
func (idx *Index) Stats() Stats {
	s := Stats{
		Name:           idx.Settings.Name,
		Documents:      idx.Len(),
		TokensPerField: make(map[string]int, len(idx.Inverted.Fields)),
		Pipeline:       idx.Inverted.Pipeline,
		Bool:           idx.Settings.Search.Bool,
		Expand:         idx.Settings.Search.Expand,
	}
	for _, f := range idx.Inverted.Fields {
		s.TokensPerField[f] = idx.Inverted.Field(f).Len()
	}
	return s
}
