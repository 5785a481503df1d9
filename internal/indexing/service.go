package indexing

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/internal/tokenizer"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/store"
)

// Builder turns documents into a search index. It is used from a single
// goroutine; after Build it is frozen and rejects further documents.
type Builder struct {
	settings  config.IndexSettings
	pipeline  *tokenizer.Pipeline
	inverted  *index.InvertedIndex
	documents *store.DocumentStore
	frozen    bool
	log       *slog.Logger
}

// NewBuilder validates settings and returns an empty builder.
func NewBuilder(settings config.IndexSettings) (*Builder, error) {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, internalErrors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	pipeline, err := tokenizer.NewPipeline(settings.Pipeline...)
	if err != nil {
		return nil, internalErrors.NewValidationError("pipeline", err.Error())
	}
	return &Builder{
		settings:  settings,
		pipeline:  pipeline,
		inverted:  index.NewInvertedIndex(settings.Fields, pipeline.Names()),
		documents: store.NewDocumentStore(),
		log:       logger.WithComponent("indexing").With("index", settings.Name),
	}, nil
}

// analyzedDocument is a document after the pipeline ran over every field.
type analyzedDocument struct {
	doc    model.Document
	counts map[string]map[string]int // field -> term -> raw count
	info   store.DocInfo
}

// analyze runs the pipeline over the fields of doc. It does not touch the
// builder state and may run concurrently.
func (b *Builder) analyze(doc model.Document) analyzedDocument {
	a := analyzedDocument{
		doc:    doc,
		counts: make(map[string]map[string]int, len(b.settings.Fields)),
		info:   make(store.DocInfo, len(b.settings.Fields)),
	}
	for _, field := range b.settings.Fields {
		terms := b.pipeline.Run(doc.FieldValue(field))
		counts := make(map[string]int, len(terms))
		for _, term := range terms {
			counts[term]++
		}
		a.counts[field] = counts
		a.info[field] = len(terms)
	}
	return a
}

// apply records an analyzed document in the tries and the document store.
func (b *Builder) apply(a analyzedDocument) error {
	if b.frozen {
		return internalErrors.ErrBuilderFrozen
	}
	ref := a.doc.Ref()
	if _, exists := b.documents.DocInfo[ref]; exists {
		return internalErrors.NewDuplicateDocumentError(ref)
	}
	if err := b.documents.Add(a.doc, a.info); err != nil {
		return err
	}
	for _, field := range b.settings.Fields {
		trie := b.inverted.Field(field)
		for term, count := range a.counts[field] {
			trie.Insert(term, ref, TermWeight(count))
		}
	}
	return nil
}

// Add indexes one document. Refs must be unique.
func (b *Builder) Add(doc model.Document) error {
	if b.frozen {
		return internalErrors.ErrBuilderFrozen
	}
	if err := b.apply(b.analyze(doc)); err != nil {
		return fmt.Errorf("failed to add document %s: %w", doc.Ref(), err)
	}
	return nil
}

// AddDocuments indexes docs in order, stopping at the first error.
func (b *Builder) AddDocuments(docs []model.Document) error {
	for _, doc := range docs {
		if err := b.Add(doc); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of documents added so far.
func (b *Builder) Len() int {
	return b.documents.Len()
}

// Build freezes the builder and returns the finished index.
func (b *Builder) Build() (*searchindex.Index, error) {
	if b.frozen {
		return nil, internalErrors.ErrBuilderFrozen
	}
	b.frozen = true

	idx := &searchindex.Index{
		Settings:  b.settings,
		Inverted:  b.inverted,
		Documents: b.documents,
		Ref:       searchindex.DefaultRef,
		Version:   searchindex.ElasticlunrVersion,
	}
	b.log.Debug("index built", "documents", idx.Len(), "fields", len(b.settings.Fields))
	return idx, nil
}

// TermWeight is the weight stored for a term seen count times in a field.
func TermWeight(count int) float64 {
	return math.Sqrt(float64(count))
}
