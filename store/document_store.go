package store

import (
	"fmt"
	"sort"

	"github.com/diwan-editor/docsearch/model"
)

// DocInfo holds the number of pipeline tokens per field of one document.
type DocInfo map[string]int

// DocumentStore keeps the documents of an index keyed by ref, together with
// their per-field token counts. Like the tries it is read-only once built.
type DocumentStore struct {
	Docs    map[string]model.Document
	DocInfo map[string]DocInfo
	// Save reports whether full documents are kept; when false only DocInfo
	// is available and hits carry no text.
	Save bool
}

// NewDocumentStore returns an empty store that keeps documents.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		Docs:    make(map[string]model.Document),
		DocInfo: make(map[string]DocInfo),
		Save:    true,
	}
}

// Add stores a document and its field lengths. A ref can only be added once.
func (ds *DocumentStore) Add(doc model.Document, info DocInfo) error {
	ref := doc.Ref()
	if _, exists := ds.DocInfo[ref]; exists {
		return fmt.Errorf("document with ref '%s' already stored", ref)
	}
	if ds.Save {
		ds.Docs[ref] = doc
	}
	ds.DocInfo[ref] = info
	return nil
}

// Get returns the document stored under ref.
func (ds *DocumentStore) Get(ref string) (model.Document, bool) {
	doc, ok := ds.Docs[ref]
	return doc, ok
}

// FieldLength returns the token count of field in the document ref.
func (ds *DocumentStore) FieldLength(ref, field string) int {
	return ds.DocInfo[ref][field]
}

// Len returns the number of documents in the store.
func (ds *DocumentStore) Len() int {
	return len(ds.DocInfo)
}

// Refs returns all refs in id order.
func (ds *DocumentStore) Refs() []string {
	refs := make([]string, 0, len(ds.DocInfo))
	for ref := range ds.DocInfo {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if len(refs[i]) != len(refs[j]) {
			return len(refs[i]) < len(refs[j])
		}
		return refs[i] < refs[j]
	})
	return refs
}

// Ordered returns the stored documents in id order.
func (ds *DocumentStore) Ordered() []model.Document {
	docs := make([]model.Document, 0, len(ds.Docs))
	for _, ref := range ds.Refs() {
		if doc, ok := ds.Docs[ref]; ok {
			docs = append(docs, doc)
		}
	}
	return docs
}
