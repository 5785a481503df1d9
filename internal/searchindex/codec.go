package searchindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/tokenizer"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/store"
)

// DefaultName names indexes loaded without an explicit name.
const DefaultName = "searchindex"

const (
	jsPrefix = "Object.assign(window.search, "
	jsSuffix = ");"
)

// File is the on-disk layout of a search index.
type File struct {
	DocURLs        []string              `json:"doc_urls"`
	Index          ElasticlunrIndex      `json:"index"`
	ResultsOptions config.ResultsOptions `json:"results_options"`
	SearchOptions  config.SearchOptions  `json:"search_options"`
}

// ElasticlunrIndex is the "index" member of File.
type ElasticlunrIndex struct {
	DocumentStore DocumentStoreFile      `json:"documentStore"`
	Fields        []string               `json:"fields"`
	Index         map[string]*index.Trie `json:"index"`
	Lang          string                 `json:"lang"`
	Pipeline      []string               `json:"pipeline"`
	Ref           string                 `json:"ref"`
	Version       string                 `json:"version"`
}

// DocumentStoreFile is the serialized document store.
type DocumentStoreFile struct {
	DocInfo map[string]store.DocInfo `json:"docInfo"`
	Docs    map[string]StoredDoc     `json:"docs"`
	Length  int                      `json:"length"`
	Save    bool                     `json:"save"`
}

// StoredDoc is a document as kept in the serialized store.
type StoredDoc struct {
	Body        string `json:"body"`
	Breadcrumbs string `json:"breadcrumbs"`
	ID          string `json:"id"`
	Title       string `json:"title"`
}

// ToFile converts an index to its serializable layout.
func ToFile(idx *Index) *File {
	f := &File{
		DocURLs: idx.DocURLs(),
		Index: ElasticlunrIndex{
			DocumentStore: DocumentStoreFile{
				DocInfo: make(map[string]store.DocInfo, idx.Documents.Len()),
				Docs:    make(map[string]StoredDoc, len(idx.Documents.Docs)),
				Length:  idx.Documents.Len(),
				Save:    idx.Documents.Save,
			},
			Fields:   idx.Inverted.Fields,
			Index:    idx.Inverted.Tries,
			Lang:     idx.Settings.Lang,
			Pipeline: idx.Inverted.Pipeline,
			Ref:      idx.Ref,
			Version:  idx.Version,
		},
		ResultsOptions: idx.Settings.Results,
		SearchOptions:  idx.Settings.Search,
	}
	for ref, info := range idx.Documents.DocInfo {
		f.Index.DocumentStore.DocInfo[ref] = info
	}
	for ref, doc := range idx.Documents.Docs {
		f.Index.DocumentStore.Docs[ref] = StoredDoc{
			Body:        doc.Body,
			Breadcrumbs: doc.Breadcrumbs,
			ID:          ref,
			Title:       doc.Title,
		}
	}
	if f.DocURLs == nil {
		f.DocURLs = []string{}
	}
	return f
}

// FromFile validates a decoded file and turns it into an index named name.
func FromFile(name string, f *File) (*Index, error) {
	if name == "" {
		name = DefaultName
	}
	if len(f.Index.Fields) == 0 {
		return nil, fmt.Errorf("search index has no fields")
	}
	if _, err := tokenizer.NewPipeline(f.Index.Pipeline...); err != nil {
		return nil, fmt.Errorf("search index pipeline: %w", err)
	}

	inverted := &index.InvertedIndex{
		Fields:   f.Index.Fields,
		Tries:    make(map[string]*index.Trie, len(f.Index.Fields)),
		Pipeline: f.Index.Pipeline,
	}
	for _, field := range f.Index.Fields {
		trie, ok := f.Index.Index[field]
		if !ok || trie == nil {
			return nil, fmt.Errorf("search index has no trie for field '%s'", field)
		}
		inverted.Tries[field] = trie
	}
	if len(f.Index.Index) != len(f.Index.Fields) {
		return nil, fmt.Errorf("search index has %d tries for %d fields", len(f.Index.Index), len(f.Index.Fields))
	}

	docs := &store.DocumentStore{
		Docs:    make(map[string]model.Document, len(f.Index.DocumentStore.Docs)),
		DocInfo: make(map[string]store.DocInfo, len(f.Index.DocumentStore.DocInfo)),
		Save:    f.Index.DocumentStore.Save,
	}
	for ref, info := range f.Index.DocumentStore.DocInfo {
		docs.DocInfo[ref] = info
	}
	for ref, stored := range f.Index.DocumentStore.Docs {
		id, err := strconv.ParseUint(ref, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("document ref '%s' is not a numeric id: %w", ref, err)
		}
		doc := model.Document{
			ID:          uint32(id),
			Title:       stored.Title,
			Body:        stored.Body,
			Breadcrumbs: stored.Breadcrumbs,
		}
		if int(id) < len(f.DocURLs) {
			doc.URL = f.DocURLs[id]
		}
		docs.Docs[ref] = doc
		if _, ok := docs.DocInfo[ref]; !ok {
			docs.DocInfo[ref] = store.DocInfo{}
		}
	}
	if f.Index.DocumentStore.Length != len(docs.DocInfo) {
		return nil, fmt.Errorf("document store length %d does not match %d documents", f.Index.DocumentStore.Length, len(docs.DocInfo))
	}

	settings := config.IndexSettings{
		Name:     name,
		Fields:   f.Index.Fields,
		Pipeline: f.Index.Pipeline,
		Lang:     f.Index.Lang,
		Search:   f.SearchOptions,
		Results:  f.ResultsOptions,
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("search index options are invalid: %v", problems)
	}

	return &Index{
		Settings:  settings,
		Inverted:  inverted,
		Documents: docs,
		Ref:       f.Index.Ref,
		Version:   f.Index.Version,
	}, nil
}

// Marshal encodes an index as JSON.
func Marshal(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ToFile(idx)); err != nil {
		return nil, fmt.Errorf("failed to encode search index: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJS encodes an index as the JavaScript file static sites load.
func MarshalJS(idx *Index) ([]byte, error) {
	data, err := Marshal(idx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(data) + len(jsPrefix) + len(jsSuffix))
	buf.WriteString(jsPrefix)
	buf.Write(data)
	buf.WriteString(jsSuffix)
	return buf.Bytes(), nil
}

// Unmarshal decodes either the JSON or the JavaScript form. Errors match
// errors.ErrInvalidIndexFile.
func Unmarshal(name string, data []byte) (*Index, error) {
	idx, err := decode(name, data)
	if err != nil {
		return nil, internalErrors.NewInvalidIndexFileError("", err)
	}
	return idx, nil
}

func decode(name string, data []byte) (*Index, error) {
	payload, err := stripJS(data)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, err
	}
	return FromFile(name, &f)
}

// stripJS removes the JavaScript wrapper if present.
func stripJS(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("search index is empty")
	}
	if trimmed[0] == '{' {
		return trimmed, nil
	}
	if !bytes.HasPrefix(trimmed, []byte(jsPrefix)) {
		return nil, fmt.Errorf("search index is neither JSON nor a window.search assignment")
	}
	trimmed = bytes.TrimPrefix(trimmed, []byte(jsPrefix))
	trimmed = bytes.TrimSuffix(trimmed, []byte(";"))
	trimmed = bytes.TrimSpace(trimmed)
	if !bytes.HasSuffix(trimmed, []byte(")")) {
		return nil, fmt.Errorf("search index assignment is not terminated")
	}
	return bytes.TrimSuffix(trimmed, []byte(")")), nil
}

// Read decodes an index from r.
func Read(name string, r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read search index: %w", err)
	}
	return Unmarshal(name, data)
}

// ReadFile decodes the index stored at path.
func ReadFile(name, path string) (*Index, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open search index %s: %w", path, err)
	}
	idx, err := decode(name, data)
	if err != nil {
		return nil, internalErrors.NewInvalidIndexFileError(path, err)
	}
	return idx, nil
}

// WriteFile writes idx to path, as JavaScript when asJS is set.
func WriteFile(path string, idx *Index, asJS bool) error {
	var (
		data []byte
		err  error
	)
	if asJS {
		data, err = MarshalJS(idx)
	} else {
		data, err = Marshal(idx)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- index files are public site assets
		return fmt.Errorf("failed to write search index %s: %w", path, err)
	}
	return nil
}
