package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Default field names of a documentation search index, in index order.
const (
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldBreadcrumbs = "breadcrumbs"
)

// DefaultFields lists the searchable fields in the order they are indexed.
var DefaultFields = []string{FieldTitle, FieldBody, FieldBreadcrumbs}

// InvertedIndex holds one token trie per searchable field. Once returned by
// the builder or decoded from disk it is never mutated, so concurrent
// readers need no locking.
type InvertedIndex struct {
	Fields   []string
	Tries    map[string]*Trie
	Pipeline []string
}

// NewInvertedIndex creates an index with an empty trie per field.
func NewInvertedIndex(fields []string, pipeline []string) *InvertedIndex {
	ii := &InvertedIndex{
		Fields:   append([]string(nil), fields...),
		Tries:    make(map[string]*Trie, len(fields)),
		Pipeline: append([]string(nil), pipeline...),
	}
	for _, f := range fields {
		ii.Tries[f] = NewTrie()
	}
	return ii
}

// Field returns the trie of a field, or nil when the field is not indexed.
func (ii *InvertedIndex) Field(name string) *Trie {
	return ii.Tries[name]
}

// HasField reports whether name is one of the indexed fields.
func (ii *InvertedIndex) HasField(name string) bool {
	_, ok := ii.Tries[name]
	return ok
}

// gobInvertedIndexData is a helper struct for Gob encoding/decoding InvertedIndex data.
type gobInvertedIndexData struct {
	Fields   []string
	Roots    map[string]*Node
	Pipeline []string
}

// GobEncode implements the gob.GobEncoder interface for InvertedIndex.
func (ii *InvertedIndex) GobEncode() ([]byte, error) {
	data := gobInvertedIndexData{
		Fields:   ii.Fields,
		Roots:    make(map[string]*Node, len(ii.Tries)),
		Pipeline: ii.Pipeline,
	}
	for name, trie := range ii.Tries {
		data.Roots[name] = trie.Root
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to gob encode inverted index: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for InvertedIndex.
func (ii *InvertedIndex) GobDecode(data []byte) error {
	decoded := gobInvertedIndexData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode inverted index: %w", err)
	}

	ii.Fields = decoded.Fields
	ii.Pipeline = decoded.Pipeline
	ii.Tries = make(map[string]*Trie, len(decoded.Roots))
	for name, root := range decoded.Roots {
		trie := &Trie{Root: root}
		if trie.Root == nil {
			trie.Root = newNode()
		}
		normalizeNode(trie.Root)
		trie.recount()
		ii.Tries[name] = trie
	}
	return nil
}

// normalizeNode replaces nil maps left by decoding with empty ones.
func normalizeNode(n *Node) {
	if n.Docs == nil {
		n.Docs = make(Posting)
	}
	if n.Children == nil {
		n.Children = make(map[rune]*Node)
	}
	for _, child := range n.Children {
		normalizeNode(child)
	}
}
