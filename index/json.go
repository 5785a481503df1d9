package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	keyDF   = "df"
	keyDocs = "docs"
)

// MarshalJSON writes a node in the nested elasticlunr layout:
// {"a": {...}, "df": 1, "docs": {"2": {"tf": 1.0}}, "l": {...}}.
// Keys are emitted sorted, so the output is deterministic.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(n.Children)+2)
	df, err := json.Marshal(n.DF)
	if err != nil {
		return nil, err
	}
	out[keyDF] = df

	docs := n.Docs
	if docs == nil {
		docs = Posting{}
	}
	rawDocs, err := marshalUnescaped(docs)
	if err != nil {
		return nil, err
	}
	out[keyDocs] = rawDocs

	for r, child := range n.Children {
		raw, err := marshalUnescaped(child)
		if err != nil {
			return nil, err
		}
		out[string(r)] = raw
	}
	return marshalUnescaped(out)
}

// marshalUnescaped encodes v like json.Marshal but leaves <, > and & as is,
// matching the generator's output.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJSON writes the weight as {"tf":x}. Whole numbers keep a trailing
// ".0" as the generator writes them.
func (tf TermFrequency) MarshalJSON() ([]byte, error) {
	if math.IsNaN(tf.TF) || math.IsInf(tf.TF, 0) {
		return nil, fmt.Errorf("term frequency %v is not a finite number", tf.TF)
	}
	num := strconv.FormatFloat(tf.TF, 'f', -1, 64)
	if !strings.Contains(num, ".") {
		num += ".0"
	}
	return []byte(`{"tf":` + num + `}`), nil
}

// UnmarshalJSON reads a node written by MarshalJSON or by the documentation
// generator.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("trie node: %w", err)
	}

	n.Docs = make(Posting)
	n.Children = make(map[rune]*Node)
	for key, value := range raw {
		switch key {
		case keyDF:
			if err := json.Unmarshal(value, &n.DF); err != nil {
				return fmt.Errorf("trie node df: %w", err)
			}
		case keyDocs:
			if err := json.Unmarshal(value, &n.Docs); err != nil {
				return fmt.Errorf("trie node docs: %w", err)
			}
		default:
			r, size := utf8.DecodeRuneInString(key)
			if r == utf8.RuneError || size != len(key) {
				return fmt.Errorf("trie node: child key %q is not a single character", key)
			}
			child := &Node{}
			if err := json.Unmarshal(value, child); err != nil {
				return err
			}
			n.Children[r] = child
		}
	}
	if n.DF != len(n.Docs) {
		return fmt.Errorf("trie node: df %d does not match %d documents", n.DF, len(n.Docs))
	}
	return nil
}

type trieJSON struct {
	Root *Node `json:"root"`
}

// MarshalJSON wraps the root node as {"root": {...}}.
func (t *Trie) MarshalJSON() ([]byte, error) {
	root := t.Root
	if root == nil {
		root = newNode()
	}
	return marshalUnescaped(trieJSON{Root: root})
}

// UnmarshalJSON reads {"root": {...}}.
func (t *Trie) UnmarshalJSON(data []byte) error {
	var v trieJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Root == nil {
		v.Root = newNode()
	}
	t.Root = v.Root
	t.recount()
	return nil
}
