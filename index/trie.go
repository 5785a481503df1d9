package index

import (
	"sort"
	"strings"
)

// Node is one character step in a token trie. A node terminates a token when
// DF > 0; its Docs then hold the per-document weights.
type Node struct {
	DF       int
	Docs     Posting
	Children map[rune]*Node
}

func newNode() *Node {
	return &Node{
		Docs:     make(Posting),
		Children: make(map[rune]*Node),
	}
}

// Trie maps tokens to postings. Tries are filled by the index builder and are
// read-only afterwards, so lookups take no locks.
type Trie struct {
	Root   *Node
	tokens int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{Root: newNode()}
}

// Insert records that the document ref contains token with weight tf.
// Inserting the same ref twice overwrites the weight without changing DF.
func (t *Trie) Insert(token, ref string, tf float64) {
	if token == "" {
		return
	}
	node := t.Root
	for _, r := range token {
		child, ok := node.Children[r]
		if !ok {
			child = newNode()
			node.Children[r] = child
		}
		node = child
	}
	if _, exists := node.Docs[ref]; !exists {
		if node.DF == 0 {
			t.tokens++
		}
		node.DF++
	}
	node.Docs[ref] = TermFrequency{TF: tf}
}

// find returns the node reached by following token, or nil.
func (t *Trie) find(token string) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	node := t.Root
	for _, r := range token {
		child, ok := node.Children[r]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// Get returns the posting for an exact token. The boolean is false when the
// token was never indexed.
func (t *Trie) Get(token string) (Posting, bool) {
	node := t.find(token)
	if node == nil || node.DF == 0 {
		return nil, false
	}
	return node.Docs, true
}

// DocumentFrequency returns the number of documents containing token.
func (t *Trie) DocumentFrequency(token string) int {
	node := t.find(token)
	if node == nil {
		return 0
	}
	return node.DF
}

// Expand returns every indexed token starting with prefix, the prefix itself
// included when it is a token. The result is sorted.
func (t *Trie) Expand(prefix string) []string {
	node := t.find(prefix)
	if node == nil {
		return []string{}
	}
	var out []string
	var b strings.Builder
	b.WriteString(prefix)
	collect(node, &b, &out)
	sort.Strings(out)
	return out
}

func collect(node *Node, b *strings.Builder, out *[]string) {
	if node.DF > 0 {
		*out = append(*out, b.String())
	}
	for r, child := range node.Children {
		prev := b.String()
		b.WriteRune(r)
		collect(child, b, out)
		b.Reset()
		b.WriteString(prev)
	}
}

// Walk calls fn for every token in lexical order.
func (t *Trie) Walk(fn func(token string, posting Posting)) {
	for _, token := range t.Expand("") {
		posting, _ := t.Get(token)
		fn(token, posting)
	}
}

// Len returns the number of distinct tokens.
func (t *Trie) Len() int {
	return t.tokens
}

// recount recomputes the token count after a trie was decoded.
func (t *Trie) recount() {
	t.tokens = len(t.Expand(""))
}
