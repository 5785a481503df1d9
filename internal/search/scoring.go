package search

import (
	"math"
	"unicode/utf8"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/index"
	"github.com/diwan-editor/docsearch/store"
)

// expansionWeight scales the score of index tokens reached through prefix
// expansion rather than an exact match.
const expansionWeight = 0.15

// fieldOptions are the effective options of one field for one query.
type fieldOptions struct {
	boost   float64
	boolean string
	expand  bool
}

// fieldScorer scores query terms against the trie of one field.
type fieldScorer struct {
	field     string
	trie      *index.Trie
	documents *store.DocumentStore
}

// fieldResult holds the scores of one field, keyed by document ref.
type fieldResult struct {
	scores  map[string]float64
	matches map[string][]string // ref -> index tokens that contributed
	exact   map[string]int      // ref -> query terms matched exactly
}

// idf is the inverse document frequency of an index token:
// 1 + ln(N / (df + 1)).
func (fs *fieldScorer) idf(token string) float64 {
	df := fs.trie.DocumentFrequency(token)
	return 1 + math.Log(float64(fs.documents.Len())/float64(df+1))
}

// lengthNorm is 1/sqrt(field length), or 1 for an empty field.
func (fs *fieldScorer) lengthNorm(ref string) float64 {
	n := fs.documents.FieldLength(ref, fs.field)
	if n == 0 {
		return 1
	}
	return 1 / math.Sqrt(float64(n))
}

// expansionPenalty weighs an expanded token by how much of it the query
// term covers.
func expansionPenalty(key, term string) float64 {
	keyLen := float64(utf8.RuneCountInString(key))
	termLen := float64(utf8.RuneCountInString(term))
	return (1 - (keyLen-termLen)/keyLen) * expansionWeight
}

// score runs terms against the field. Terms are combined per opts.boolean: with
// OR a document needs one term, with AND every term. The result is not yet
// multiplied by the field boost.
func (fs *fieldScorer) score(terms []string, opts fieldOptions) fieldResult {
	res := fieldResult{
		matches: make(map[string][]string),
		exact:   make(map[string]int),
	}
	var acc map[string]float64

	for _, term := range terms {
		keys := []string{term}
		if opts.expand {
			keys = fs.trie.Expand(term)
		}

		termScores := make(map[string]float64)
		for _, key := range keys {
			posting, ok := fs.trie.Get(key)
			if !ok {
				continue
			}
			idf := fs.idf(key)
			for ref, tf := range posting {
				if acc != nil && opts.boolean == config.BoolAND {
					if _, kept := acc[ref]; !kept {
						continue
					}
				}
				if key == term {
					res.exact[ref]++
				}
				penalty := 1.0
				if key != term {
					penalty = expansionPenalty(key, term)
				}
				termScores[ref] += tf.TF * idf * fs.lengthNorm(ref) * penalty
				res.matches[ref] = append(res.matches[ref], key)
			}
		}
		acc = mergeScores(acc, termScores, opts.boolean)
	}

	res.scores = coordNorm(acc, res.exact, len(terms))
	return res
}

// mergeScores combines the scores of one more term into the accumulated
// scores. AND keeps only documents present in both.
func mergeScores(acc, scores map[string]float64, boolean string) map[string]float64 {
	if acc == nil {
		return scores
	}
	if boolean == config.BoolAND {
		intersection := make(map[string]float64, len(scores))
		for ref, s := range scores {
			if prev, ok := acc[ref]; ok {
				intersection[ref] = prev + s
			}
		}
		return intersection
	}
	for ref, s := range scores {
		acc[ref] += s
	}
	return acc
}

// coordNorm scales a score by the share of query terms the document matched
// exactly. Documents reached only through expansion are left unscaled.
func coordNorm(scores map[string]float64, exact map[string]int, n int) map[string]float64 {
	if scores == nil {
		return map[string]float64{}
	}
	for ref := range scores {
		matched, ok := exact[ref]
		if !ok {
			continue
		}
		scores[ref] = scores[ref] * float64(matched) / float64(n)
	}
	return scores
}
