package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diwan-editor/docsearch/config"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/internal/tokenizer"
	"github.com/diwan-editor/docsearch/services"
)

// Service answers queries against one frozen index.
// It fulfills the services.Searcher interface and is safe for concurrent use.
type Service struct {
	idx      *searchindex.Index
	pipeline *tokenizer.Pipeline
}

// NewService creates a search Service for idx. The query pipeline is the
// one recorded in the index, so queries are analyzed like the documents.
func NewService(idx *searchindex.Index) (*Service, error) {
	if idx == nil || idx.Inverted == nil || idx.Documents == nil {
		return nil, fmt.Errorf("search index cannot be nil")
	}
	pipeline, err := tokenizer.NewPipeline(idx.Inverted.Pipeline...)
	if err != nil {
		return nil, fmt.Errorf("index '%s': %w", idx.Settings.Name, err)
	}
	return &Service{idx: idx, pipeline: pipeline}, nil
}

// Index returns the index the service searches.
func (s *Service) Index() *searchindex.Index {
	return s.idx
}

// Terms runs the query pipeline over a query string.
func (s *Service) Terms(query string) []string {
	return s.pipeline.Run(query)
}

// resolveFields merges the query overrides with the index search options and
// returns the searched fields in index order.
func (s *Service) resolveFields(query services.SearchQuery) ([]string, map[string]fieldOptions, error) {
	settings := s.idx.Settings

	boolean := settings.Search.Bool
	if query.Bool != "" {
		boolean = query.Bool
	}
	boolean = strings.ToUpper(boolean)
	if boolean != config.BoolOR && boolean != config.BoolAND {
		return nil, nil, internalErrors.NewValidationError("bool", fmt.Sprintf("must be 'OR' or 'AND', got '%s'", boolean))
	}
	expand := settings.Search.Expand
	if query.Expand != nil {
		expand = *query.Expand
	}

	for name := range query.Fields {
		if !s.idx.Inverted.HasField(name) {
			return nil, nil, internalErrors.NewValidationError("fields", fmt.Sprintf("field '%s' is not indexed", name))
		}
	}

	var fields []string
	opts := make(map[string]fieldOptions, len(s.idx.Inverted.Fields))
	for _, name := range s.idx.Inverted.Fields {
		o := fieldOptions{boost: settings.Boost(name), boolean: boolean, expand: expand}
		if len(query.Fields) > 0 {
			fq, ok := query.Fields[name]
			if !ok {
				continue
			}
			if fq.Boost != nil {
				if *fq.Boost < 0 {
					return nil, nil, internalErrors.NewValidationError("fields", fmt.Sprintf("boost for field '%s' cannot be negative", name))
				}
				o.boost = *fq.Boost
			}
			if fq.Bool != "" {
				o.boolean = strings.ToUpper(fq.Bool)
				if o.boolean != config.BoolOR && o.boolean != config.BoolAND {
					return nil, nil, internalErrors.NewValidationError("fields", fmt.Sprintf("bool for field '%s' must be 'OR' or 'AND'", name))
				}
			}
			if fq.Expand != nil {
				o.expand = *fq.Expand
			}
		}
		fields = append(fields, name)
		opts[name] = o
	}
	return fields, opts, nil
}

// Search runs query against the index. A query without matches, or whose
// terms are all stop words, returns an empty result and no error.
func (s *Service) Search(ctx context.Context, query services.SearchQuery) (services.SearchResult, error) {
	startTime := time.Now()

	if query.Limit < 0 {
		return services.SearchResult{}, internalErrors.NewValidationError("limit", "cannot be negative")
	}
	fields, opts, err := s.resolveFields(query)
	if err != nil {
		return services.SearchResult{}, err
	}

	terms := s.pipeline.Run(query.QueryString)
	result := services.SearchResult{
		Hits:    []services.HitResult{},
		Terms:   terms,
		QueryId: uuid.New().String(),
	}
	if len(terms) == 0 {
		result.Took = time.Since(startTime).Milliseconds()
		return result, nil
	}

	scores := make(map[string]float64)
	fieldScores := make(map[string]map[string]float64)
	fieldMatches := make(map[string]map[string][]string)
	for _, field := range fields {
		if err := ctx.Err(); err != nil {
			return services.SearchResult{}, err
		}
		o := opts[field]
		if o.boost == 0 {
			continue
		}
		scorer := &fieldScorer{field: field, trie: s.idx.Inverted.Field(field), documents: s.idx.Documents}
		fr := scorer.score(terms, o)
		for ref, score := range fr.scores {
			boosted := score * o.boost
			scores[ref] += boosted
			if fieldScores[ref] == nil {
				fieldScores[ref] = make(map[string]float64)
				fieldMatches[ref] = make(map[string][]string)
			}
			fieldScores[ref][field] = boosted
			fieldMatches[ref][field] = uniqueSorted(fr.matches[ref])
		}
	}

	refs := rank(scores)
	result.Total = len(refs)

	limit := s.idx.Settings.Results.LimitResults
	if query.Limit > 0 {
		limit = query.Limit
	}
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}

	teaserSize := s.idx.Settings.Results.TeaserWordCount
	if query.TeaserWordCount > 0 {
		teaserSize = query.TeaserWordCount
	}
	queryWords := strings.Fields(query.QueryString)

	for _, ref := range refs {
		hit := services.HitResult{
			Ref:          ref,
			FieldMatches: fieldMatches[ref],
			Score:        scores[ref],
			Info: services.HitInfo{
				FieldScores:  fieldScores[ref],
				MatchedTerms: s.matchedTerms(ref, terms, fields),
			},
		}
		if doc, ok := s.idx.Document(ref); ok {
			hit.Document = doc
			hit.Teaser = Teaser(doc.Body, queryWords, teaserSize)
		}
		result.Hits = append(result.Hits, hit)
	}

	result.Took = time.Since(startTime).Milliseconds()
	logger.FromContext(ctx).Debug("search executed",
		"index", s.idx.Settings.Name,
		"terms", terms,
		"total", result.Total,
		"took_ms", result.Took)
	return result, nil
}

// matchedTerms counts the distinct query terms found exactly for ref in any
// of the searched fields.
func (s *Service) matchedTerms(ref string, terms []string, fields []string) int {
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		for _, field := range fields {
			if posting, ok := s.idx.Inverted.Field(field).Get(term); ok {
				if _, hit := posting[ref]; hit {
					seen[term] = true
					break
				}
			}
		}
	}
	return len(seen)
}

// rank orders refs by score, highest first. Equal scores keep document order.
func rank(scores map[string]float64) []string {
	refs := make([]string, 0, len(scores))
	for ref := range scores {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return refs
}

func uniqueSorted(tokens []string) []string {
	if len(tokens) == 0 {
		return []string{}
	}
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
