package services

import (
	"context"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
)

// HitInfo explains how a hit was scored.
type HitInfo struct {
	FieldScores  map[string]float64 `json:"field_scores"`  // Boosted score contributed by each field
	MatchedTerms int                `json:"matched_terms"` // Number of query terms found exactly in some field
}

// HitResult represents a single document in the search results,
// including the document itself and the index tokens that matched per field.
type HitResult struct {
	Ref          string              `json:"ref"`
	Document     model.Document      `json:"document"`
	FieldMatches map[string][]string `json:"field_matches"` // e.g., {"title": ["diwan"], "body": ["rust", "rusti"]}
	Score        float64             `json:"score"`
	Teaser       string              `json:"teaser,omitempty"` // Body excerpt with matches wrapped in <em>
	Info         HitInfo             `json:"hit_info"`
}

type SearchResult struct {
	Hits    []HitResult `json:"hits"`
	Total   int         `json:"total"`    // matches before the limit was applied
	Terms   []string    `json:"terms"`    // query terms after the pipeline
	Took    int64       `json:"took"`     // milliseconds
	QueryId string      `json:"query_id"` // unique UUID for this search query
}

// FieldQuery overrides the index options of one field for a single query.
type FieldQuery struct {
	Boost  *float64 `json:"boost,omitempty"`
	Bool   string   `json:"bool,omitempty"`
	Expand *bool    `json:"expand,omitempty"`
}

// SearchQuery is a query against one index. Zero values fall back to the
// search_options and results_options stored with the index.
type SearchQuery struct {
	QueryString     string                `json:"query"`
	Bool            string                `json:"bool,omitempty"`              // "OR" or "AND"
	Expand          *bool                 `json:"expand,omitempty"`            // match tokens starting with a query term
	Fields          map[string]FieldQuery `json:"fields,omitempty"`            // restricts the searched fields when set
	Limit           int                   `json:"limit,omitempty"`             // overrides limit_results
	TeaserWordCount int                   `json:"teaser_word_count,omitempty"` // overrides teaser_word_count
}

// MultiSearchQuery represents a request to execute multiple named search queries
type MultiSearchQuery struct {
	Queries []NamedSearchQuery `json:"queries"`
	Limit   int                `json:"limit,omitempty"`
}

// NamedSearchQuery represents a single named search query within a multi-search request
type NamedSearchQuery struct {
	Name string `json:"name"`
	SearchQuery
}

// MultiSearchResult represents the response from a multi-search operation
type MultiSearchResult struct {
	Results          map[string]SearchResult `json:"results"`
	TotalQueries     int                     `json:"total_queries"`
	ProcessingTimeMs float64                 `json:"processing_time_ms"`
}

// Searcher defines operations for querying an index
type Searcher interface {
	Search(ctx context.Context, query SearchQuery) (SearchResult, error)
}

// MultiSearcher defines operations for performing multiple queries in a single request
type MultiSearcher interface {
	MultiSearch(ctx context.Context, query MultiSearchQuery) (*MultiSearchResult, error)
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	BuildIndex(ctx context.Context, settings config.IndexSettings, docs []model.Document) error
	ImportIndex(name string, data []byte) error
	GetIndex(name string) (IndexAccessor, error)
	GetIndexSettings(name string) (config.IndexSettings, error)
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	PatchIndexSettings(name string, patch config.SettingsPatch) error
	RenameIndex(oldName, newName string) error
	DeleteIndex(name string) error
	ListIndexes() []string
}

// IndexManagerWithAsyncBuild extends IndexManager with background builds
type IndexManagerWithAsyncBuild interface {
	IndexManager
	BuildIndexAsync(settings config.IndexSettings, docs []model.Document) (string, error) // Returns job ID
	ImportIndexAsync(name string, data []byte) (string, error)                            // Returns job ID
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
	CancelJob(jobID string) error
}

// IndexAccessor gives read access to one loaded index.
type IndexAccessor interface {
	Searcher
	MultiSearcher
	Settings() config.IndexSettings
	Stats() searchindex.Stats
	Index() *searchindex.Index
	Document(ref string) (model.Document, error)
}
