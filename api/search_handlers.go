package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/services"
)

// SearchRequest defines the structure for search queries.
type SearchRequest struct {
	Query           string                         `json:"query"`
	Bool            string                         `json:"bool,omitempty"`   // "OR" or "AND", index setting when empty
	Expand          *bool                          `json:"expand,omitempty"` // prefix expansion, index setting when nil
	Fields          map[string]services.FieldQuery `json:"fields,omitempty"`
	Limit           int                            `json:"limit,omitempty"`
	TeaserWordCount int                            `json:"teaser_word_count,omitempty"`
}

// MultiSearchRequest represents the JSON request for multi-search
type MultiSearchRequest struct {
	Queries []NamedSearchRequest `json:"queries" binding:"required"`
	Limit   int                  `json:"limit,omitempty"`
}

// NamedSearchRequest represents a single named search query in the request
type NamedSearchRequest struct {
	Name string `json:"name" binding:"required"`
	SearchRequest
}

func (req SearchRequest) toQuery() services.SearchQuery {
	return services.SearchQuery{
		QueryString:     req.Query,
		Bool:            strings.ToUpper(req.Bool),
		Expand:          req.Expand,
		Fields:          req.Fields,
		Limit:           req.Limit,
		TeaserWordCount: req.TeaserWordCount,
	}
}

// validate checks the options that do not depend on the index.
func (req SearchRequest) validate(prefix string, result *ValidationResult) {
	if !validBool(req.Bool) {
		result.AddError(prefix+"bool", "Bool must be 'OR' or 'AND', got '"+req.Bool+"'")
	}
	for field, opts := range req.Fields {
		if !validBool(opts.Bool) {
			result.AddError(prefix+"fields."+field+".bool", "Bool must be 'OR' or 'AND', got '"+opts.Bool+"'")
		}
		if opts.Boost != nil && *opts.Boost < 0 {
			result.AddError(prefix+"fields."+field+".boost", "Boost cannot be negative")
		}
	}
	if req.Limit < 0 {
		result.AddError(prefix+"limit", "Limit cannot be negative")
	}
	if req.TeaserWordCount < 0 {
		result.AddError(prefix+"teaser_word_count", "Teaser word count cannot be negative")
	}
}

func validBool(b string) bool {
	switch strings.ToUpper(b) {
	case "", config.BoolOR, config.BoolAND:
		return true
	}
	return false
}

// SearchHandler handles search requests to an index.
// Request Body: SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	accessor, indexName, ok := api.getIndex(c)
	if !ok {
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}
	result := &ValidationResult{Valid: true}
	req.validate("", result)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := accessor.Search(c.Request.Context(), req.toQuery())
	if err != nil {
		api.sendSearchError(c, indexName, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// MultiSearchHandler handles multi-query search requests to an index.
// Request Body: MultiSearchRequest
func (api *API) MultiSearchHandler(c *gin.Context) {
	accessor, indexName, ok := api.getIndex(c)
	if !ok {
		return
	}

	var req MultiSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return
	}

	// Validate that we have at least one query
	if len(req.Queries) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "At least one query is required")
		return
	}

	// Validate query names are unique
	result := &ValidationResult{Valid: true}
	queryNames := make(map[string]bool, len(req.Queries))
	for _, namedQuery := range req.Queries {
		if namedQuery.Name == "" {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "All queries must have a non-empty name")
			return
		}
		if queryNames[namedQuery.Name] {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Query names must be unique: '"+namedQuery.Name+"' appears multiple times")
			return
		}
		queryNames[namedQuery.Name] = true
		namedQuery.validate("queries."+namedQuery.Name+".", result)
	}
	if req.Limit < 0 {
		result.AddError("limit", "Limit cannot be negative")
	}
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	multiQuery := services.MultiSearchQuery{Limit: req.Limit}
	for _, namedReq := range req.Queries {
		multiQuery.Queries = append(multiQuery.Queries, services.NamedSearchQuery{
			Name:        namedReq.Name,
			SearchQuery: namedReq.toQuery(),
		})
	}

	results, err := accessor.MultiSearch(c.Request.Context(), multiQuery)
	if err != nil {
		api.sendSearchError(c, indexName, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// sendSearchError reports invalid query options as 400 and anything else
// as a search failure.
func (api *API) sendSearchError(c *gin.Context, indexName string, err error) {
	if c.Request.Context().Err() != nil {
		SendError(c, http.StatusRequestTimeout, ErrorCodeSearchFailed, "Search cancelled: "+err.Error())
		return
	}
	if isValidationError(err) {
		api.sendEngineError(c, "search", indexName, err)
		return
	}
	SendSearchError(c, indexName, err)
}
