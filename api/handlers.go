// Package api exposes the docsearch engine over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diwan-editor/docsearch/config"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/jobs"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/services"
)

// MaxRequestBodySize bounds request bodies. Index imports are the largest
// payloads the API accepts.
const MaxRequestBodySize = 64 << 20

// Engine is what the handlers need from the search engine.
type Engine interface {
	services.IndexManagerWithAsyncBuild
	services.JobManager
	GetJobMetrics() jobs.JobMetricsData
}

// Options configure the routes. The zero value serves no metrics and
// limits bodies to MaxRequestBodySize.
type Options struct {
	Metrics      *metrics.Metrics      // nil disables the metrics middleware and route
	MetricsPath  string                // "/metrics" when empty
	MaxBodyBytes int64                 // MaxRequestBodySize when zero
	Defaults     *config.IndexSettings // settings of builds that carry none
}

// API holds dependencies for API handlers, primarily the search engine manager.
type API struct {
	engine   Engine
	defaults *config.IndexSettings
	log      *slog.Logger
}

// NewAPI creates a new API handler structure. defaults may be nil.
func NewAPI(engine Engine, defaults *config.IndexSettings) *API {
	return &API{
		engine:   engine,
		defaults: defaults,
		log:      logger.WithComponent("api"),
	}
}

// SetupRoutes installs the middleware and every route of the API on router.
func SetupRoutes(router *gin.Engine, engine Engine, opts Options) *API {
	apiHandler := NewAPI(engine, opts.Defaults)

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = MaxRequestBodySize
	}

	router.Use(RequestIDMiddleware(), RequestLoggerMiddleware())
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	router.Use(CORSMiddleware(), RequestSizeLimitMiddleware(maxBody))

	router.GET("/health", apiHandler.HealthCheckHandler)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler) // Get job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)         // Get job status by ID
		jobRoutes.POST("/:jobId/cancel", apiHandler.CancelJobHandler)
	}

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                              // List all indexes
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)                      // Settings and statistics
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)                // Delete an index
		indexRoutes.PUT("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler)  // Replace query-time settings
		indexRoutes.PATCH("/:indexName/settings", apiHandler.PatchIndexSettingsHandler) // Change some query-time settings
		indexRoutes.POST("/:indexName/rename", apiHandler.RenameIndexHandler)           // Rename an index
		indexRoutes.GET("/:indexName/stats", apiHandler.GetIndexStatsHandler)           // Get index statistics
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)                 // List jobs for an index
		indexRoutes.POST("/:indexName/import", apiHandler.ImportIndexHandler)           // Load a searchindex.json/.js
		indexRoutes.GET("/:indexName/searchindex.js", apiHandler.ExportIndexHandler)    // Download the index file

		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.BuildIndexHandler)       // Build the index from documents
			docRoutes.GET("", apiHandler.GetDocumentsHandler)     // List documents with pagination
			docRoutes.GET("/:ref", apiHandler.GetDocumentHandler) // Get one document
		}

		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
		indexRoutes.POST("/:indexName/_multi_search", apiHandler.MultiSearchHandler)
	}

	return apiHandler
}

// HealthCheckHandler reports liveness and the number of served indexes.
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"indexes": len(api.engine.ListIndexes()),
	})
}

// defaultSettings returns the settings of a build request without settings.
func (api *API) defaultSettings(indexName string) config.IndexSettings {
	if api.defaults == nil {
		return config.DefaultIndexSettings(indexName)
	}
	settings := *api.defaults
	settings.Name = indexName
	settings.Fields = append([]string(nil), api.defaults.Fields...)
	settings.Pipeline = append([]string(nil), api.defaults.Pipeline...)
	settings.Search.Fields = make(map[string]config.FieldOptions, len(api.defaults.Search.Fields))
	for field, opts := range api.defaults.Search.Fields {
		settings.Search.Fields[field] = opts
	}
	return settings
}

// getIndex resolves the index named in the path, writing the error response
// when it cannot.
func (api *API) getIndex(c *gin.Context) (services.IndexAccessor, string, bool) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return nil, indexName, false
	}

	accessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		api.sendEngineError(c, "get index", indexName, err)
		return nil, indexName, false
	}
	return accessor, indexName, true
}

// sendEngineError maps engine errors to API error responses.
func (api *API) sendEngineError(c *gin.Context, operation, indexName string, err error) {
	var validationErr *internalErrors.ValidationError
	switch {
	case errors.Is(err, internalErrors.ErrIndexNotFound):
		SendIndexNotFoundError(c, indexName)
	case errors.Is(err, internalErrors.ErrIndexAlreadyExists):
		var exists *internalErrors.IndexAlreadyExistsError
		if errors.As(err, &exists) {
			indexName = exists.IndexName
		}
		SendIndexExistsError(c, indexName)
	case errors.Is(err, internalErrors.ErrSameName):
		SendSameNameError(c, indexName)
	case errors.Is(err, internalErrors.ErrDocumentNotFound):
		var notFound *internalErrors.DocumentNotFoundError
		if errors.As(err, &notFound) {
			SendDocumentNotFoundError(c, notFound.DocumentID, indexName)
			return
		}
		SendDocumentNotFoundError(c, c.Param("ref"), indexName)
	case errors.Is(err, internalErrors.ErrJobNotFound):
		var notFound *internalErrors.JobNotFoundError
		if errors.As(err, &notFound) {
			SendJobNotFoundError(c, notFound.JobID)
			return
		}
		SendJobNotFoundError(c, c.Param("jobId"))
	case errors.As(err, &validationErr):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed",
			ErrorDetail{Field: validationErr.Field, Message: validationErr.Message, Code: "VALIDATION_ERROR"})
	case errors.Is(err, internalErrors.ErrInvalidInput):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	case errors.Is(err, internalErrors.ErrInvalidIndexFile):
		SendInvalidIndexFileError(c, err)
	case errors.Is(err, internalErrors.ErrDuplicateDocument):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	case errors.Is(err, internalErrors.ErrPersistenceFailed):
		logger.FromContext(c.Request.Context()).Error("persistence failed",
			"operation", operation, "index", indexName, "error", err)
		SendPersistenceError(c, operation, err)
	default:
		logger.FromContext(c.Request.Context()).Error("request failed",
			"operation", operation, "index", indexName, "error", err)
		SendInternalError(c, operation, err)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, internalErrors.ErrInvalidInput)
}
