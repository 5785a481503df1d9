package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/jobs"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
)

// BuildIndexRequest is the body of PUT /indexes/:indexName/documents.
// Settings are optional; the configured defaults apply when omitted.
type BuildIndexRequest struct {
	Settings  *config.IndexSettings `json:"settings,omitempty"`
	Documents []model.Document      `json:"documents"`
}

// ListIndexesHandler lists all available indexes with their statistics.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	stats := make([]searchindex.Stats, 0, len(names))
	for _, name := range names {
		accessor, err := api.engine.GetIndex(name)
		if err != nil {
			// deleted since ListIndexes
			continue
		}
		stats = append(stats, accessor.Stats())
	}
	c.JSON(http.StatusOK, gin.H{"indexes": stats, "count": len(stats)})
}

// GetIndexHandler retrieves the settings and statistics of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	accessor, _, ok := api.getIndex(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settings": accessor.Settings(),
		"stats":    accessor.Stats(),
	})
}

// GetIndexStatsHandler returns document and token counts of an index.
func (api *API) GetIndexStatsHandler(c *gin.Context) {
	accessor, _, ok := api.getIndex(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, accessor.Stats())
}

// DeleteIndexHandler handles deleting an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.DeleteIndex(indexName); err != nil {
		api.sendEngineError(c, "delete index", indexName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// UpdateIndexSettingsHandler replaces the query-time settings of an index.
// Request Body: config.IndexSettings; fields, pipeline and lang may be
// omitted but not changed.
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var settings config.IndexSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if err := api.engine.UpdateIndexSettings(indexName, settings); err != nil {
		api.sendEngineError(c, "update settings", indexName, err)
		return
	}
	api.sendSettings(c, indexName)
}

// PatchIndexSettingsHandler changes only the settings present in the body.
// Request Body: config.SettingsPatch.
func (api *API) PatchIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var patch config.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	if err := api.engine.PatchIndexSettings(indexName, patch); err != nil {
		api.sendEngineError(c, "update settings", indexName, err)
		return
	}
	api.sendSettings(c, indexName)
}

func (api *API) sendSettings(c *gin.Context, indexName string) {
	updated, err := api.engine.GetIndexSettings(indexName)
	if err != nil {
		api.sendEngineError(c, "get settings", indexName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings of index '" + indexName + "' updated",
		"settings": updated,
	})
}

// RenameIndexRequest defines the structure for renaming an index
type RenameIndexRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

// RenameIndexHandler handles requests to rename an index
func (api *API) RenameIndexHandler(c *gin.Context) {
	oldName := c.Param("indexName")

	var req RenameIndexRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateRenameRequest(oldName, req.NewName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.RenameIndex(oldName, req.NewName); err != nil {
		api.sendEngineError(c, "rename index", oldName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Index '" + oldName + "' renamed to '" + req.NewName + "'",
		"old_name": oldName,
		"new_name": req.NewName,
	})
}

// BuildIndexHandler builds (or rebuilds) an index from documents in the
// background and answers 202 with the job ID.
// Request Body: BuildIndexRequest
func (api *API) BuildIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	var req BuildIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	settings := api.defaultSettings(indexName)
	if req.Settings != nil {
		settings = *req.Settings
		if settings.Name == "" {
			settings.Name = indexName
		}
	}
	result := ValidateIndexSettings(&settings)
	if settings.Name != indexName {
		result.AddError("settings.name", "Settings name '"+settings.Name+"' does not match index '"+indexName+"'")
	}
	if docResult := ValidateDocuments(req.Documents); docResult.HasErrors() {
		result.Errors = append(result.Errors, docResult.Errors...)
	}
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	jobID, err := api.engine.BuildIndexAsync(settings, req.Documents)
	if err != nil {
		if errors.Is(err, jobs.ErrManagerStopped) {
			SendJobExecutionError(c, "build index", err)
			return
		}
		api.sendEngineError(c, "build index", indexName, err)
		return
	}

	api.log.Info("index build accepted", "index", indexName, "documents", len(req.Documents), "job_id", jobID)
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Index build started for '" + indexName + "'",
		"job_id":  jobID,
	})
}

// ImportIndexHandler serves a generated searchindex.json or searchindex.js
// under the index name. The raw file is the request body. With ?async=true
// the file is decoded in the background and the job ID returned.
func (api *API) ImportIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			SendPayloadTooLargeError(c, tooLarge.Limit)
			return
		}
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Failed to read request body: "+err.Error())
		return
	}
	if len(data) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Request body must contain a search index file")
		return
	}

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async {
		jobID, err := api.engine.ImportIndexAsync(indexName, data)
		if err != nil {
			if errors.Is(err, jobs.ErrManagerStopped) {
				SendJobExecutionError(c, "import index", err)
				return
			}
			api.sendEngineError(c, "import index", indexName, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "accepted",
			"message": "Index import started for '" + indexName + "'",
			"job_id":  jobID,
		})
		return
	}

	if err := api.engine.ImportIndex(indexName, data); err != nil {
		api.sendEngineError(c, "import index", indexName, err)
		return
	}
	accessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		api.sendEngineError(c, "get index", indexName, err)
		return
	}
	api.log.Info("index imported", "index", indexName, "bytes", len(data))
	c.JSON(http.StatusCreated, gin.H{
		"message": "Index '" + indexName + "' imported successfully",
		"stats":   accessor.Stats(),
	})
}

// ExportIndexHandler serves the index in the file format browsers load:
// searchindex.js by default, bare JSON with ?format=json.
func (api *API) ExportIndexHandler(c *gin.Context) {
	accessor, indexName, ok := api.getIndex(c)
	if !ok {
		return
	}

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format := c.DefaultQuery("format", "js"); format {
	case "js":
		data, err = searchindex.MarshalJS(accessor.Index())
		contentType = "application/javascript; charset=utf-8"
	case "json":
		data, err = searchindex.Marshal(accessor.Index())
		contentType = "application/json; charset=utf-8"
	default:
		result := &ValidationResult{Valid: true}
		result.AddError("format", "Format must be 'js' or 'json', got '"+format+"'")
		SendValidationError(c, result)
		return
	}
	if err != nil {
		api.sendEngineError(c, "export index", indexName, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
