package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diwan-editor/docsearch/model"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := api.engine.GetJob(jobID)
	if err != nil {
		api.sendEngineError(c, "get job", "", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelJobHandler cancels a pending or running job. Cancelling a finished
// job is a no-op that reports the final state.
func (api *API) CancelJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	if err := api.engine.CancelJob(jobID); err != nil {
		api.sendEngineError(c, "cancel job", "", err)
		return
	}
	job, err := api.engine.GetJob(jobID)
	if err != nil {
		api.sendEngineError(c, "get job", "", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler handles requests to list jobs for an index
func (api *API) ListJobsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	statusParam := c.Query("status")

	var statusFilter *model.JobStatus
	if statusParam != "" {
		status := model.JobStatus(statusParam)
		if !status.Valid() {
			result := &ValidationResult{Valid: true}
			result.AddError("status", "Unknown job status '"+statusParam+"'")
			SendValidationError(c, result)
			return
		}
		statusFilter = &status
	}

	jobs := api.engine.ListJobs(indexName, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":       jobs,
		"index_name": indexName,
		"total":      len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": api.engine.GetJobMetrics()})
}
