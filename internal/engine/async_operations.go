package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/jobs"
	"github.com/diwan-editor/docsearch/model"
)

// BuildIndexAsync builds an index in the background and returns the job ID.
// Job progress counts indexed documents.
func (e *Engine) BuildIndexAsync(settings config.IndexSettings, docs []model.Document) (string, error) {
	if err := validateName(settings.Name); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeBuildIndex, settings.Name, map[string]string{
		"operation":      "build_index",
		"document_count": strconv.Itoa(len(docs)),
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		cfg := e.bulk
		cfg.ProgressCallback = func(processed, total int, message string) {
			e.jobManager.UpdateJobProgress(job.ID, processed, total, message)
		}
		if err := e.buildIndex(ctx, settings, docs, cfg); err != nil {
			return err
		}
		e.jobManager.UpdateJobProgress(job.ID, len(docs), len(docs), "index built")
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start build index job: %w", err)
	}
	return jobID, nil
}

// ImportIndexAsync decodes and serves an index file in the background and
// returns the job ID.
func (e *Engine) ImportIndexAsync(name string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	jobID := e.jobManager.CreateJob(model.JobTypeImportIndex, name, map[string]string{
		"operation": "import_index",
		"bytes":     strconv.Itoa(len(data)),
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, _ *model.Job) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.ImportIndex(name, data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start import index job: %w", err)
	}
	return jobID, nil
}

// GetJob retrieves a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns the jobs of an index ("" for all), optionally by status.
func (e *Engine) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(indexName, status)
}

// CancelJob cancels a pending or running job.
func (e *Engine) CancelJob(jobID string) error {
	return e.jobManager.CancelJob(jobID)
}

// GetJobMetrics returns the job counters.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}
