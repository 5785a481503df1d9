package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/model"
)

// ErrManagerStopped is returned when a job is submitted after Stop.
var ErrManagerStopped = errors.New("job manager is shutting down")

const (
	defaultMaxAge       = 24 * time.Hour
	defaultCleanupEvery = time.Hour
)

// JobFunc is the body of a job. The job passed in is a copy; report progress
// through Manager.UpdateJobProgress.
type JobFunc func(ctx context.Context, job *model.Job) error

// Manager handles background job execution and tracking
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	cancels map[string]context.CancelFunc
	done    map[string]chan struct{}
	workers chan struct{} // limits concurrent jobs
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
	metrics *JobMetrics
	log     *slog.Logger

	maxAge       time.Duration
	cleanupEvery time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithMaxAge sets how long finished jobs are kept before cleanup.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithCleanupInterval sets how often finished jobs are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cleanupEvery = d
		}
	}
}

// WithPrometheus mirrors job outcomes into the given collectors.
func WithPrometheus(prom *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics.prom = prom
	}
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, opts ...Option) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		jobs:         make(map[string]*model.Job),
		cancels:      make(map[string]context.CancelFunc),
		done:         make(map[string]chan struct{}),
		workers:      make(chan struct{}, maxWorkers),
		ctx:          ctx,
		cancel:       cancel,
		metrics:      NewJobMetrics(nil),
		log:          logger.WithComponent("jobs"),
		maxAge:       defaultMaxAge,
		cleanupEvery: defaultCleanupEvery,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the background cleanup of finished jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.wg.Add(1)
	go m.cleanupRoutine()
	m.log.Info("job manager started", "workers", cap(m.workers), "max_age", m.maxAge)
}

// Stop cancels pending and running jobs and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	m.log.Info("job manager stopped")
}

// CreateJob registers a pending job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.done[job.ID] = make(chan struct{})
	m.metrics.RecordJobCreated(jobType)
	m.log.Debug("job created", "job_id", job.ID, "type", job.Type, "index", job.IndexName)
	return job.ID
}

// GetJob retrieves a copy of a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, internalErrors.NewJobNotFoundError(jobID)
	}
	return job.Clone(), nil
}

// ListJobs returns the jobs of an index ("" for every index), optionally
// filtered by status, oldest first.
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	result := make([]*model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if indexName != "" && job.IndexName != indexName {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		result = append(result, job.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ExecuteJob schedules a pending job. It returns immediately; the job waits
// for a free worker slot and then runs jobFunc.
func (m *Manager) ExecuteJob(jobID string, jobFunc JobFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}
	job, exists := m.jobs[jobID]
	if !exists {
		return internalErrors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, job.Status)
	}
	if _, scheduled := m.cancels[jobID]; scheduled {
		return fmt.Errorf("job with ID '%s' is already scheduled", jobID)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancels[jobID] = cancel
	m.wg.Add(1)
	go m.run(ctx, jobID, jobFunc)
	return nil
}

func (m *Manager) run(ctx context.Context, jobID string, jobFunc JobFunc) {
	defer m.wg.Done()

	select {
	case m.workers <- struct{}{}:
	case <-ctx.Done():
		m.finish(jobID, model.JobStatusCancelled, ctx.Err().Error(), 0)
		return
	}
	defer func() { <-m.workers }()

	if ctx.Err() != nil {
		m.finish(jobID, model.JobStatusCancelled, ctx.Err().Error(), 0)
		return
	}

	job, ok := m.markRunning(jobID)
	if !ok {
		return
	}

	start := time.Now()
	err := jobFunc(ctx, job)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		m.finish(jobID, model.JobStatusCompleted, "", elapsed)
		m.log.Info("job completed", "job_id", jobID, "type", job.Type, "index", job.IndexName, "took", elapsed)
	case ctx.Err() != nil:
		m.finish(jobID, model.JobStatusCancelled, err.Error(), elapsed)
		m.log.Warn("job cancelled", "job_id", jobID, "type", job.Type, "error", err)
	default:
		m.finish(jobID, model.JobStatusFailed, err.Error(), elapsed)
		m.log.Error("job failed", "job_id", jobID, "type", job.Type, "index", job.IndexName, "took", elapsed, "error", err)
	}
}

func (m *Manager) markRunning(jobID string) (*model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status != model.JobStatusPending {
		return nil, false
	}
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	m.metrics.RecordJobStatusChange(model.JobStatusPending, model.JobStatusRunning)
	return job.Clone(), true
}

// CancelJob cancels a pending or running job. Finished jobs are left as they
// are.
func (m *Manager) CancelJob(jobID string) error {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return internalErrors.NewJobNotFoundError(jobID)
	}
	if job.Status.IsTerminal() {
		m.mu.Unlock()
		return nil
	}
	cancel, scheduled := m.cancels[jobID]
	m.mu.Unlock()

	if scheduled {
		cancel()
		return nil
	}
	m.finish(jobID, model.JobStatusCancelled, "cancelled before scheduling", 0)
	return nil
}

// Wait blocks until the job reaches a terminal status or ctx is done.
func (m *Manager) Wait(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	done, exists := m.done[jobID]
	m.mu.RUnlock()
	if !exists {
		return nil, internalErrors.NewJobNotFoundError(jobID)
	}

	select {
	case <-done:
		return m.GetJob(jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) finish(jobID string, status model.JobStatus, errorMsg string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status.IsTerminal() {
		return
	}

	oldStatus := job.Status
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	now := time.Now()
	job.CompletedAt = &now

	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
	if done, ok := m.done[jobID]; ok {
		close(done)
	}

	m.metrics.RecordJobStatusChange(oldStatus, status)
	m.metrics.RecordJobFinished(job.Type, status, elapsed)
}

func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(m.maxAge)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how many
// were dropped.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			delete(m.done, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.log.Info("cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate
func (m *Manager) GetJobSuccessRate() float64 {
	return m.metrics.GetSuccessRate()
}

// GetCurrentWorkload returns the number of pending or running jobs
func (m *Manager) GetCurrentWorkload() int64 {
	return m.metrics.GetCurrentWorkload()
}
