package jobs

import (
	"sync"
	"time"

	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/model"
)

// JobMetricsData is a point-in-time copy of the job counters.
type JobMetricsData struct {
	JobsCreated          int64                     `json:"jobs_created"`
	JobsCompleted        int64                     `json:"jobs_completed"`
	JobsFailed           int64                     `json:"jobs_failed"`
	JobsCancelled        int64                     `json:"jobs_cancelled"`
	TotalExecutionTime   time.Duration             `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration             `json:"average_execution_time_ns"`
	JobsByType           map[model.JobType]int64   `json:"jobs_by_type"`
	JobsByStatus         map[model.JobStatus]int64 `json:"jobs_by_status"`
	SuccessRate          float64                   `json:"success_rate"`
	LastUpdated          time.Time                 `json:"last_updated"`
}

// JobMetrics tracks job counters in memory and mirrors final outcomes to
// Prometheus when a collector set is attached.
type JobMetrics struct {
	mu                 sync.RWMutex
	jobsCreated        int64
	jobsCompleted      int64
	jobsFailed         int64
	jobsCancelled      int64
	totalExecutionTime time.Duration
	jobsByType         map[model.JobType]int64
	jobsByStatus       map[model.JobStatus]int64
	lastUpdated        time.Time
	prom               *metrics.Metrics
}

// NewJobMetrics creates a new metrics collector. prom may be nil.
func NewJobMetrics(prom *metrics.Metrics) *JobMetrics {
	return &JobMetrics{
		jobsByType:   make(map[model.JobType]int64),
		jobsByStatus: make(map[model.JobStatus]int64),
		lastUpdated:  time.Now(),
		prom:         prom,
	}
}

// RecordJobCreated increments job creation counter
func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCreated++
	m.jobsByType[jobType]++
	m.jobsByStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status buckets.
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.jobsByStatus[oldStatus] > 0 {
		m.jobsByStatus[oldStatus]--
	}
	m.jobsByStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobFinished records the outcome of a job that left the running state.
func (m *JobMetrics) RecordJobFinished(jobType model.JobType, status model.JobStatus, executionTime time.Duration) {
	m.mu.Lock()
	switch status {
	case model.JobStatusCompleted:
		m.jobsCompleted++
		m.totalExecutionTime += executionTime
	case model.JobStatusFailed:
		m.jobsFailed++
	case model.JobStatusCancelled:
		m.jobsCancelled++
	}
	m.lastUpdated = time.Now()
	m.mu.Unlock()

	if m.prom != nil {
		m.prom.JobsTotal.WithLabelValues(string(jobType), string(status)).Inc()
		m.prom.JobDuration.WithLabelValues(string(jobType)).Observe(executionTime.Seconds())
	}
}

// GetMetrics returns a copy of the current counters.
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobsByType := make(map[model.JobType]int64, len(m.jobsByType))
	for k, v := range m.jobsByType {
		jobsByType[k] = v
	}
	jobsByStatus := make(map[model.JobStatus]int64, len(m.jobsByStatus))
	for k, v := range m.jobsByStatus {
		jobsByStatus[k] = v
	}

	var avg time.Duration
	if m.jobsCompleted > 0 {
		avg = m.totalExecutionTime / time.Duration(m.jobsCompleted)
	}

	return JobMetricsData{
		JobsCreated:          m.jobsCreated,
		JobsCompleted:        m.jobsCompleted,
		JobsFailed:           m.jobsFailed,
		JobsCancelled:        m.jobsCancelled,
		TotalExecutionTime:   m.totalExecutionTime,
		AverageExecutionTime: avg,
		JobsByType:           jobsByType,
		JobsByStatus:         jobsByStatus,
		SuccessRate:          m.successRateLocked(),
		LastUpdated:          m.lastUpdated,
	}
}

// GetSuccessRate returns the success rate (0.0 to 1.0)
func (m *JobMetrics) GetSuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successRateLocked()
}

func (m *JobMetrics) successRateLocked() float64 {
	finished := m.jobsCompleted + m.jobsFailed
	if finished == 0 {
		return 1.0
	}
	return float64(m.jobsCompleted) / float64(finished)
}

// GetCurrentWorkload returns the number of pending or running jobs
func (m *JobMetrics) GetCurrentWorkload() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.jobsByStatus[model.JobStatusPending] + m.jobsByStatus[model.JobStatusRunning]
}
