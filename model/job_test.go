package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobProgress_Percentage(t *testing.T) {
	assert.Equal(t, 0.0, (&JobProgress{}).GetProgressPercentage())
	assert.Equal(t, 25.0, (&JobProgress{Current: 1, Total: 4}).GetProgressPercentage())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusRunning.Valid())
	assert.False(t, JobStatus("done").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJob_CloneIsDeep(t *testing.T) {
	job := &Job{
		ID:       "j1",
		Progress: &JobProgress{Current: 1, Total: 2},
		Metadata: map[string]string{"documents": "3"},
	}

	c := job.Clone()
	c.Progress.Current = 2
	c.Metadata["documents"] = "4"

	assert.Equal(t, 1, job.Progress.Current)
	assert.Equal(t, "3", job.Metadata["documents"])
}
