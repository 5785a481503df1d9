// Package testing provides utilities and helpers for testing the search service.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/engine"
	"github.com/diwan-editor/docsearch/internal/persistence"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/services"
)

// FixturePath returns the path of the generated searchindex.js used across
// tests. Its three documents come from a single introduction chapter.
func FixturePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "searchindex", "testdata", "searchindex.js")
}

// ReadFixture returns the bytes of the fixture index.
func ReadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(FixturePath())
	require.NoError(t, err, "Failed to read fixture index")
	return data
}

// CreateTestEngine creates an engine persisting to a temporary directory.
// The engine is closed when the test ends.
func CreateTestEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	storage, err := persistence.OpenStorage("file", t.TempDir(), time.Second)
	require.NoError(t, err, "Failed to open test storage")

	eng, err := engine.New(append([]engine.Option{engine.WithStorage(storage)}, opts...)...)
	require.NoError(t, err, "Failed to create test engine")
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// ImportFixture loads the fixture index into eng under name.
func ImportFixture(t *testing.T, eng services.IndexManager, name string) {
	t.Helper()
	require.NoError(t, eng.ImportIndex(name, ReadFixture(t)), "Failed to import fixture index")
}

// DiwanDocuments returns three small documents about the Diwan editor.
// "rust" matches documents 1 and 0.
func DiwanDocuments() []model.Document {
	return []model.Document{
		{ID: 0, Title: "Overview of Diwan", Body: "Diwan is a modal text editor written in Rust.",
			Breadcrumbs: "Introduction » Overview of Diwan", URL: "introduction.html#overview-of-diwan"},
		{ID: 1, Title: "Why Rust", Body: "Rust gives the editor memory safety without a garbage collector.",
			Breadcrumbs: "Introduction » Why Rust", URL: "introduction.html#why-rust"},
		{ID: 2, Title: "History of the Name", Body: "A diwan is a collection of poems by one poet.",
			Breadcrumbs: "Introduction » History of the Name", URL: "introduction.html#history-of-the-name"},
	}
}

// CreateTestIndex builds DiwanDocuments into an index with default settings.
func CreateTestIndex(t *testing.T, eng services.IndexManager, indexName string) config.IndexSettings {
	t.Helper()
	settings := config.DefaultIndexSettings(indexName)
	err := eng.BuildIndex(context.Background(), settings, DiwanDocuments())
	require.NoError(t, err, "Failed to build test index")
	return settings
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
	}
}

// WaitForJob polls a job until it leaves the pending and running states or
// the timeout expires.
func WaitForJob(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not finish within %v", jobID, opts.Timeout)
			return nil
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			if job.Status.IsTerminal() {
				return job
			}
			if opts.LogProgress && job.Progress != nil {
				t.Logf("Job %s progress: %d/%d - %s",
					jobID, job.Progress.Current, job.Progress.Total, job.Progress.Message)
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// HitRefs returns the refs of the hits in rank order.
func HitRefs(result services.SearchResult) []string {
	refs := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		refs = append(refs, h.Ref)
	}
	return refs
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name          string
	Query         services.SearchQuery
	ExpectedCount int
	ExpectedRefs  []string // hit refs in rank order, checked when set
	ValidateFunc  func(t *testing.T, results *services.SearchResult)
}

// RunSearchTests runs a suite of search tests against an index
func RunSearchTests(t *testing.T, searcher services.Searcher, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			results, err := searcher.Search(context.Background(), tt.Query)
			require.NoError(t, err, "Search should not fail")

			assert.Equal(t, tt.ExpectedCount, results.Total, "Result count should match")
			if tt.ExpectedRefs != nil {
				assert.Equal(t, tt.ExpectedRefs, HitRefs(results), "Hit order should match")
			}
			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, &results)
			}
		})
	}
}
