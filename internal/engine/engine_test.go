package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwan-editor/docsearch/config"
	"github.com/diwan-editor/docsearch/internal/cache"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/metrics"
	"github.com/diwan-editor/docsearch/internal/persistence"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/services"
)

const fixture = "../searchindex/testdata/searchindex.js"

func diwanDocs() []model.Document {
	return []model.Document{
		{
			ID: 0, Title: "Overview of Diwan",
			Body:        "Diwan is a modal text editor written in Rust.",
			Breadcrumbs: "Introduction » Overview of Diwan",
			URL:         "introduction.html#overview-of-diwan",
		},
		{
			ID: 1, Title: "Why Rust",
			Body:        "Rust gives the editor memory safety without a garbage collector.",
			Breadcrumbs: "Introduction » Why Rust",
			URL:         "introduction.html#why-rust",
		},
		{
			ID: 2, Title: "History of the Name",
			Body:        "A diwan is a collection of poems by one poet.",
			Breadcrumbs: "Introduction » History of the Name",
			URL:         "introduction.html#history-of-the-name",
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	return data
}

func refs(result services.SearchResult) []string {
	out := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		out = append(out, h.Ref)
	}
	return out
}

func searchIndex(t *testing.T, e *Engine, name, query string) services.SearchResult {
	t.Helper()
	accessor, err := e.GetIndex(name)
	require.NoError(t, err)
	result, err := accessor.Search(context.Background(), services.SearchQuery{QueryString: query})
	require.NoError(t, err)
	return result
}

func waitJob(t *testing.T, e *Engine, jobID string) *model.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := e.Jobs().Wait(ctx, jobID)
	require.NoError(t, err)
	return job
}

type failingStorage struct {
	persistence.Storage
}

func (failingStorage) Set(string, []byte) error {
	return errors.New("disk full")
}

func (failingStorage) Delete(string) error {
	return errors.New("disk full")
}

func (failingStorage) ForEach(func(string, []byte) error) error { return nil }

func (failingStorage) Close() error { return nil }

func (failingStorage) Path() string { return "failing" }

func TestEngine_PersistenceFailure(t *testing.T) {
	e := newTestEngine(t, WithStorage(failingStorage{}))

	err := e.ImportIndex("diwan", readFixture(t))
	assert.ErrorIs(t, err, internalErrors.ErrPersistenceFailed)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, e.ListIndexes())
}

func TestEngine_BuildAndSearch(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.BuildIndex(context.Background(), config.DefaultIndexSettings("diwan"), diwanDocs()))

	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust")))
	assert.Equal(t, []string{"2"}, refs(searchIndex(t, e, "diwan", "poet")))
	assert.Empty(t, searchIndex(t, e, "diwan", "helix").Hits)

	accessor, err := e.GetIndex("diwan")
	require.NoError(t, err)
	doc, err := accessor.Document("2")
	require.NoError(t, err)
	assert.Equal(t, "introduction.html#history-of-the-name", doc.URL)
	assert.Equal(t, 3, accessor.Stats().Documents)

	_, err = accessor.Document("7")
	assert.ErrorIs(t, err, internalErrors.ErrDocumentNotFound)
	assert.EqualError(t, err, "document with ID '7' not found in index 'diwan'")
}

func TestEngine_BuildReplacesIndex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), diwanDocs()))
	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), diwanDocs()[:1]))

	accessor, err := e.GetIndex("diwan")
	require.NoError(t, err)
	assert.Equal(t, 1, accessor.Stats().Documents)
	assert.Equal(t, []string{"diwan"}, e.ListIndexes())
}

func TestEngine_BuildIndexErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.BuildIndex(ctx, config.DefaultIndexSettings(""), diwanDocs())
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	docs := diwanDocs()
	docs[1].ID = 0
	err = e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), docs)
	assert.ErrorIs(t, err, internalErrors.ErrDuplicateDocument)

	_, err = e.GetIndex("diwan")
	assert.ErrorIs(t, err, internalErrors.ErrIndexNotFound)
}

func TestEngine_ImportGeneratedIndex(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.ImportIndex("diwan", readFixture(t)))

	result := searchIndex(t, e, "diwan", "rust")
	require.Len(t, result.Hits, 2)
	assert.Equal(t, []string{"1", "0"}, refs(result))
	assert.InDelta(t, 2.27279968980431, result.Hits[0].Score, 1e-9)

	settings, err := e.GetIndexSettings("diwan")
	require.NoError(t, err)
	assert.Equal(t, "diwan", settings.Name)
}

func TestEngine_ImportInvalidFile(t *testing.T) {
	e := newTestEngine(t)

	err := e.ImportIndex("diwan", []byte("Object.assign(window.search, {"))
	assert.ErrorIs(t, err, internalErrors.ErrInvalidIndexFile)
	assert.Empty(t, e.ListIndexes())
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"diwan", true},
		{"diwan-0.1", true},
		{"", false},
		{"   ", false},
		{" diwan", false},
		{"a/b", false},
		{`a\b`, false},
		{"..", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
			}
		})
	}
}

func TestEngine_DeleteIndex(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.ImportIndex("diwan", readFixture(t)))

	require.NoError(t, e.DeleteIndex("diwan"))
	assert.Empty(t, e.ListIndexes())
	assert.ErrorIs(t, e.DeleteIndex("diwan"), internalErrors.ErrIndexNotFound)
}

func TestEngine_RenameIndex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.ImportIndex("diwan", readFixture(t)))
	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("other"), diwanDocs()))

	assert.ErrorIs(t, e.RenameIndex("diwan", "diwan"), internalErrors.ErrSameName)
	assert.ErrorIs(t, e.RenameIndex("missing", "x"), internalErrors.ErrIndexNotFound)
	assert.ErrorIs(t, e.RenameIndex("diwan", "other"), internalErrors.ErrIndexAlreadyExists)
	assert.ErrorIs(t, e.RenameIndex("diwan", "a/b"), internalErrors.ErrInvalidInput)

	require.NoError(t, e.RenameIndex("diwan", "diwan-docs"))
	assert.Equal(t, []string{"diwan-docs", "other"}, e.ListIndexes())

	settings, err := e.GetIndexSettings("diwan-docs")
	require.NoError(t, err)
	assert.Equal(t, "diwan-docs", settings.Name)
	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan-docs", "rust")))
}

func TestEngine_UpdateIndexSettings(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.ImportIndex("diwan", readFixture(t)))

	current, err := e.GetIndexSettings("diwan")
	require.NoError(t, err)

	and := current
	and.Search.Bool = config.BoolAND
	require.NoError(t, e.UpdateIndexSettings("diwan", and))

	updated, err := e.GetIndexSettings("diwan")
	require.NoError(t, err)
	assert.Equal(t, config.BoolAND, updated.Search.Bool)
	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust editor")))

	fields := current
	fields.Fields = []string{"title"}
	err = e.UpdateIndexSettings("diwan", fields)
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "requires rebuilding")

	renamed := current
	renamed.Name = "other"
	assert.ErrorIs(t, e.UpdateIndexSettings("diwan", renamed), internalErrors.ErrInvalidInput)

	badBool := current
	badBool.Search.Bool = "XOR"
	assert.ErrorIs(t, e.UpdateIndexSettings("diwan", badBool), internalErrors.ErrInvalidInput)

	assert.ErrorIs(t, e.UpdateIndexSettings("missing", current), internalErrors.ErrIndexNotFound)
}

func TestEngine_PatchIndexSettings(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.ImportIndex("diwan", readFixture(t)))

	limit := 1
	require.NoError(t, e.PatchIndexSettings("diwan", config.SettingsPatch{
		Results: &config.ResultsOptionsPatch{LimitResults: &limit},
	}))
	settings, err := e.GetIndexSettings("diwan")
	require.NoError(t, err)
	assert.Equal(t, 1, settings.Results.LimitResults)
	assert.True(t, settings.Search.Expand)
	assert.Equal(t, 2.0, settings.Boost("title"))
	assert.Equal(t, []string{"1"}, refs(searchIndex(t, e, "diwan", "rust")))

	lang := "French"
	err = e.PatchIndexSettings("diwan", config.SettingsPatch{Lang: &lang})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	assert.ErrorIs(t, e.PatchIndexSettings("missing", config.SettingsPatch{}), internalErrors.ErrIndexNotFound)
}

func TestEngine_PersistsAcrossRestarts(t *testing.T) {
	for _, engineName := range []string{"bolt", "file"} {
		t.Run(engineName, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "indexes")
			if engineName == "bolt" {
				path += ".db"
			}
			open := func() *Engine {
				storage, err := persistence.OpenStorage(engineName, path, time.Second)
				require.NoError(t, err)
				e, err := New(WithStorage(storage))
				require.NoError(t, err)
				return e
			}

			e := open()
			require.NoError(t, e.ImportIndex("diwan", readFixture(t)))
			require.NoError(t, e.BuildIndex(context.Background(), config.DefaultIndexSettings("small"), diwanDocs()))
			require.NoError(t, e.RenameIndex("small", "tiny"))
			require.NoError(t, e.Close())

			e = open()
			assert.Equal(t, []string{"diwan", "tiny"}, e.ListIndexes())
			assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust")))
			assert.Equal(t, []string{"2"}, refs(searchIndex(t, e, "tiny", "poet")))

			require.NoError(t, e.DeleteIndex("diwan"))
			require.NoError(t, e.Close())

			e = open()
			defer e.Close()
			assert.Equal(t, []string{"tiny"}, e.ListIndexes())
		})
	}
}

func TestEngine_BuildIndexAsync(t *testing.T) {
	e := newTestEngine(t)

	jobID, err := e.BuildIndexAsync(config.DefaultIndexSettings("diwan"), diwanDocs())
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitJob(t, e, jobID)
	assert.Equal(t, model.JobTypeBuildIndex, job.Type)
	assert.Equal(t, model.JobStatusCompleted, job.Status, job.Error)
	assert.Equal(t, "diwan", job.IndexName)
	assert.Equal(t, "3", job.Metadata["document_count"])
	require.NotNil(t, job.Progress)
	assert.Equal(t, 3, job.Progress.Current)
	assert.Equal(t, 3, job.Progress.Total)

	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust")))

	listed := e.ListJobs("diwan", nil)
	require.Len(t, listed, 1)
	assert.Equal(t, jobID, listed[0].ID)
	assert.Equal(t, int64(1), e.GetJobMetrics().JobsCompleted)
}

func TestEngine_AsyncFailures(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.BuildIndexAsync(config.DefaultIndexSettings(""), diwanDocs())
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	docs := diwanDocs()
	docs[2].ID = 1
	jobID, err := e.BuildIndexAsync(config.DefaultIndexSettings("diwan"), docs)
	require.NoError(t, err)
	job := waitJob(t, e, jobID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "already added")

	jobID, err = e.ImportIndexAsync("diwan", []byte("{}"))
	require.NoError(t, err)
	job = waitJob(t, e, jobID)
	assert.Equal(t, model.JobTypeImportIndex, job.Type)
	assert.Equal(t, model.JobStatusFailed, job.Status)

	_, err = e.GetJob("missing")
	assert.ErrorIs(t, err, internalErrors.ErrJobNotFound)
	assert.ErrorIs(t, e.CancelJob("missing"), internalErrors.ErrJobNotFound)
}

func TestEngine_ImportIndexAsync(t *testing.T) {
	e := newTestEngine(t)

	jobID, err := e.ImportIndexAsync("diwan", readFixture(t))
	require.NoError(t, err)
	job := waitJob(t, e, jobID)
	assert.Equal(t, model.JobStatusCompleted, job.Status, job.Error)
	assert.Equal(t, []string{"diwan"}, e.ListIndexes())
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Close() error { return nil }

func TestEngine_CacheAndMetrics(t *testing.T) {
	prom := metrics.New()
	qc := cache.New(&memoryStore{data: map[string][]byte{}}, time.Minute, prom)
	e := newTestEngine(t, WithCache(qc), WithMetrics(prom))
	ctx := context.Background()

	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), diwanDocs()))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.IndexesLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(prom.DocsIndexedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(prom.IndexBuildsTotal.WithLabelValues("build", "success")))

	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust")))
	assert.Equal(t, []string{"1", "0"}, refs(searchIndex(t, e, "diwan", "rust")))
	hits, misses := qc.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 2.0, testutil.ToFloat64(prom.SearchQueriesTotal.WithLabelValues("diwan", "hit")))

	// A rebuild drops cached results, so the new documents are searched.
	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), diwanDocs()[:1]))
	assert.Equal(t, []string{"0"}, refs(searchIndex(t, e, "diwan", "rust")))

	require.NoError(t, e.DeleteIndex("diwan"))
	assert.Equal(t, 0.0, testutil.ToFloat64(prom.IndexesLoaded))
}

func TestEngine_MultiSearchUsesCacheAndMetrics(t *testing.T) {
	prom := metrics.New()
	qc := cache.New(&memoryStore{data: map[string][]byte{}}, time.Minute, prom)
	e := newTestEngine(t, WithCache(qc), WithMetrics(prom))
	ctx := context.Background()
	require.NoError(t, e.BuildIndex(ctx, config.DefaultIndexSettings("diwan"), diwanDocs()))

	single := searchIndex(t, e, "diwan", "rust")

	accessor, err := e.GetIndex("diwan")
	require.NoError(t, err)
	multi, err := accessor.MultiSearch(ctx, services.MultiSearchQuery{
		Queries: []services.NamedSearchQuery{
			{Name: "language", SearchQuery: services.SearchQuery{QueryString: "rust"}},
			{Name: "poetry", SearchQuery: services.SearchQuery{QueryString: "poet"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0"}, refs(multi.Results["language"]))
	assert.Equal(t, []string{"2"}, refs(multi.Results["poetry"]))

	hits, misses := qc.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 3.0, testutil.ToFloat64(prom.SearchQueriesTotal.WithLabelValues("diwan", "hit")))

	// A cached result is a new search with its own id.
	assert.NotEmpty(t, multi.Results["language"].QueryId)
	assert.NotEqual(t, single.QueryId, multi.Results["language"].QueryId)
}
