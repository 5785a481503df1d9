package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwan-editor/docsearch/config"
	internalErrors "github.com/diwan-editor/docsearch/internal/errors"
	"github.com/diwan-editor/docsearch/internal/indexing"
	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
	"github.com/diwan-editor/docsearch/services"
)

// --- Test Helpers ---

// setupGeneratedService loads the generated Diwan documentation index.
func setupGeneratedService(t *testing.T) *Service {
	t.Helper()
	idx, err := searchindex.ReadFile("diwan", "../searchindex/testdata/searchindex.js")
	require.NoError(t, err)
	s, err := NewService(idx)
	require.NoError(t, err)
	return s
}

func setupBuiltService(t *testing.T, settings config.IndexSettings, docs ...model.Document) *Service {
	t.Helper()
	b, err := indexing.NewBuilder(settings)
	require.NoError(t, err)
	require.NoError(t, b.AddDocuments(docs))
	idx, err := b.Build()
	require.NoError(t, err)
	s, err := NewService(idx)
	require.NoError(t, err)
	return s
}

func hitRefs(result services.SearchResult) []string {
	refs := make([]string, 0, len(result.Hits))
	for _, h := range result.Hits {
		refs = append(refs, h.Ref)
	}
	return refs
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

// --- Test Cases ---

func TestSearchGeneratedIndexScores(t *testing.T) {
	s := setupGeneratedService(t)
	ctx := context.Background()

	tests := []struct {
		query  string
		refs   []string
		scores []float64
	}{
		{"Rust", []string{"1", "0"}, []float64{2.27279968980431, 0.8130525295851417}},
		{"diwan", []string{"0", "2", "1"}, []float64{2.363970799104054, 1.7919033470671049, 0.6310830321360505}},
		{"editor", []string{"0", "1", "2"}, []float64{0.5791518928619253, 0.44624309151516917, 0.37360785330069374}},
		{"rust editor", []string{"1", "0", "2"}, []float64{2.09049967697269, 1.3922044224470669, 0.18680392665034687}},
		{"history", []string{"2"}, []float64{2.4819571578239428}},
		{"poet", []string{"2"}, []float64{0.8108768006307842}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result, err := s.Search(ctx, services.SearchQuery{QueryString: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.refs, hitRefs(result))
			assert.Equal(t, len(tt.refs), result.Total)
			for i, want := range tt.scores {
				assert.InDelta(t, want, result.Hits[i].Score, 1e-9, "hit %d", i)
			}
		})
	}
}

func TestSearchAND(t *testing.T) {
	s := setupGeneratedService(t)
	ctx := context.Background()

	result, err := s.Search(ctx, services.SearchQuery{QueryString: "rust editor", Bool: "and"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0"}, hitRefs(result))
	assert.InDelta(t, 1.4619565726259007, result.Hits[0].Score, 1e-9)

	result, err = s.Search(ctx, services.SearchQuery{QueryString: "rust helix", Bool: config.BoolAND})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.Equal(t, 0, result.Total)

	result, err = s.Search(ctx, services.SearchQuery{QueryString: "rust helix"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0", "2"}, hitRefs(result))
}

func TestSearchExpansion(t *testing.T) {
	s := setupGeneratedService(t)
	ctx := context.Background()

	expanded, err := s.Search(ctx, services.SearchQuery{QueryString: "poet"})
	require.NoError(t, err)
	require.Len(t, expanded.Hits, 1)
	assert.Equal(t, []string{"poet", "poetri"}, expanded.Hits[0].FieldMatches["body"])

	exact, err := s.Search(ctx, services.SearchQuery{QueryString: "poet", Expand: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, exact.Hits, 1)
	assert.InDelta(t, 0.7371607278461674, exact.Hits[0].Score, 1e-9)
	assert.Equal(t, []string{"poet"}, exact.Hits[0].FieldMatches["body"])
	assert.Greater(t, expanded.Hits[0].Score, exact.Hits[0].Score)

	// "edit" is only reachable as a prefix of "editor".
	prefixOnly, err := s.Search(ctx, services.SearchQuery{QueryString: "edit"})
	require.NoError(t, err)
	assert.Len(t, prefixOnly.Hits, 3)
	noExpand, err := s.Search(ctx, services.SearchQuery{QueryString: "edit", Expand: boolPtr(false)})
	require.NoError(t, err)
	assert.Empty(t, noExpand.Hits)
}

func TestSearchNoMatchIsEmpty(t *testing.T) {
	s := setupGeneratedService(t)

	for _, q := range []string{"emacs", "the and of", "", "   ", "»"} {
		result, err := s.Search(context.Background(), services.SearchQuery{QueryString: q})
		require.NoError(t, err, q)
		assert.NotNil(t, result.Hits, q)
		assert.Empty(t, result.Hits, q)
		assert.Equal(t, 0, result.Total, q)
		assert.NotEmpty(t, result.QueryId)
	}
}

func TestSearchFieldOverrides(t *testing.T) {
	s := setupGeneratedService(t)
	ctx := context.Background()

	titleOnly, err := s.Search(ctx, services.SearchQuery{
		QueryString: "rust",
		Fields:      map[string]services.FieldQuery{"title": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, hitRefs(titleOnly))
	assert.Contains(t, titleOnly.Hits[0].Info.FieldScores, "title")
	assert.NotContains(t, titleOnly.Hits[0].Info.FieldScores, "body")

	muted, err := s.Search(ctx, services.SearchQuery{
		QueryString: "rust",
		Fields: map[string]services.FieldQuery{
			"title": {Boost: floatPtr(0)},
			"body":  {},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0"}, hitRefs(muted))
	assert.NotContains(t, muted.Hits[0].Info.FieldScores, "title")

	_, err = s.Search(ctx, services.SearchQuery{
		QueryString: "rust",
		Fields:      map[string]services.FieldQuery{"summary": {}},
	})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
}

func TestSearchInvalidQuery(t *testing.T) {
	s := setupGeneratedService(t)
	ctx := context.Background()

	_, err := s.Search(ctx, services.SearchQuery{QueryString: "rust", Bool: "XOR"})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)

	_, err = s.Search(ctx, services.SearchQuery{QueryString: "rust", Limit: -1})
	assert.ErrorIs(t, err, internalErrors.ErrInvalidInput)
}

func TestSearchLimitAndHitContents(t *testing.T) {
	s := setupGeneratedService(t)

	result, err := s.Search(context.Background(), services.SearchQuery{QueryString: "diwan", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, []string{"diwan"}, result.Terms)

	top := result.Hits[0]
	assert.Equal(t, "0", top.Ref)
	assert.Equal(t, "Overview of Diwan", top.Document.Title)
	assert.Equal(t, "introduction.html#overview-of-diwan", top.Document.URL)
	assert.Equal(t, 1, top.Info.MatchedTerms)
	assert.Contains(t, top.Teaser, "<em>Diwan</em>")
	assert.ElementsMatch(t, []string{"title", "body", "breadcrumbs"}, keys(top.FieldMatches))
}

func TestSearchTokenPresentIsFound(t *testing.T) {
	docs := []model.Document{
		{ID: 0, Title: "Keymaps", Body: "Normal mode keymaps move the cursor", Breadcrumbs: "Usage » Keymaps"},
		{ID: 1, Title: "Buffers", Body: "Every open file lives in a buffer", Breadcrumbs: "Usage » Buffers"},
	}
	s := setupBuiltService(t, config.DefaultIndexSettings("usage"), docs...)

	for _, q := range []string{"cursor", "buffers", "normal", "usage"} {
		result, err := s.Search(context.Background(), services.SearchQuery{QueryString: q, Expand: boolPtr(false)})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Hits, q)
	}

	result, err := s.Search(context.Background(), services.SearchQuery{QueryString: "cursor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, hitRefs(result))
}

func TestSearchEqualScoresKeepDocumentOrder(t *testing.T) {
	var docs []model.Document
	for i := 0; i < 12; i++ {
		docs = append(docs, model.Document{ID: uint32(i), Title: "Same", Body: "identical words", Breadcrumbs: "Same"})
	}
	s := setupBuiltService(t, config.DefaultIndexSettings("same"), docs...)

	result, err := s.Search(context.Background(), services.SearchQuery{QueryString: "identical"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}, hitRefs(result))
}

func TestSearchCancelledContext(t *testing.T) {
	s := setupGeneratedService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, services.SearchQuery{QueryString: "rust"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRejectsUnknownPipeline(t *testing.T) {
	s := setupGeneratedService(t)
	idx := *s.Index()
	inverted := *idx.Inverted
	inverted.Pipeline = []string{"lemmatizer"}
	idx.Inverted = &inverted

	_, err := NewService(&idx)
	assert.Error(t, err)
	_, err = NewService(nil)
	assert.Error(t, err)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
