package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/services"
)

const fixture = "../searchindex/testdata/searchindex.js"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCmdRoot(viper.New())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"SUMMARY.md":    "# Summary\n\n- [Guide](guide.md)\n- [Keys](keys.md)\n",
		"guide.md":      "# Getting started\n\nInstall the editor with cargo.\n\n## Modes\n\nDiwan has normal and insert modes.\n",
		"keys.md":       "# Key maps\n\nPress i to enter insert mode.\n",
		"not-listed.md": "# Hidden\n\nNot in the summary.\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestBuild_WritesSearchIndexJS(t *testing.T) {
	dir := writeBook(t)
	output := filepath.Join(t.TempDir(), "searchindex.js")

	out, err := run(t, "build", dir, "-o", output, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "docsearch build")
	assert.Contains(t, out, output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Object.assign(window.search, "))

	idx, err := searchindex.ReadFile("book", output)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Stats().Documents)
	assert.Equal(t, []string{"guide.html#getting-started", "guide.html#modes", "keys.html#key-maps"}, idx.DocURLs())
}

func TestBuild_JSONOutputAndOptions(t *testing.T) {
	dir := writeBook(t)
	output := filepath.Join(t.TempDir(), "searchindex.json")

	_, err := run(t, "build", dir, "-o", output, "--bool", "and", "--no-expand", "--limit", "5", "--teaser-words", "12")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))

	idx, err := searchindex.ReadFile("book", output)
	require.NoError(t, err)
	assert.Equal(t, "AND", idx.Settings.Search.Bool)
	assert.False(t, idx.Settings.Search.Expand)
	assert.Equal(t, 5, idx.Settings.Results.LimitResults)
	assert.Equal(t, 12, idx.Settings.Results.TeaserWordCount)
}

func TestBuild_MissingDirectory(t *testing.T) {
	_, err := run(t, "build", filepath.Join(t.TempDir(), "nope"), "-o", filepath.Join(t.TempDir(), "x.js"))
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	out, err := run(t, "query", fixture, "rust")
	require.NoError(t, err)

	assert.Contains(t, out, "2 of 2 results")
	assert.Contains(t, out, "Purpose and rationale behind choosing Rust")
	assert.Contains(t, out, "Overview of Diwan")
	assert.Less(t, strings.Index(out, "Purpose"), strings.Index(out, "Overview"))
	assert.Contains(t, out, "introduction.html#purpose-and-rationale-behind-choosing-rust")
}

func TestQuery_JSON(t *testing.T) {
	out, err := run(t, "query", fixture, "rust", "editor", "--and", "--json")
	require.NoError(t, err)

	var result services.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "1", result.Hits[0].Ref)
	assert.Equal(t, "0", result.Hits[1].Ref)
}

func TestQuery_Limit(t *testing.T) {
	out, err := run(t, "query", fixture, "rust", "-n", "1", "--json")
	require.NoError(t, err)

	var result services.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Hits, 1)
	assert.Equal(t, 2, result.Total)
}

func TestQuery_MissingFile(t *testing.T) {
	_, err := run(t, "query", filepath.Join(t.TempDir(), "missing.js"), "rust")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", fixture)
	require.NoError(t, err)

	assert.Contains(t, out, "0.9.5")
	assert.Contains(t, out, "stemmer")
	assert.Contains(t, out, "Introduction » Overview of Diwan")
}

func TestInspect_JSON(t *testing.T) {
	out, err := run(t, "inspect", fixture, "--json")
	require.NoError(t, err)

	var summary struct {
		Stats searchindex.Stats `json:"stats"`
		URLs  []string          `json:"doc_urls"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Stats.Documents)
	assert.Len(t, summary.URLs, 3)
}

func TestInspect_Field(t *testing.T) {
	out, err := run(t, "inspect", fixture, "--field", "title", "--prefix", "diwan", "--json")
	require.NoError(t, err)

	var tokens []tokenInfo
	require.NoError(t, json.Unmarshal([]byte(out), &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, tokenInfo{Token: "diwan", DF: 2, Refs: []string{"0", "2"}}, tokens[0])
}

func TestInspect_UnknownField(t *testing.T) {
	_, err := run(t, "inspect", fixture, "--field", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no field "summary"`)
}

func TestImportIndexFile_InvalidSpec(t *testing.T) {
	assert.Error(t, importIndexFile(nil, "book"))
	assert.Error(t, importIndexFile(nil, "=path.js"))
}

func TestRenderTeaser(t *testing.T) {
	out := renderTeaser("a &lt;b&gt; <em>rust</em> editor")
	assert.Contains(t, out, "a <b> ")
	assert.Contains(t, out, "rust")
	assert.NotContains(t, out, "<em>")
}
