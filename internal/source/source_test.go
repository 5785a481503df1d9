package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diwan-editor/docsearch/internal/searchindex"
	"github.com/diwan-editor/docsearch/model"
)

const introduction = `# Overview of Diwan

Diwan is a Rust-based, Vim-like text editor designed to provide users with a seamless and efficient experience without placing a heavy load on computer resources.

# Purpose and rationale behind choosing Rust

Rust has been chosen for Diwan due to its emphasis on performance, memory safety, and concurrency. These features ensure that Diwan is not only fast and efficient but also secure and reliable, making it a robust alternative to other text editors.

# Brief history and significance of the name "Diwan"

The inspiration for Diwan emerged from using the Helix editor, which lacked terminal integration. This gap led to the development of **Diwan**, aiming to include this feature and address other missing functionalities.

The name Diwan holds cultural significance, drawing from the rich tradition of Arabic poetry compilations, known as "**Diwan**." Renowned poets like Abu Nawas al-Masri, Abu Bakr al-Muhallab, Abu al-Ala al-Ma'ari, and Ali Ibn al-Athir have contributed to this tradition, compiling collections that resonate through history. The name symbolizes a blend of technical innovation and cultural heritage, embodying the project's mission to nurture and grow a tool that users will find indispensable.
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoadDir_ReproducesGeneratedDocuments(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"SUMMARY.md":      "# Summary\n\n- [Introduction](introduction.md)\n",
		"introduction.md": introduction,
	})

	docs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)

	generated, err := searchindex.ReadFile("diwan", "../searchindex/testdata/searchindex.js")
	require.NoError(t, err)
	assert.Equal(t, generated.Documents.Ordered(), docs)
}

func TestLoadDir_WithoutSummary(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"README.md":           "Welcome text.\n\n## Install\n\nRun cargo install.\n",
		"guide/key-maps.md":   "## Normal mode\n\nMove with hjkl.\n",
		"guide/key-maps.html": "<html><body><h2 id=\"insert\">Insert mode</h2></body></html>",
		"notes.txt":           "not a chapter",
	})

	docs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, docs, 4)
	assert.Equal(t, model.Document{ID: 0, Title: "", Body: "Welcome text.", Breadcrumbs: "README", URL: "index.html"}, docs[0])
	assert.Equal(t, model.Document{ID: 1, Title: "Install", Body: "Run cargo install.", Breadcrumbs: "README » Install", URL: "index.html#install"}, docs[1])
	assert.Equal(t, model.Document{ID: 2, Title: "Insert mode", Body: "", Breadcrumbs: "Key maps » Insert mode", URL: "guide/key-maps.html#insert"}, docs[2])
	assert.Equal(t, model.Document{ID: 3, Title: "Normal mode", Body: "Move with hjkl.", Breadcrumbs: "Key maps » Normal mode", URL: "guide/key-maps.html#normal-mode"}, docs[3])
}

func TestLoadDir_MissingChapter(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"SUMMARY.md": "- [Gone](gone.md)\n",
	})

	_, err := LoadDir(context.Background(), dir)
	assert.Error(t, err)
}

func TestLoadDir_Cancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.md": "# A\n\ntext\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSummary(t *testing.T) {
	summary := `# Summary

[Preface](preface.md)

- [Introduction](introduction.md)
- [User Guide](guide/README.md)
    - [Keys](guide/keys.md#normal)
    - [Draft]()
        - [Deep](guide/deep.md)
- [Reference](./reference.md)
`
	chapters := ParseSummary([]byte(summary))

	assert.Equal(t, []Chapter{
		{Name: "Preface", Path: "preface.md", Parents: []string{}},
		{Name: "Introduction", Path: "introduction.md", Parents: []string{}},
		{Name: "User Guide", Path: "guide/README.md", Parents: []string{}},
		{Name: "Keys", Path: "guide/keys.md", Parents: []string{"User Guide"}},
		{Name: "Deep", Path: "guide/deep.md", Parents: []string{"User Guide", "Draft"}},
		{Name: "Reference", Path: "reference.md", Parents: []string{}},
	}, chapters)
}

func TestMarkdownParser(t *testing.T) {
	src := "Lead in.\n\n# Usage\n\nUse *modes* and `:w`.\n\n```\nfn main() {}\n```\n\n#### Detail\n\nDeep text.\n\n## Usage\n\nAgain.\n"

	title, sections, err := (&MarkdownParser{}).Parse([]byte(src), 3)
	require.NoError(t, err)

	assert.Equal(t, "Usage", title)
	assert.Equal(t, []Section{
		{Body: "Lead in."},
		{Heading: "Usage", Anchor: "usage", Body: "Use modes and :w . fn main() {} Detail Deep text."},
		{Heading: "Usage", Anchor: "usage-1", Body: "Again."},
	}, sections)
}

func TestHTMLParser(t *testing.T) {
	src := `<!DOCTYPE html>
<html><head><title>Keymaps</title><style>h1 { color: red }</style></head>
<body>
<nav><a href="index.html">Home</a></nav>
<p>Intro <b>bold</b>text.</p>
<h1 id="normal-mode"><a class="header" href="#normal-mode">Normal mode</a></h1>
<p>Move with <code>hjkl</code>.</p>
<script>var x = 1;</script>
<h4>Tip</h4><p>Counts work.</p>
<h2>Insert   Mode!</h2>
<ul><li>Type</li><li>Escape</li></ul>
</body></html>`

	title, sections, err := (&HTMLParser{}).Parse([]byte(src), 3)
	require.NoError(t, err)

	assert.Equal(t, "Keymaps", title)
	assert.Equal(t, []Section{
		{Body: "Intro bold text."},
		{Heading: "Normal mode", Anchor: "normal-mode", Body: "Move with hjkl . Tip Counts work."},
		{Heading: "Insert Mode!", Anchor: "insert-mode", Body: "Type Escape"},
	}, sections)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "overview-of-diwan", Slug("Overview of Diwan"))
	assert.Equal(t, "brief-history-and-significance-of-the-name-diwan", Slug(`Brief history and significance of the name "Diwan"`))
	assert.Equal(t, "ma_ari-2", Slug("Ma_ari 2"))
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "introduction.html", PageURL("introduction.md"))
	assert.Equal(t, "guide/index.html", PageURL("guide/README.md"))
	assert.Equal(t, "index.html", PageURL("readme.markdown"))
	assert.Equal(t, "page.html", PageURL("page.html"))
}

func TestForFile(t *testing.T) {
	assert.IsType(t, &MarkdownParser{}, ForFile("a.md"))
	assert.IsType(t, &MarkdownParser{}, ForFile("a.MARKDOWN"))
	assert.IsType(t, &HTMLParser{}, ForFile("a.htm"))
	assert.Nil(t, ForFile("a.txt"))
}

func TestWatcher_ReportsChangedChapters(t *testing.T) {
	dir := writeFiles(t, map[string]string{"SUMMARY.md": "- [A](a.md)\n", "guide/b.md": "# B\n"})
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errDone := errors.New("done")
	var got []string
	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx, func(paths []string) error {
			got = paths
			return errDone
		})
	}()

	// give the watcher a moment before writing
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "b.md"), []byte("# B\n\nmore\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.toml"), []byte("[book]\n"), 0o644))

	require.ErrorIs(t, <-runErr, errDone)
	assert.Equal(t, []string{"a.md", "guide/b.md"}, got)
}

func TestWatcher_KeepsRunningAfterWatchError(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.md": "# A\n"})
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errDone := errors.New("done")
	var got []string
	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx, func(paths []string) error {
			got = paths
			return errDone
		})
	}()

	// An overflowed event queue is reported on the error channel.
	select {
	case w.watcher.Errors <- fsnotify.ErrEventOverflow:
	case err := <-runErr:
		t.Fatalf("watcher stopped early: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# A\n\nmore\n"), 0o644))

	require.ErrorIs(t, <-runErr, errDone)
	assert.Equal(t, []string{"a.md"}, got)
}

func TestWatcher_StopsWithContext(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.md": "# A\n"})
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx, func([]string) error { return nil }), context.Canceled)
}
