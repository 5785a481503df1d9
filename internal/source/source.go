// Package source turns a directory of documentation chapters into search
// documents: one document per heading section, with breadcrumbs and an
// anchored URL, numbered in reading order.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/diwan-editor/docsearch/internal/logger"
	"github.com/diwan-editor/docsearch/model"
)

const (
	// SummaryFile lists the chapters of a book in reading order.
	SummaryFile = "SUMMARY.md"
	// BreadcrumbSeparator joins the chapter trail and the section heading.
	BreadcrumbSeparator = " » "
	// DefaultSplitLevel is the deepest heading level that starts a new
	// document. Deeper headings stay in the body of their section.
	DefaultSplitLevel = 3
)

// Chapter is one source file and its place in the book.
type Chapter struct {
	Name    string   // chapter name shown in breadcrumbs
	Path    string   // slash-separated path relative to the book root
	Parents []string // names of the enclosing chapters, outermost first
}

// Section is the text under one heading of a chapter.
type Section struct {
	Heading string
	Anchor  string // empty for text before the first heading
	Body    string
}

// Parser splits one chapter file into sections.
type Parser interface {
	Parse(src []byte, splitLevel int) (title string, sections []Section, err error)
}

// ForFile returns the parser for a chapter file, or nil when the file is
// not a supported chapter.
func ForFile(name string) Parser {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return &MarkdownParser{}
	case ".html", ".htm":
		return &HTMLParser{}
	default:
		return nil
	}
}

// Loader reads documentation chapters from a directory.
type Loader struct {
	SplitLevel int
	Workers    int
	log        *slog.Logger
}

// NewLoader returns a loader splitting at DefaultSplitLevel and parsing on
// one worker per CPU.
func NewLoader() *Loader {
	return &Loader{
		SplitLevel: DefaultSplitLevel,
		Workers:    runtime.NumCPU(),
		log:        logger.WithComponent("source"),
	}
}

// LoadDir loads dir with a default Loader.
func LoadDir(ctx context.Context, dir string) ([]model.Document, error) {
	return NewLoader().LoadDir(ctx, dir)
}

// LoadDir returns the documents of every chapter under dir. Chapters come
// from SUMMARY.md when dir has one, otherwise every supported file is a
// chapter, in path order.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]model.Document, error) {
	chapters, err := l.chapters(dir)
	if err != nil {
		return nil, err
	}

	parsed := make([][]model.Document, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Workers, 1))
	for i, ch := range chapters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := l.loadChapter(dir, ch)
			if err != nil {
				return err
			}
			parsed[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []model.Document
	for _, chapterDocs := range parsed {
		for _, doc := range chapterDocs {
			doc.ID = uint32(len(docs))
			docs = append(docs, doc)
		}
	}
	l.log.Info("loaded documentation", "dir", dir, "chapters", len(chapters), "documents", len(docs))
	return docs, nil
}

func (l *Loader) chapters(dir string) ([]Chapter, error) {
	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	switch {
	case err == nil:
		return ParseSummary(summary), nil
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", SummaryFile, err)
	}

	var chapters []Chapter
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || ForFile(path) == nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		chapters = append(chapters, Chapter{Path: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Path < chapters[j].Path })
	return chapters, nil
}

func (l *Loader) loadChapter(dir string, ch Chapter) ([]model.Document, error) {
	parser := ForFile(ch.Path)
	if parser == nil {
		return nil, fmt.Errorf("chapter %s: unsupported file type", ch.Path)
	}
	src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ch.Path)))
	if err != nil {
		return nil, fmt.Errorf("reading chapter: %w", err)
	}
	title, sections, err := parser.Parse(src, l.SplitLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing chapter %s: %w", ch.Path, err)
	}

	name := ch.Name
	if name == "" {
		name = title
	}
	if name == "" {
		name = humanize(ch.Path)
	}
	trail := append(append([]string{}, ch.Parents...), name)
	page := PageURL(ch.Path)

	docs := make([]model.Document, 0, len(sections))
	for _, s := range sections {
		crumbs := trail
		url := page
		if s.Heading != "" {
			crumbs = append(append([]string{}, trail...), s.Heading)
		}
		if s.Anchor != "" {
			url = page + "#" + s.Anchor
		}
		docs = append(docs, model.Document{
			Title:       s.Heading,
			Body:        s.Body,
			Breadcrumbs: strings.Join(crumbs, BreadcrumbSeparator),
			URL:         url,
		})
	}
	l.log.Debug("chapter parsed", "path", ch.Path, "sections", len(docs))
	return docs, nil
}

// PageURL returns the URL of the rendered page of a chapter: the extension
// becomes .html and README files become index.html.
func PageURL(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if strings.EqualFold(filepathBase(base), "readme") {
		base = base[:len(base)-len("readme")] + "index"
	}
	return base + ".html"
}

func filepathBase(slashPath string) string {
	if i := strings.LastIndex(slashPath, "/"); i >= 0 {
		return slashPath[i+1:]
	}
	return slashPath
}

// humanize turns a file name into a chapter name: "getting-started.md"
// becomes "Getting started".
func humanize(path string) string {
	base := filepathBase(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	runes := []rune(strings.TrimSpace(base))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Slug returns the anchor id of a heading: letters, digits, '_' and '-'
// lower-cased, whitespace as '-', everything else dropped.
func Slug(heading string) string {
	var b strings.Builder
	for _, r := range heading {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteByte('-')
		}
	}
	return b.String()
}

// anchors hands out unique anchors within one page; a repeated slug gets a
// "-1", "-2", ... suffix.
type anchors map[string]int

func (a anchors) unique(id string) string {
	n := a[id]
	a[id] = n + 1
	if n == 0 {
		return id
	}
	return fmt.Sprintf("%s-%d", id, n)
}

// collapse trims text and squeezes runs of whitespace into one space.
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// sectionBuilder accumulates sections while a parser walks a chapter.
type sectionBuilder struct {
	sections []Section
	heading  string
	anchor   string
	body     strings.Builder
	started  bool
}

func (b *sectionBuilder) startSection(heading, anchor string) {
	b.flush()
	b.heading = heading
	b.anchor = anchor
	b.started = true
}

func (b *sectionBuilder) flush() {
	body := collapse(b.body.String())
	if b.started || body != "" {
		b.sections = append(b.sections, Section{Heading: b.heading, Anchor: b.anchor, Body: body})
	}
	b.heading, b.anchor, b.started = "", "", false
	b.body.Reset()
}

func (b *sectionBuilder) result() []Section {
	b.flush()
	return b.sections
}
