package source

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown chapters using goldmark.
type MarkdownParser struct{}

// Parse splits a Markdown chapter at headings up to splitLevel. The title is
// the text of the first level 1 heading.
func (p *MarkdownParser) Parse(src []byte, splitLevel int) (string, []Section, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		title string
		b     sectionBuilder
		ids   = anchors{}
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= splitLevel {
			heading := inlineText(h, src)
			if title == "" && h.Level == 1 {
				title = heading
			}
			b.startSection(heading, ids.unique(headingID(h, heading)))
			continue
		}
		b.body.WriteByte(' ')
		b.body.WriteString(inlineText(n, src))
	}
	return title, b.result(), nil
}

// headingID prefers an explicit id attribute over the slug of the text.
func headingID(h *ast.Heading, heading string) string {
	if id, ok := h.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok && len(b) > 0 {
			return string(b)
		}
	}
	return Slug(heading)
}

// inlineText returns the text of a node. Element boundaries become spaces so
// "**Diwan**," reads "Diwan ,", the way the rendered page is tokenized.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := node.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					buf.WriteByte(' ')
					buf.Write(line.Value(src))
				}
			}
			buf.WriteByte(' ')
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			buf.WriteByte(' ')
			return ast.WalkSkipChildren, nil
		}
		buf.WriteByte(' ')
		return ast.WalkContinue, nil
	})
	return collapse(buf.String())
}
