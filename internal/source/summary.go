package source

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseSummary reads the chapter list of a SUMMARY.md: every link is a
// chapter, nested list items are sub-chapters. Links without a target
// (draft chapters) only name a level of the trail.
func ParseSummary(src []byte) []Chapter {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var chapters []Chapter
	walkSummary(doc, src, nil, &chapters)
	return chapters
}

func walkSummary(n ast.Node, src []byte, parents []string, out *[]Chapter) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.List:
			walkSummary(c, src, parents, out)
		case *ast.ListItem:
			name := ""
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if list, ok := gc.(*ast.List); ok {
					trail := parents
					if name != "" {
						trail = append(append([]string{}, parents...), name)
					}
					walkSummary(list, src, trail, out)
					continue
				}
				if link := firstLink(gc); link != nil {
					name = inlineText(link, src)
					addChapter(link, name, parents, out)
				}
			}
		case *ast.Paragraph:
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				if link, ok := gc.(*ast.Link); ok {
					addChapter(link, inlineText(link, src), parents, out)
				}
			}
		}
	}
}

func addChapter(link *ast.Link, name string, parents []string, out *[]Chapter) {
	dest := strings.TrimSpace(string(link.Destination))
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		dest = dest[:i]
	}
	dest = strings.TrimPrefix(dest, "./")
	if dest == "" {
		return
	}
	*out = append(*out, Chapter{
		Name:    name,
		Path:    dest,
		Parents: append([]string{}, parents...),
	})
}

func firstLink(n ast.Node) *ast.Link {
	var found *ast.Link
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if link, ok := node.(*ast.Link); ok && entering {
			found = link
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}
