package source

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles rendered HTML chapters.
type HTMLParser struct{}

// Parse splits the <body> of an HTML chapter at <h1>..<hN> elements, N
// being splitLevel. The title is the text of <title>.
func (p *HTMLParser) Parse(src []byte, splitLevel int) (string, []Section, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		b   sectionBuilder
		ids = anchors{}
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.body.WriteString(n.Data)
			return
		case html.ElementNode:
			if level := headingLevel(n.Data); level > 0 && level <= splitLevel {
				heading := textContent(n)
				id := attr(n, "id")
				if id == "" {
					id = Slug(heading)
				}
				b.startSection(heading, ids.unique(id))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "template":
				return
			}
			b.body.WriteByte(' ')
			defer b.body.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	title := ""
	if t := findElement(doc, "title"); t != nil {
		title = textContent(t)
	}
	return title, b.result(), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// textContent returns the text under n with element boundaries as spaces.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			buf.WriteByte(' ')
			defer buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapse(buf.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
