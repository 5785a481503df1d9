package model

import "strconv"

// Document is one indexed section of the documentation: a heading, the text
// under it and the trail of headings leading to it. Documents are immutable
// once an index has been built from them.
type Document struct {
	ID          uint32 `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Breadcrumbs string `json:"breadcrumbs"`
	URL         string `json:"url,omitempty"`
}

// Ref returns the document ID as the string ref used in postings.
func (d Document) Ref() string {
	return strconv.FormatUint(uint64(d.ID), 10)
}

// FieldValue returns the text of a searchable field, or "" for unknown fields.
func (d Document) FieldValue(field string) string {
	switch field {
	case "title":
		return d.Title
	case "body":
		return d.Body
	case "breadcrumbs":
		return d.Breadcrumbs
	default:
		return ""
	}
}
