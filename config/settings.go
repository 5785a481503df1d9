// Package config provides configuration structures for the documentation
// search index and for the service that hosts it.
package config

import (
	"fmt"
	"strings"
)

// Boolean modes combining the terms of a query.
const (
	BoolOR  = "OR"
	BoolAND = "AND"
)

// FieldOptions holds the per-field query options.
type FieldOptions struct {
	Boost float64 `json:"boost" yaml:"boost"`
}

// SearchOptions are the query-time options stored alongside an index.
type SearchOptions struct {
	Bool   string                  `json:"bool" yaml:"bool"`     // "OR" (any term) or "AND" (every term)
	Expand bool                    `json:"expand" yaml:"expand"` // Also match indexed tokens that start with a query term
	Fields map[string]FieldOptions `json:"fields" yaml:"fields"` // Boost per searchable field
}

// ResultsOptions control how many hits are returned and how long teasers are.
type ResultsOptions struct {
	LimitResults    int `json:"limit_results" yaml:"limitResults"`
	TeaserWordCount int `json:"teaser_word_count" yaml:"teaserWordCount"`
}

// IndexSettings contains all configuration options for a search index.
//
// Fields order matters: it is the order fields are indexed and listed in the
// serialized index.
type IndexSettings struct {
	Name     string         `json:"name" yaml:"name"`
	Fields   []string       `json:"fields" yaml:"fields"`
	Pipeline []string       `json:"pipeline" yaml:"pipeline"`
	Lang     string         `json:"lang" yaml:"lang"`
	Search   SearchOptions  `json:"search_options" yaml:"search"`
	Results  ResultsOptions `json:"results_options" yaml:"results"`
}

// DefaultIndexSettings returns the settings documentation sites ship with:
// OR queries with prefix expansion, title boosted twice, 30 results and
// 30 word teasers.
func DefaultIndexSettings(name string) IndexSettings {
	return IndexSettings{
		Name:     name,
		Fields:   []string{"title", "body", "breadcrumbs"},
		Pipeline: []string{"trimmer", "stopWordFilter", "stemmer"},
		Lang:     "English",
		Search: SearchOptions{
			Bool:   BoolOR,
			Expand: true,
			Fields: map[string]FieldOptions{
				"title":       {Boost: 2},
				"body":        {Boost: 1},
				"breadcrumbs": {Boost: 1},
			},
		},
		Results: ResultsOptions{
			LimitResults:    30,
			TeaserWordCount: 30,
		},
	}
}

// ApplyDefaults fills zero values. Expand is left alone since false is a
// legitimate choice.
func (settings *IndexSettings) ApplyDefaults() {
	defaults := DefaultIndexSettings(settings.Name)

	if len(settings.Fields) == 0 {
		settings.Fields = defaults.Fields
	}
	if settings.Pipeline == nil {
		settings.Pipeline = defaults.Pipeline
	}
	if settings.Lang == "" {
		settings.Lang = defaults.Lang
	}
	if settings.Search.Bool == "" {
		settings.Search.Bool = BoolOR
	}
	settings.Search.Bool = strings.ToUpper(settings.Search.Bool)
	if settings.Search.Fields == nil {
		settings.Search.Fields = make(map[string]FieldOptions, len(settings.Fields))
	}
	for _, f := range settings.Fields {
		if _, ok := settings.Search.Fields[f]; !ok {
			boost := 1.0
			if d, known := defaults.Search.Fields[f]; known {
				boost = d.Boost
			}
			settings.Search.Fields[f] = FieldOptions{Boost: boost}
		}
	}
	if settings.Results.LimitResults <= 0 {
		settings.Results.LimitResults = defaults.Results.LimitResults
	}
	if settings.Results.TeaserWordCount <= 0 {
		settings.Results.TeaserWordCount = defaults.Results.TeaserWordCount
	}
}

// Boost returns the boost of a field, 1 when the field has no options.
func (settings *IndexSettings) Boost(field string) float64 {
	if opts, ok := settings.Search.Fields[field]; ok {
		return opts.Boost
	}
	return 1
}

// Validate checks the settings and returns one message per problem.
func (settings *IndexSettings) Validate() []string {
	var conflicts []string

	if strings.TrimSpace(settings.Name) == "" {
		conflicts = append(conflicts, "Index name cannot be empty or whitespace-only")
	}

	conflicts = append(conflicts, checkDuplicates("fields", settings.Fields)...)
	conflicts = append(conflicts, checkDuplicates("pipeline", settings.Pipeline)...)

	for _, field := range settings.Fields {
		if strings.TrimSpace(field) == "" {
			conflicts = append(conflicts, "Field name cannot be empty or whitespace-only")
		}
	}

	switch strings.ToUpper(settings.Search.Bool) {
	case BoolOR, BoolAND:
	default:
		conflicts = append(conflicts, fmt.Sprintf("Invalid bool '%s' in search_options (must be 'OR' or 'AND')", settings.Search.Bool))
	}

	fieldSet := make(map[string]bool, len(settings.Fields))
	for _, f := range settings.Fields {
		fieldSet[f] = true
	}
	for name, opts := range settings.Search.Fields {
		if !fieldSet[name] {
			conflicts = append(conflicts, "Field '"+name+"' in search_options.fields is not an indexed field")
		}
		if opts.Boost < 0 {
			conflicts = append(conflicts, fmt.Sprintf("Boost for field '%s' cannot be negative", name))
		}
	}

	if settings.Results.LimitResults < 0 {
		conflicts = append(conflicts, "limit_results cannot be negative")
	}
	if settings.Results.TeaserWordCount < 0 {
		conflicts = append(conflicts, "teaser_word_count cannot be negative")
	}

	return conflicts
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, fields []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, field := range fields {
		if seen[field] {
			errors = append(errors, "Duplicate field '"+field+"' found in "+fieldName)
		}
		seen[field] = true
	}

	return errors
}

// SettingsPatch is a partial settings update. Nil members keep the current
// value; boosts are merged field by field.
type SettingsPatch struct {
	Name     *string              `json:"name,omitempty"`
	Fields   []string             `json:"fields,omitempty"`
	Pipeline []string             `json:"pipeline,omitempty"`
	Lang     *string              `json:"lang,omitempty"`
	Search   *SearchOptionsPatch  `json:"search_options,omitempty"`
	Results  *ResultsOptionsPatch `json:"results_options,omitempty"`
}

// SearchOptionsPatch is the search_options part of a SettingsPatch.
type SearchOptionsPatch struct {
	Bool   *string                 `json:"bool,omitempty"`
	Expand *bool                   `json:"expand,omitempty"`
	Fields map[string]FieldOptions `json:"fields,omitempty"`
}

// ResultsOptionsPatch is the results_options part of a SettingsPatch.
type ResultsOptionsPatch struct {
	LimitResults    *int `json:"limit_results,omitempty"`
	TeaserWordCount *int `json:"teaser_word_count,omitempty"`
}

// Apply returns current with the patch laid over it. current is not modified.
func (p SettingsPatch) Apply(current IndexSettings) IndexSettings {
	next := current
	next.Fields = append([]string(nil), current.Fields...)
	next.Pipeline = append([]string(nil), current.Pipeline...)
	next.Search.Fields = make(map[string]FieldOptions, len(current.Search.Fields))
	for field, opts := range current.Search.Fields {
		next.Search.Fields[field] = opts
	}

	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Fields != nil {
		next.Fields = p.Fields
	}
	if p.Pipeline != nil {
		next.Pipeline = p.Pipeline
	}
	if p.Lang != nil {
		next.Lang = *p.Lang
	}
	if s := p.Search; s != nil {
		if s.Bool != nil {
			next.Search.Bool = *s.Bool
		}
		if s.Expand != nil {
			next.Search.Expand = *s.Expand
		}
		for field, opts := range s.Fields {
			next.Search.Fields[field] = opts
		}
	}
	if r := p.Results; r != nil {
		if r.LimitResults != nil {
			next.Results.LimitResults = *r.LimitResults
		}
		if r.TeaserWordCount != nil {
			next.Results.TeaserWordCount = *r.TeaserWordCount
		}
	}
	return next
}
