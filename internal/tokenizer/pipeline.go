package tokenizer

import (
	"fmt"

	porterstemmer "github.com/reiver/go-porterstemmer"
)

// Names of the pipeline stages as they are recorded in a serialized index.
const (
	StageTrimmer        = "trimmer"
	StageStopWordFilter = "stopWordFilter"
	StageStemmer        = "stemmer"
)

// DefaultStages is the pipeline used by generated documentation indexes.
var DefaultStages = []string{StageTrimmer, StageStopWordFilter, StageStemmer}

// Stage transforms a single token. Returning "" drops the token.
type Stage func(token string) string

var registeredStages = map[string]Stage{
	StageTrimmer:        Trim,
	StageStopWordFilter: stopWordFilter,
	StageStemmer:        Stem,
}

// Pipeline is an ordered list of stages applied to every token.
// It is immutable and safe for concurrent use.
type Pipeline struct {
	names  []string
	stages []Stage
}

// NewPipeline builds a pipeline from stage names. Unknown names are an error
// so that an index generated with a pipeline we cannot reproduce is rejected
// instead of silently returning no results.
func NewPipeline(names ...string) (*Pipeline, error) {
	p := &Pipeline{
		names:  make([]string, 0, len(names)),
		stages: make([]Stage, 0, len(names)),
	}
	for _, name := range names {
		stage, ok := registeredStages[name]
		if !ok {
			return nil, fmt.Errorf("unknown pipeline stage %q", name)
		}
		p.names = append(p.names, name)
		p.stages = append(p.stages, stage)
	}
	return p, nil
}

// DefaultPipeline returns the trimmer, stop word filter and stemmer pipeline.
func DefaultPipeline() *Pipeline {
	p, err := NewPipeline(DefaultStages...)
	if err != nil {
		panic(err) // registered above
	}
	return p
}

// Names returns the stage names in order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// RunToken passes one token through every stage.
func (p *Pipeline) RunToken(token string) string {
	for _, stage := range p.stages {
		token = stage(token)
		if token == "" {
			return ""
		}
	}
	return token
}

// Run tokenizes text and returns the surviving terms in order of appearance,
// duplicates included.
func (p *Pipeline) Run(text string) []string {
	raw := Tokenize(text)
	terms := make([]string, 0, len(raw))
	for _, tok := range raw {
		if term := p.RunToken(tok); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func stopWordFilter(token string) string {
	if IsStopWord(token) {
		return ""
	}
	return token
}

// Stem applies the Porter stemmer. Tokens of two characters or fewer are
// returned unchanged.
func Stem(token string) string {
	if len([]rune(token)) <= 2 {
		return token
	}
	return string(porterstemmer.StemWithoutLowerCasing([]rune(token)))
}
