package search

import (
	"html"
	"strings"

	"github.com/diwan-editor/docsearch/internal/tokenizer"
)

// Word weights used to pick the teaser window.
const (
	matchWeight         = 40
	sentenceStartWeight = 8
	wordWeight          = 2
)

type teaserWord struct {
	start, end int // byte offsets into the body
	weight     int
}

// Teaser returns an excerpt of at most size words from body, choosing the
// window that holds the most query words. Words whose stem starts with the
// stem of a query word are wrapped in <em>. The remaining text is HTML
// escaped.
func Teaser(body string, queryWords []string, size int) string {
	var stems []string
	for _, w := range queryWords {
		if stem := teaserStem(w); stem != "" {
			stems = append(stems, stem)
		}
	}

	words, found := weighWords(body, stems)
	if len(words) == 0 {
		return html.EscapeString(body)
	}
	if size <= 0 || size > len(words) {
		size = len(words)
	}

	best := 0
	if found {
		sum := 0
		for i := 0; i < size; i++ {
			sum += words[i].weight
		}
		bestSum := sum
		for i := 1; i+size <= len(words); i++ {
			sum += words[i+size-1].weight - words[i-1].weight
			if sum >= bestSum {
				bestSum = sum
				best = i
			}
		}
	}

	var b strings.Builder
	pos := words[best].start
	for _, w := range words[best : best+size] {
		if pos < w.start {
			b.WriteString(html.EscapeString(body[pos:w.start]))
		}
		text := html.EscapeString(body[w.start:w.end])
		if w.weight == matchWeight {
			b.WriteString("<em>")
			b.WriteString(text)
			b.WriteString("</em>")
		} else {
			b.WriteString(text)
		}
		pos = w.end
	}
	return b.String()
}

// weighWords splits body into sentences at ". " and words at spaces and
// weighs every word. It reports whether any word matched.
func weighWords(body string, stems []string) ([]teaserWord, bool) {
	var words []teaserWord
	found := false
	offset := 0
	for _, sentence := range strings.Split(body, ". ") {
		weight := sentenceStartWeight
		wordStart := offset
		for _, word := range strings.Split(sentence, " ") {
			if word != "" {
				w := teaserWord{start: wordStart, end: wordStart + len(word), weight: weight}
				if matchesAny(teaserStem(word), stems) {
					w.weight = matchWeight
					found = true
				}
				words = append(words, w)
				weight = wordWeight
			}
			wordStart += len(word) + 1
		}
		offset += len(sentence) + 2
	}
	return words, found
}

func teaserStem(word string) string {
	return tokenizer.Stem(tokenizer.Trim(strings.ToLower(word)))
}

func matchesAny(stem string, stems []string) bool {
	if stem == "" {
		return false
	}
	for _, s := range stems {
		if strings.HasPrefix(stem, s) {
			return true
		}
	}
	return false
}
