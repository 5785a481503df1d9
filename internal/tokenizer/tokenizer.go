// Package tokenizer turns free text into the normalised terms stored in the
// field tries. The same pipeline runs at index time and at query time.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on whitespace and hyphens.
// "Rust-based, Vim-like" becomes ["rust", "based,", "vim", "like"]; trimming
// punctuation is the job of Trim.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})

	tokens := make([]string, 0, len(fields)) // Initialize as empty slice, not nil
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Trim strips leading and trailing non-word characters from a token. Word
// characters are ASCII letters, digits and '_', as in a JavaScript \W, so
// "café" becomes "caf" and a word in Arabic script disappears. Inner
// punctuation is kept, so "ma'ari" survives while "»" becomes "".
func Trim(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}
