package index

import "sort"

// TermFrequency is the weight stored for one document under one token.
// It is the square root of the raw occurrence count, so it grows with the
// count but flattens quickly.
type TermFrequency struct {
	TF float64 `json:"tf"`
}

// Posting maps a document ref to the weight of a token in that document.
// The keys are document refs as written in the serialized index ("0", "1").
type Posting map[string]TermFrequency

// Refs returns the document refs of the posting sorted numerically when
// possible, otherwise lexically.
func (p Posting) Refs() []string {
	refs := make([]string, 0, len(p))
	for ref := range p {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs
}

// sortRefs orders refs the way document ids are ordered: shorter numbers first.
func sortRefs(refs []string) {
	sort.Slice(refs, func(i, j int) bool {
		if len(refs[i]) != len(refs[j]) {
			return len(refs[i]) < len(refs[j])
		}
		return refs[i] < refs[j]
	})
}
