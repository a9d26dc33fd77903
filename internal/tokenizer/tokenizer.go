// Package tokenizer turns entry content into the word list and FTS5 MATCH
// phrase the keyword search path needs.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// Provider splits text into searchable tokens.
type Provider interface {
	// Tokenize returns the words of text, for building/estimating content.
	Tokenize(text string) []string
	// TokenizeQuery returns an FTS5 MATCH expression equivalent to an AND
	// of quoted phrase-literals for each token, so punctuation and CJK runs
	// that uax29 segments internally don't trip FTS5's own tokenizer rules.
	TokenizeQuery(text string) string
}

// Default is the uax29 word-boundary tokenizer used store-wide.
type Default struct{}

func New() *Default { return &Default{} }

func (Default) Tokenize(text string) []string {
	var out []string
	seg := words.FromString(text)
	for seg.Next() {
		tok := seg.Value()
		if !isWordlike(tok) {
			continue
		}
		out = append(out, strings.ToLower(tok))
	}
	return out
}

func (d Default) TokenizeQuery(text string) string {
	toks := d.Tokenize(text)
	if len(toks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(t, `"`, `""`))
		b.WriteByte('"')
	}
	return b.String()
}

// isWordlike reports whether tok contains at least one letter or digit,
// filtering out the whitespace/punctuation segments uax29 also emits.
func isWordlike(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
