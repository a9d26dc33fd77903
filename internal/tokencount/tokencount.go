// Package tokencount estimates the token cost of packing content into a
// context budget.
package tokencount

import (
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerTokenLatin and charsPerTokenCJK are the fallback estimator's
// constants when no tiktoken encoding is available for the requested model.
// CJK scripts average far fewer characters per token than Latin text
// because tiktoken's BPE merges are trained on UTF-8 byte sequences that a
// single CJK rune spans three of.
const (
	charsPerTokenLatin = 4.0
	charsPerTokenCJK   = 1.5
)

// Count returns an estimate of how many tokens text costs under model's
// encoding, falling back to a character-ratio estimate when the model name
// isn't a known tiktoken encoding.
func Count(text string, model string) int {
	if n, ok := tiktokenCount(text, model); ok {
		return n
	}
	return estimate(text)
}

func tiktokenCount(text, model string) (int, bool) {
	enc, err := tiktoken.GetEncoding(modelEncoding(model))
	if err != nil {
		return 0, false
	}
	return len(enc.Encode(text, nil, nil)), true
}

// modelEncoding maps a model name to its tiktoken encoding name. The listed
// chat models and the empty name map to "cl100k_base"; any other name is
// passed through unchanged as an encoding name, so a name tiktoken-go does
// not know makes Count fall back to estimate().
func modelEncoding(model string) string {
	switch model {
	case "gpt-4", "gpt-4-turbo", "gpt-3.5-turbo", "":
		return "cl100k_base"
	default:
		return model
	}
}

// estimate applies the CJK/Latin char-ratio heuristic per rune.
func estimate(text string) int {
	var latin, cjk int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else if !unicode.IsSpace(r) {
			latin++
		}
	}
	return int(float64(latin)/charsPerTokenLatin+0.999) + int(float64(cjk)/charsPerTokenCJK+0.999)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
