// Package summarize implements the extractive sentence-frequency summarizer
// shared by auto-summarize context packing and dedup consolidation.
package summarize

import (
	"regexp"
	"strings"

	"github.com/fenwick-labs/memoria/internal/tokencount"
)

var sentenceSplit = regexp.MustCompile(`[.!?。！？]+\s*`)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopWords covers common English function words plus a handful of Japanese
// particles, using a small built-in stop-word list.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "this": true, "that": true, "for": true, "with": true,
	"as": true, "by": true, "from": true, "が": true, "の": true, "を": true,
	"に": true, "は": true, "で": true, "と": true, "も": true,
}

// splitSentences breaks text on the configured sentence-terminator set,
// dropping empty fragments produced by trailing punctuation.
func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// wordFrequencies builds a normalized frequency table over every
// non-stop-word token across all sentences.
func wordFrequencies(sentences []string) map[string]float64 {
	counts := map[string]int{}
	total := 0
	for _, s := range sentences {
		for _, w := range words(s) {
			if stopWords[w] {
				continue
			}
			counts[w]++
			total++
		}
	}
	freq := make(map[string]float64, len(counts))
	if total == 0 {
		return freq
	}
	for w, c := range counts {
		freq[w] = float64(c) / float64(total)
	}
	return freq
}

// scoreSentence computes Σ freq(w) / len(sentence_words), the frequency-based scoring
// formula. Stop words count toward sentence length but contribute zero
// score, matching a plain length-normalized sum over all words.
func scoreSentence(sentence string, freq map[string]float64) float64 {
	ws := words(sentence)
	if len(ws) == 0 {
		return 0
	}
	var sum float64
	for _, w := range ws {
		sum += freq[w]
	}
	return sum / float64(len(ws))
}

type scoredSentence struct {
	index int
	text  string
	score float64
}

func rankedSentences(text string) []scoredSentence {
	sentences := splitSentences(text)
	freq := wordFrequencies(sentences)
	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		scored[i] = scoredSentence{index: i, text: s, score: scoreSentence(s, freq)}
	}
	return scored
}

// selectByScore greedily accepts sentences in descending score order until
// accept(selectedTextSoFar) reports the target is met, then re-emits the
// selection in original document order.
func selectByScore(scored []scoredSentence, accept func(selected []scoredSentence) bool) []scoredSentence {
	ordered := make([]scoredSentence, len(scored))
	copy(ordered, scored)
	sortByScoreDesc(ordered)

	var selected []scoredSentence
	for _, s := range ordered {
		selected = append(selected, s)
		if accept(selected) {
			break
		}
	}
	sortByIndex(selected)
	return selected
}

func sortByScoreDesc(s []scoredSentence) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].score > s[j-1].score; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func containsIndex(s []scoredSentence, idx int) bool {
	for _, v := range s {
		if v.index == idx {
			return true
		}
	}
	return false
}

func sortedByIndexCopy(s []scoredSentence) []scoredSentence {
	out := make([]scoredSentence, len(s))
	copy(out, s)
	sortByIndex(out)
	return out
}

func sortByIndex(s []scoredSentence) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].index < s[j-1].index; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func join(sentences []scoredSentence) string {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	return strings.Join(parts, ". ")
}

// ByCharBudget returns an extractive summary of at most maxChars characters,
// selecting the highest-scored sentences first.
func ByCharBudget(text string, maxChars int) string {
	scored := rankedSentences(text)
	if len(scored) == 0 {
		if len(text) <= maxChars {
			return text
		}
		return text[:maxChars]
	}
	selected := selectByScore(scored, func(sel []scoredSentence) bool {
		return len(join(sel)) >= maxChars
	})
	out := join(selected)
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

// ByTokenBudget returns an extractive summary targeting maxTokens under
// model's token counter, falling back to character-ratio truncation when
// sentence splitting yields nothing. If the natural selection falls below
// minRetention (a fraction of the original token count), further sentences
// are added in descending score order until that floor is reached.
func ByTokenBudget(text string, maxTokens int, minRetention float64, model string) string {
	originalTokens := tokencount.Count(text, model)
	scored := rankedSentences(text)
	if len(scored) == 0 {
		return truncateToTokens(text, maxTokens, model)
	}

	selected := selectByScore(scored, func(sel []scoredSentence) bool {
		return tokencount.Count(join(sel), model) >= maxTokens
	})

	minTokens := int(float64(originalTokens) * minRetention)
	if minTokens > 0 && tokencount.Count(join(selected), model) < minTokens {
		ordered := make([]scoredSentence, len(scored))
		copy(ordered, scored)
		sortByScoreDesc(ordered)
		forced := selected
		for _, s := range ordered {
			if containsIndex(forced, s.index) {
				continue
			}
			forced = append(forced, s)
			if tokencount.Count(join(sortedByIndexCopy(forced)), model) >= minTokens {
				break
			}
		}
		selected = sortedByIndexCopy(forced)
	}
	return join(selected)
}

// TargetRatio summarizes text to approximately ratio (e.g. 0.6) of its
// current token count under model, never dropping below a 10% floor of the
// original — the context builder's auto-summarize step.
func TargetRatio(text string, ratio float64, model string) string {
	original := tokencount.Count(text, model)
	target := int(float64(original) * ratio)
	if target < 1 {
		target = 1
	}
	return ByTokenBudget(text, target, 0.1, model)
}

func truncateToTokens(text string, maxTokens int, model string) string {
	if tokencount.Count(text, model) <= maxTokens {
		return text
	}
	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tokencount.Count(text[:mid], model) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return text[:lo]
}
