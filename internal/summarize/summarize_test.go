package summarize

import "testing"

const sample = "The quick brown fox jumps over the lazy dog. " +
	"The dog barks loudly at the fox every morning. " +
	"Birds sing in the trees nearby. " +
	"Quantum entanglement has no bearing on any of this."

func TestByCharBudgetNeverExceedsLimit(t *testing.T) {
	out := ByCharBudget(sample, 40)
	if len(out) > 40 {
		t.Fatalf("ByCharBudget() length = %d, want <= 40", len(out))
	}
}

func TestByCharBudgetReturnsWholeTextIfUnderBudget(t *testing.T) {
	short := "Just one sentence."
	out := ByCharBudget(short, 1000)
	if out != short {
		t.Fatalf("ByCharBudget() = %q, want %q unchanged", out, short)
	}
}

func TestByCharBudgetHandlesTextWithoutSentenceTerminators(t *testing.T) {
	text := "no punctuation at all just words going on and on and on"
	out := ByCharBudget(text, 10)
	if len(out) > 10 {
		t.Fatalf("ByCharBudget() length = %d, want <= 10", len(out))
	}
}

func TestByTokenBudgetStaysNearTarget(t *testing.T) {
	out := ByTokenBudget(sample, 10, 0, "gpt-4")
	if out == "" {
		t.Fatal("expected non-empty summary")
	}
	if len(out) >= len(sample) {
		t.Fatalf("expected summary shorter than original, got %d >= %d chars", len(out), len(sample))
	}
}

func TestByTokenBudgetRespectsMinRetentionFloor(t *testing.T) {
	withFloor := ByTokenBudget(sample, 1, 0.5, "gpt-4")
	withoutFloor := ByTokenBudget(sample, 1, 0, "gpt-4")
	if len(withFloor) < len(withoutFloor) {
		t.Fatalf("expected minRetention floor to keep more text: withFloor=%d withoutFloor=%d", len(withFloor), len(withoutFloor))
	}
}

func TestTargetRatioShrinksRoughlyToRatio(t *testing.T) {
	out := TargetRatio(sample, 0.3, "gpt-4")
	if out == "" {
		t.Fatal("expected non-empty output")
	}
	if len(out) >= len(sample) {
		t.Fatalf("expected summary shorter than original at ratio 0.3, got %d >= %d", len(out), len(sample))
	}
}

func TestTargetRatioNeverProducesEmptyOutputForNonEmptyInput(t *testing.T) {
	out := TargetRatio("Just a single short sentence.", 0.01, "gpt-4")
	if out == "" {
		t.Fatal("expected non-empty output even at an extreme ratio")
	}
}

func TestSplitSentencesDropsEmptyFragments(t *testing.T) {
	got := splitSentences("One. Two!   Three?  ")
	if len(got) != 3 {
		t.Fatalf("splitSentences() = %v, want 3 sentences", got)
	}
}

func TestWordFrequenciesExcludesStopWords(t *testing.T) {
	freq := wordFrequencies([]string{"the cat sat on the mat"})
	if _, ok := freq["the"]; ok {
		t.Error("expected stop word \"the\" to be excluded from frequency table")
	}
	if _, ok := freq["cat"]; !ok {
		t.Error("expected content word \"cat\" to be present in frequency table")
	}
}
