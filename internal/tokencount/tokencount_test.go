package tokencount

import "testing"

func TestCountKnownModelUsesTiktoken(t *testing.T) {
	n := Count("hello world", "gpt-4")
	if n <= 0 {
		t.Fatalf("Count() = %d, want > 0", n)
	}
}

func TestCountEmptyModelDefaultsToCl100kBase(t *testing.T) {
	withModel := Count("the quick brown fox", "gpt-4")
	withEmpty := Count("the quick brown fox", "")
	if withModel != withEmpty {
		t.Fatalf("Count with empty model = %d, want %d (same as gpt-4)", withEmpty, withModel)
	}
}

func TestCountFallsBackForUnknownModel(t *testing.T) {
	n := Count("some text to estimate", "not-a-real-model-xyz")
	if n <= 0 {
		t.Fatalf("Count() fallback = %d, want > 0", n)
	}
}

func TestEstimateCJKCostsMoreTokensPerRuneThanLatin(t *testing.T) {
	latin := estimate("aaaaaaaaaa")
	cjk := estimate("一二三四五六七八九十")
	if cjk <= latin {
		t.Fatalf("expected CJK text to cost more tokens per rune, got cjk=%d latin=%d", cjk, latin)
	}
}

func TestEstimateIgnoresWhitespace(t *testing.T) {
	withSpaces := estimate("a a a a a")
	withoutSpaces := estimate("aaaaa")
	if withSpaces != withoutSpaces {
		t.Fatalf("estimate(%q) = %d, estimate(%q) = %d, want equal", "a a a a a", withSpaces, "aaaaa", withoutSpaces)
	}
}

func TestIsCJKDetectsHanHiraganaKatakanaHangul(t *testing.T) {
	cases := []struct {
		r    rune
		want bool
	}{
		{'漢', true},
		{'あ', true},
		{'ア', true},
		{'한', true},
		{'a', false},
		{'1', false},
	}
	for _, c := range cases {
		if got := isCJK(c.r); got != c.want {
			t.Errorf("isCJK(%q) = %v, want %v", c.r, got, c.want)
		}
	}
}
