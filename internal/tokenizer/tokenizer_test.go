package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeLowercasesAndDropsPunctuation(t *testing.T) {
	d := New()
	got := d.Tokenize("Hello, World! It's 2026.")
	want := []string{"hello", "world", "it's", "2026"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeEmptyStringReturnsNoTokens(t *testing.T) {
	d := New()
	if got := d.Tokenize(""); len(got) != 0 {
		t.Fatalf("Tokenize(\"\") = %v, want empty", got)
	}
}

func TestTokenizeQueryJoinsWithANDAndQuotes(t *testing.T) {
	d := New()
	got := d.TokenizeQuery("hello world")
	want := `"hello" AND "world"`
	if got != want {
		t.Fatalf("TokenizeQuery() = %q, want %q", got, want)
	}
}

func TestTokenizeQueryEscapesEmbeddedQuotes(t *testing.T) {
	d := New()
	got := d.TokenizeQuery(`say "hi"`)
	if got == "" {
		t.Fatal("expected non-empty query")
	}
	for _, tok := range []string{"say", "hi"} {
		if !strings.Contains(got, tok) {
			t.Errorf("TokenizeQuery() = %q, missing token %q", got, tok)
		}
	}
}

func TestTokenizeQueryEmptyTextReturnsEmptyString(t *testing.T) {
	d := New()
	if got := d.TokenizeQuery(""); got != "" {
		t.Fatalf("TokenizeQuery(\"\") = %q, want empty", got)
	}
}

func TestIsWordlikeRequiresLetterOrDigit(t *testing.T) {
	cases := map[string]bool{
		"hello": true,
		"123":   true,
		"!!!":   false,
		" ":     false,
		"a1":    true,
	}
	for tok, want := range cases {
		if got := isWordlike(tok); got != want {
			t.Errorf("isWordlike(%q) = %v, want %v", tok, got, want)
		}
	}
}
