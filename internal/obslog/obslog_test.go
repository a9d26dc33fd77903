package obslog

import "testing"

func TestLReturnsNonNilLogger(t *testing.T) {
	if l := L(); l == nil {
		t.Fatal("L() returned nil logger")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init(Options{})
	first := L()
	Init(Options{Path: "/tmp/should-not-apply.log"})
	second := L()
	if first != second {
		t.Fatal("expected a second Init call to be a no-op, got a different logger instance")
	}
}
