package types

import (
	"errors"
	"testing"
)

func TestValidationfBuildsValidationKindError(t *testing.T) {
	err := Validationf("field %q is required", "content")
	if err.Kind != KindValidation {
		t.Errorf("Kind = %q, want %q", err.Kind, KindValidation)
	}
	if err.Message != `field "content" is required` {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestStoragefWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storagef(cause, "write entry")
	if err.Kind != KindStorage {
		t.Errorf("Kind = %q, want %q", err.Kind, KindStorage)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Storagef error to unwrap to its cause")
	}
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindDependency, "embed text", cause)
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Wrap error to unwrap to its cause")
	}
}

func TestWithDetailsReturnsSameErrorForChaining(t *testing.T) {
	err := Validationf("bad field")
	withDetails := err.WithDetails(map[string]any{"field": "content"})
	if withDetails != err {
		t.Error("expected WithDetails to return the same *Error instance")
	}
	if err.Details["field"] != "content" {
		t.Errorf("details = %v, want field=content", err.Details)
	}
}

func TestIsKindMatchesDirectErrorKind(t *testing.T) {
	err := NotFoundf("entry %s not found", "abc")
	if !IsKind(err, KindNotFound) {
		t.Error("expected IsKind to match a not-found error")
	}
	if IsKind(err, KindValidation) {
		t.Error("expected IsKind to not match a different kind")
	}
}

func TestIsKindReturnsFalseForNonTypedError(t *testing.T) {
	if IsKind(errors.New("plain error"), KindValidation) {
		t.Error("expected IsKind to return false for a non-*Error")
	}
}

func TestReciprocalLinkTypeSwapsParentChild(t *testing.T) {
	if got := ReciprocalLinkType(LinkParent); got != LinkChild {
		t.Errorf("ReciprocalLinkType(parent) = %q, want child", got)
	}
	if got := ReciprocalLinkType(LinkChild); got != LinkParent {
		t.Errorf("ReciprocalLinkType(child) = %q, want parent", got)
	}
}

func TestReciprocalLinkTypeIsIdentityForSymmetricTypes(t *testing.T) {
	if got := ReciprocalLinkType(LinkRelated); got != LinkRelated {
		t.Errorf("ReciprocalLinkType(related) = %q, want related unchanged", got)
	}
}
