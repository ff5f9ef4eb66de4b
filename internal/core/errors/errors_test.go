package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeAnalyzer, "pass failed")
		expected := "[ANALYZER_ERROR] pass failed: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to the original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeDecode, "invalid params")
		if !IsCode(err, CodeDecode) {
			t.Error("expected IsCode to return true for CodeDecode")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeSinkDelivery, "queue full"))
		if !IsCode(err, CodeSinkDelivery) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if got := CodeOf(errors.New("plain")); got != CodeInternal {
			t.Errorf("expected CodeInternal for plain error, got %s", got)
		}
		if got := CodeOf(New(CodeRateLimited, "slow down")); got != CodeRateLimited {
			t.Errorf("expected CodeRateLimited, got %s", got)
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxProject, "/proj")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxProject] != "/proj" {
			t.Errorf("expected project context, got %v", de.Context)
		}
	})

	t.Run("AddContextKeepsOuterWrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "project not open")
		err := AddContext(fmt.Errorf("close project: %w", inner), CtxProject, "/proj")
		if got := err.Error(); got != "close project: "+inner.Error() {
			t.Errorf("expected outer message kept, got %q", got)
		}
		if !IsCode(err, CodeNotFound) {
			t.Error("expected code to survive the outer wrapping")
		}
		var de *DomainError
		if !errors.As(err, &de) || de.Context[CtxProject] != "/proj" {
			t.Errorf("expected context on the inner domain error, got %v", err)
		}
	})
}
