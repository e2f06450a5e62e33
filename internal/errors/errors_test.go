package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeRevisionRange, "bad revision range")
		if err.Error() != "[REVISION_RANGE] bad revision range" {
			t.Errorf("expected [REVISION_RANGE] bad revision range, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("exit status 128")
		err := Wrap(original, CodeRevisionRange, "git diff failed")
		expected := "[REVISION_RANGE] git diff failed: exit status 128"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeWorkflowParse, "invalid yaml")
		if !IsCode(err, CodeWorkflowParse) {
			t.Error("expected IsCode to return true for CodeWorkflowParse")
		}
		if IsCode(err, CodeCancelled) {
			t.Error("expected IsCode to return false for CodeCancelled")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("context canceled")
		err := Wrap(original, CodeCancelled, "analysis cancelled")
		if !IsCode(err, CodeCancelled) {
			t.Error("expected IsCode to return true for wrapped CodeCancelled")
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		original := errors.New("no such file")
		err := Wrap(original, CodeUnparsableSource, "read failed")
		if !errors.Is(err, original) {
			t.Error("expected errors.Is to reach the wrapped cause")
		}
	})

	t.Run("WithContext", func(t *testing.T) {
		err := AddContext(New(CodeUnresolvableImport, "relative import escapes root"), CtxPath, "pkg/a.py")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected a DomainError")
		}
		if de.Context[CtxPath] != "pkg/a.py" {
			t.Errorf("expected context path pkg/a.py, got %v", de.Context[CtxPath])
		}
	})
}
