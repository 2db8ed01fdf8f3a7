package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestValidationFailureSceneNumbers(t *testing.T) {
	vf := &ValidationFailure{
		ProjectID: "proj-1",
		Issues: []ValidationIssue{
			{SceneNumber: 3, Field: "media", Reason: "too few visuals"},
			{SceneNumber: 1, Field: "media", Reason: "too few visuals"},
			{SceneNumber: 3, Field: "audio", Reason: "segment missing"},
			{Field: "audio", Reason: "master narration track missing"},
		},
	}

	got := vf.SceneNumbers()
	if !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("SceneNumbers() = %v, expected [1 3]", got)
	}
}

func TestValidationFailureMessage(t *testing.T) {
	vf := &ValidationFailure{
		ProjectID: "proj-1",
		Issues: []ValidationIssue{
			{SceneNumber: 2, Reason: "1 visual(s) resolved, minimum is 3"},
		},
	}
	msg := vf.Error()
	for _, want := range []string{"proj-1", "1 issue(s)", "scene 2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error message missing %q: %s", want, msg)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"Validation failure", &ValidationFailure{ProjectID: "p"}, false},
		{"Probe error", &ProbeError{Path: "a.mp3", Err: errors.New("boom")}, true},
		{"Download error", &DownloadError{Key: "k", Attempts: 3, Err: errors.New("timeout")}, true},
		{"Composition error", &CompositionError{ExitCode: 1, Err: errors.New("exit 1")}, true},
		{"Wrapped download error", fmt.Errorf("failed to prepare segment 2: %w", &DownloadError{Key: "k", Err: errors.New("x")}), true},
		{"Cleanup error", &CleanupError{Dir: "/tmp/x", Err: errors.New("busy")}, false},
		{"Plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := fmt.Errorf("stage failed: %w", &CompositionError{ExitCode: 137, Err: inner})

	var ce *CompositionError
	if !errors.As(wrapped, &ce) {
		t.Fatal("Expected to unwrap CompositionError")
	}
	if ce.ExitCode != 137 {
		t.Errorf("ExitCode = %d, expected 137", ce.ExitCode)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("Expected errors.Is to reach the innermost error")
	}
}
