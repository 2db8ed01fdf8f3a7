package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationIssue is one itemized problem found by the quality gate.
type ValidationIssue struct {
	SceneNumber int    `json:"scene_number,omitempty"`
	Field       string `json:"field,omitempty"`
	Reason      string `json:"reason"`
}

// ValidationFailure means manifest prerequisites are unmet. It is
// terminal: retrying with the same inputs cannot succeed, the upstream
// contexts must be fixed first.
type ValidationFailure struct {
	ProjectID string            `json:"project_id"`
	Issues    []ValidationIssue `json:"issues"`
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("manifest validation failed for project %s: %d issue(s): %s",
		e.ProjectID, len(e.Issues), e.summary())
}

func (e *ValidationFailure) summary() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.SceneNumber > 0 {
			parts = append(parts, fmt.Sprintf("scene %d: %s", issue.SceneNumber, issue.Reason))
		} else {
			parts = append(parts, issue.Reason)
		}
	}
	return strings.Join(parts, "; ")
}

// SceneNumbers returns the sorted, de-duplicated scene numbers that
// have at least one issue.
func (e *ValidationFailure) SceneNumbers() []int {
	seen := make(map[int]bool)
	var nums []int
	for _, issue := range e.Issues {
		if issue.SceneNumber > 0 && !seen[issue.SceneNumber] {
			seen[issue.SceneNumber] = true
			nums = append(nums, issue.SceneNumber)
		}
	}
	sort.Ints(nums)
	return nums
}

// ProbeError means the media inspection subprocess failed or produced
// unparsable output. Retryable a bounded number of times.
type ProbeError struct {
	Path   string
	Output string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DownloadError means an asset could not be fetched from storage after
// bounded retries with backoff.
type DownloadError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// CompositionError means the rendering subprocess exited non-zero.
// Fatal for the current attempt; the caller may start a fresh attempt
// but the component never retries on its own.
type CompositionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// CleanupError is best-effort only: logged by the caller, never
// propagated to the API client.
type CleanupError struct {
	Dir string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed for %s: %v", e.Dir, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// IsRetryable reports whether a new attempt with the same inputs could
// succeed. Validation failures are terminal; probe, download and
// composition errors are transient from the caller's point of view.
func IsRetryable(err error) bool {
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return false
	}
	var pe *ProbeError
	var de *DownloadError
	var ce *CompositionError
	return errors.As(err, &pe) || errors.As(err, &de) || errors.As(err, &ce)
}
