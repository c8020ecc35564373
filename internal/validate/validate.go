// Package validate implements the ambient input-sanitization boundary:
// every task submission passes through here before it reaches the queue.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cuken/overseer/pkg/types"
)

// ValidationError is raised for a rejected submission.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid task submission: %s", e.Reason) }

const (
	minDescriptionLen = 1
	maxDescriptionLen = 10000
)

// suspiciousPatterns are case-insensitive substrings that mark a
// submission as carrying injection content rather than a genuine task
// description.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)eval\(`),
	regexp.MustCompile(`(?i)function\(`),
}

// Submission validates a task's mode and description before it is
// allowed into the queue.
func Submission(description string, mode types.Mode) error {
	if !mode.IsValid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown mode %q", mode)}
	}

	trimmed := strings.TrimSpace(description)
	if len(trimmed) < minDescriptionLen {
		return &ValidationError{Reason: "description is empty"}
	}
	if len(trimmed) > maxDescriptionLen {
		return &ValidationError{Reason: fmt.Sprintf("description exceeds %d characters", maxDescriptionLen)}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(trimmed) {
			return &ValidationError{Reason: "description contains disallowed content"}
		}
	}

	return nil
}
