package detprep

import (
	"errors"
	"fmt"
)

var (
	// ErrNoClasses indicates a vocabulary source without any class names.
	ErrNoClasses = errors.New("detprep: vocabulary contains no classes")
	// ErrDuplicateClass indicates a class name that appears more than once in a vocabulary.
	ErrDuplicateClass = errors.New("detprep: duplicate class name")
)

// ConfigError is a fatal configuration problem (missing or empty vocabulary, missing source root,
// invalid proportions). It is reported before any output is written.
type ConfigError struct {
	Msg string
	Err error // Optional cause.
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(cause error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...), Err: cause}
}

// MalformedAnnotationError reports a source annotation that cannot be converted. Only the example
// it belongs to is skipped.
type MalformedAnnotationError struct {
	Path string // The annotation artifact.
	Msg  string
	Err  error
}

func (e *MalformedAnnotationError) Error() string {
	s := fmt.Sprintf("malformed annotation %q: %s", e.Path, e.Msg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *MalformedAnnotationError) Unwrap() error { return e.Err }

// IssueKind classifies a ValidationIssue.
type IssueKind string

// The issue kinds reported by Validate.
const (
	IssueMissingDir    IssueKind = "missing-dir"
	IssueEmptyLabel    IssueKind = "empty-label"
	IssueBadFormat     IssueKind = "bad-format"
	IssueBadClassID    IssueKind = "bad-class-id"
	IssueBadCoordinate IssueKind = "bad-coordinate"
	IssueMissingImage  IssueKind = "missing-image"
	IssueMissingLabel  IssueKind = "missing-label"
	IssueBadImage      IssueKind = "bad-image"
	IssueUnreadable    IssueKind = "unreadable"
)

// ValidationIssue is a single problem found in a materialized dataset. Line is 1-based and zero
// when the issue concerns a whole file or directory.
type ValidationIssue struct {
	Kind    IssueKind
	Path    string
	Line    int
	Message string
}

func (i ValidationIssue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s: %s line %d: %s", i.Kind, i.Path, i.Line, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Kind, i.Path, i.Message)
}
