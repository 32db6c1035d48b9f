package utils

import (
	"fmt"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// MalformedLogRecordError reports a header line whose timestamp is empty or unparseable.
// The record is skipped; the rest of the file still loads.
type MalformedLogRecordError struct {
	Source string
	Line   int
	Header string
	Err    error
}

func (e *MalformedLogRecordError) Error() string {
	return fmt.Sprintf("malformed log record in %s log at line %d (%q): %v", e.Source, e.Line, e.Header, e.Err)
}

func (e *MalformedLogRecordError) Unwrap() error {
	return e.Err
}

// UnrecognizedEventKindError means a classified kind has no registered rank. It indicates an
// incomplete rank table and is raised as a panic.
type UnrecognizedEventKindError struct {
	Kind string
}

func (e *UnrecognizedEventKindError) Error() string {
	return fmt.Sprintf("no rank registered for event kind %s", e.Kind)
}
