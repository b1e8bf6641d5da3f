package model

import "fmt"

// SchemaError reports a required column or derived field that is missing.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema error: missing column %q", e.Column)
	}
	return fmt.Sprintf("schema error: table %s: missing column %q", e.Table, e.Column)
}

// ParseError reports a malformed date, time or duration string.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error: row %d: %s %q", e.Row, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MergeInconsistency reports a persisted event set that lacks its key or is
// otherwise unusable as a merge base.
type MergeInconsistency struct {
	Reason string
}

func (e *MergeInconsistency) Error() string {
	return "merge inconsistency: " + e.Reason
}

// ExternalIOError wraps a failed collaborator call (database, spreadsheet,
// file storage, time-tracking API).
type ExternalIOError struct {
	Op  string
	Err error
}

func (e *ExternalIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalIOError) Unwrap() error { return e.Err }
