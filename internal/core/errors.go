package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrMissingColumn  = errors.New("missing required column")
	ErrMalformedValue = errors.New("malformed value")
	ErrEmptySource    = errors.New("empty source")
	ErrDuplicateKey   = errors.New("duplicate join key")

	ErrTerminalState = errors.New("unit of work already finished")
	ErrRunInProgress = errors.New("run already in progress")
)

// SourceError reports a problem with an input file: it is missing,
// lacks a required column, or holds a value that cannot be used.
// A SourceError always aborts the run before anything is committed.
type SourceError struct {
	Source string // file name
	Line   int    // 0 when the problem is not tied to a row
	Column string // "" when the problem is not tied to a column
	Err    error
}

func (e *SourceError) Error() string {
	msg := "source " + e.Source
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failure of the persistent store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Code returns the PostgreSQL SQLSTATE of the underlying error, or "".
func (e *StoreError) Code() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// storeErr wraps err as a StoreError unless it already is one.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
