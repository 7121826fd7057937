package core

// # Error Codes Reference
//
// User-facing messages carry a code that can be quoted back when reporting
// a failed run. Codes are grouped by category:
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Input file missing, unreadable or empty
//	         Action: Check the file path and that the file has a header row
//	         Matched: fs.ErrNotExist, ErrEmptySource
//
//	SRC002 - Required column missing
//	         Action: Add the named column to the input file header
//	         Matched: ErrMissingColumn, "missing required column"
//
//	SRC003 - Malformed value
//	         Action: Fix the value at the reported line and column
//	         Matched: ErrMalformedValue
//
//	SRC004 - Duplicate join key
//	         Action: Remove repeated shipment identifiers or allow expansion
//	         Matched: ErrDuplicateKey
//
// # Store Errors (DB001-DB099)
//
//	DB001 - Unique violation          SQLSTATE 23505, "unique constraint"
//	DB002 - Foreign key violation     SQLSTATE 23503, "foreign key constraint"
//	DB003 - Not-null violation        SQLSTATE 23502, "not null constraint"
//	DB004 - Connection failure        SQLSTATE class 08, "connection refused"
//	DB005 - Timeout                   SQLSTATE 57014, context.DeadlineExceeded
//	DB006 - Store busy or deadlocked  SQLSTATE 40P01/55P03, "database is locked"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - A run is already in progress
//	RUN002 - Unit of work already finished
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// # Matching Order
//
// Typed errors are checked first (errors.Is on the sentinels, then the
// SQLSTATE of a StoreError). Remaining errors are matched case-insensitively
// against errorPatterns; the first matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgSourceUnreadable = UserMessage{
		Message: "An input file is missing, unreadable or empty",
		Action:  "Check the file path and that the file has a header row",
		Code:    "SRC001",
	}
	msgMissingColumn = UserMessage{
		Message: "A required column is missing from an input file",
		Action:  "Add the named column to the input file header",
		Code:    "SRC002",
	}
	msgMalformedValue = UserMessage{
		Message: "An input file contains a value that cannot be loaded",
		Action:  "Fix the value at the reported line and column",
		Code:    "SRC003",
	}
	msgDuplicateKey = UserMessage{
		Message: "A shipment identifier appears more than once",
		Action:  "Remove repeated shipment identifiers or allow join expansion",
		Code:    "SRC004",
	}
	msgUnique = UserMessage{
		Message: "A value that must be unique already exists",
		Action:  "Check the product table for conflicting names",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced product does not exist",
		Action:  "Check that the product table was not modified during the run",
		Code:    "DB002",
	}
	msgNotNull = UserMessage{
		Message: "A required database value was empty",
		Action:  "Ensure every shipment has an origin and destination",
		Code:    "DB003",
	}
	msgConnection = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later or raise RUN_TIMEOUT",
		Code:    "DB005",
	}
	msgBusy = UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Make sure no other writer is using the database and try again",
		Code:    "DB006",
	}
	msgRunInProgress = UserMessage{
		Message: "A load run is already in progress",
		Action:  "Wait for the current run to finish",
		Code:    "RUN001",
	}
	msgTerminalState = UserMessage{
		Message: "The run has already finished",
		Action:  "Start a new run",
		Code:    "RUN002",
	}
)

// sentinelMessages is checked with errors.Is before any pattern matching.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrRunInProgress, msgRunInProgress},
	{ErrTerminalState, msgTerminalState},
	{ErrMissingColumn, msgMissingColumn},
	{ErrMalformedValue, msgMalformedValue},
	{ErrDuplicateKey, msgDuplicateKey},
	{ErrEmptySource, msgSourceUnreadable},
	{fs.ErrNotExist, msgSourceUnreadable},
	{context.DeadlineExceeded, msgTimeout},
}

// sqlStateMessages maps PostgreSQL SQLSTATE codes.
var sqlStateMessages = map[string]UserMessage{
	"23505": msgUnique,
	"23503": msgForeignKey,
	"23502": msgNotNull,
	"57014": msgTimeout,
	"40P01": msgBusy,
	"55P03": msgBusy,
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive untyped, mostly SQLite messages
// and network failures. Order matters: specific before general.
var errorPatterns = []errorPattern{
	{"missing required column", msgMissingColumn},

	{"duplicate key", msgUnique},
	{"unique constraint", msgUnique},
	{"foreign key constraint", msgForeignKey},
	{"violates foreign key", msgForeignKey},
	{"not null constraint", msgNotNull},
	{"violates not-null", msgNotNull},

	{"connection refused", msgConnection},
	{"connection reset", msgConnection},
	{"no such host", msgConnection},
	{"unable to open database", msgConnection},

	{"database is locked", msgBusy},
	{"sqlite_busy", msgBusy},
	{"deadlock", msgBusy},

	{"timeout", msgTimeout},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := &SourceError{Source: "a.csv", Column: "product", Err: ErrMissingColumn}
//	msg := MapError(err)
//	// msg.Code == "SRC002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	var se *StoreError
	if errors.As(err, &se) {
		code := se.Code()
		if msg, ok := sqlStateMessages[code]; ok {
			return msg
		}
		if strings.HasPrefix(code, "08") {
			return msgConnection
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Source errors keep their location so the user can find the offending cell.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return fmt.Sprintf("%s: %s (Code: %s). %s", msg.Message, location(srcErr), msg.Code, msg.Action)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

func location(e *SourceError) string {
	parts := []string{e.Source}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}
	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column %q", e.Column))
	}
	return strings.Join(parts, ", ")
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
