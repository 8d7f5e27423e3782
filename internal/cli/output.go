package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Verification failure (invalid lists, violations, failed scenarios)
	ExitCommandError = 2 // Command error (bad flags, missing config, rank errors)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "SCOPE_CAPACITY_EXHAUSTED", ...
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// newFormatter builds the formatter commands write through.
func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut, // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// RecordView is the output form of one record.
type RecordView struct {
	ID      string      `json:"id"`
	Scope   ir.IRObject `json:"scope"`
	Rank    int64       `json:"rank"`
	Payload string      `json:"payload,omitempty"`
}

func newRecordView(spec ir.ListSpec, rec store.Record) RecordView {
	return RecordView{
		ID:      rec.ID,
		Scope:   spec.ScopeObject(rec.Scope),
		Rank:    rec.Rank,
		Payload: rec.Payload,
	}
}

// Record outputs a single record.
func (f *OutputFormatter) Record(view RecordView) error {
	if f.Format == "json" {
		return f.Success(view)
	}
	fmt.Fprintf(f.Writer, "%s\trank=%d\tscope=%s\n", view.ID, view.Rank, scopeText(view.Scope))
	return nil
}

// ScopeView is the output form of one scope and its records in rank order.
type ScopeView struct {
	Scope   ir.IRObject  `json:"scope"`
	Records []RecordView `json:"records"`
}

// Scopes outputs scopes as aligned tables in text mode.
func (f *OutputFormatter) Scopes(views []ScopeView) error {
	if f.Format == "json" {
		return f.Success(views)
	}

	if len(views) == 0 {
		fmt.Fprintln(f.Writer, "(no records)")
		return nil
	}

	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		fmt.Fprintf(f.Writer, "scope %s\n", scopeText(v.Scope))
		tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
		for j, rec := range v.Records {
			fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\n", j, rec.ID, rec.Rank, rec.Payload)
		}
		tw.Flush()
	}
	return nil
}

// scopeText renders a scope object as canonical JSON.
func scopeText(obj ir.IRObject) string {
	b, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}
