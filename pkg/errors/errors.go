package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryWorkbook  ErrorCategory = "workbook"
	CategoryLocate    ErrorCategory = "locate"
	CategoryConvert   ErrorCategory = "convert"
	CategoryRecalc    ErrorCategory = "recalc"
	CategoryCancelled ErrorCategory = "cancelled"
	CategoryInternal  ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Workbook errors
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeFileCorrupted ErrorCode = "file_corrupted"
	CodeSaveFailed    ErrorCode = "save_failed"
	CodeSheetMissing  ErrorCode = "sheet_missing"

	// Locate errors (structural not-found conditions)
	CodeMarkerNotFound    ErrorCode = "marker_not_found"
	CodeComponentNotFound ErrorCode = "component_not_found"

	// Convert errors
	CodeInvalidNumber  ErrorCode = "invalid_number"
	CodeFormulaResidue ErrorCode = "formula_residue"

	// Recalc errors
	CodeEngineUnavailable ErrorCode = "engine_unavailable"
	CodeRetriesExhausted  ErrorCode = "retries_exhausted"

	// Cancellation
	CodeCancelled ErrorCode = "cancelled"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconError is the base error type for all application errors
type ReconError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconError) GetExitCode() int {
	switch e.Category {
	case CategoryWorkbook:
		return 2
	case CategoryLocate, CategoryConvert:
		return 3
	case CategoryRecalc:
		return 4
	case CategoryInternal:
		return 5
	case CategoryCancelled:
		return 0
	default:
		return 1
	}
}

// IsSkippable reports whether the error represents a structural
// not-found condition that the orchestrator downgrades to a logged
// skip instead of aborting the run.
func (e *ReconError) IsSkippable() bool {
	return e.Category == CategoryLocate || e.Category == CategoryConvert
}

// WithContext adds context information to the error
func (e *ReconError) WithContext(key string, value interface{}) *ReconError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconError) WithSuggestion(suggestion string) *ReconError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconError
func New(category ErrorCategory, code ErrorCode, message string) *ReconError {
	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	return &ReconError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// WorkbookError creates a workbook I/O error
func WorkbookError(code ErrorCode, path string, err error) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("workbook not found: %s", path)
		suggestion = "check that the file path is correct and the file exists"
	case CodeFileCorrupted:
		message = fmt.Sprintf("workbook could not be opened: %s", path)
		suggestion = "verify the file is a valid .xlsx workbook"
	case CodeSaveFailed:
		message = fmt.Sprintf("failed to save workbook: %s", path)
		suggestion = "check that the file is not open in another application"
	case CodeSheetMissing:
		message = fmt.Sprintf("required sheet missing in workbook: %s", path)
		suggestion = "verify the workbook has the Certification, DO TB and DO UCO to UDO sheets"
	default:
		message = fmt.Sprintf("workbook error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryWorkbook, code, message)
	} else {
		result = New(CategoryWorkbook, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// StructureError creates a structural not-found error (missing marker,
// missing component sheet). The orchestrator treats these as skips so
// one bad component does not abort the whole batch.
func StructureError(code ErrorCode, sheet, detail string) *ReconError {
	var message string
	var suggestion string

	switch code {
	case CodeMarkerNotFound:
		message = fmt.Sprintf("marker %q not found in sheet %q", detail, sheet)
		suggestion = "verify the sheet layout has not been altered"
	case CodeComponentNotFound:
		message = fmt.Sprintf("no component sheet matched %q", detail)
		suggestion = "check the component code and the workbook's sheet names"
	default:
		message = fmt.Sprintf("structure error in sheet %q: %s", sheet, detail)
		suggestion = "verify the workbook layout"
	}

	return New(CategoryLocate, code, message).
		WithSuggestion(suggestion).
		WithContext("sheet", sheet).
		WithContext("detail", detail)
}

// ConversionError creates a cell conversion error
func ConversionError(value interface{}, err error) *ReconError {
	message := fmt.Sprintf("could not convert cell value to decimal: %v", value)

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryConvert, CodeInvalidNumber, message)
	} else {
		result = New(CategoryConvert, CodeInvalidNumber, message)
	}

	return result.
		WithSuggestion("check the cell content for malformed numbers").
		WithContext("value", value)
}

// RecalcError creates an external recalculation error
func RecalcError(attempts int, err error) *ReconError {
	message := fmt.Sprintf("external recalculation failed after %d attempts", attempts)

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryRecalc, CodeRetriesExhausted, message)
	} else {
		result = New(CategoryRecalc, CodeRetriesExhausted, message)
	}

	return result.
		WithSuggestion("verify the recalculation command is installed and the workbook is not locked").
		WithContext("attempts", attempts)
}

// CancelledError creates a cancellation sentinel. Cancellation is a
// clean early return, not a failure; it carries exit code 0.
func CancelledError(step string) *ReconError {
	return New(CategoryCancelled, CodeCancelled, fmt.Sprintf("operation cancelled during %s", step)).
		WithContext("step", step)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *ReconError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ReconError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the log file").
		WithContext("operation", operation)
}

// Utility functions

// IsReconError checks if an error is a ReconError
func IsReconError(err error) bool {
	_, ok := err.(*ReconError)
	return ok
}

// AsReconError extracts a ReconError from an error chain
func AsReconError(err error) (*ReconError, bool) {
	var reconErr *ReconError
	if errors.As(err, &reconErr) {
		return reconErr, true
	}
	return nil, false
}

// IsCancelled reports whether the error chain contains a cancellation sentinel
func IsCancelled(err error) bool {
	if reconErr, ok := AsReconError(err); ok {
		return reconErr.Category == CategoryCancelled
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already a ReconError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconError {
	if err == nil {
		return nil
	}

	if reconErr, ok := AsReconError(err); ok {
		return reconErr
	}

	return Wrap(err, category, code, message)
}

// SkippedStep records one non-fatal step skipped during a run.
type SkippedStep struct {
	Component string `json:"component,omitempty"`
	Step      string `json:"step"`
	Reason    string `json:"reason"`
}

// RunSummary aggregates the outcome of one reconciliation run: what
// succeeded, which steps were skipped and why, and the fatal error if
// the run aborted. Tickmark absence in the output workbook is itself a
// signal to the reviewer; the summary only lists skips and failures.
type RunSummary struct {
	Skipped   []SkippedStep `json:"skipped,omitempty"`
	Fatal     *ReconError   `json:"fatal,omitempty"`
	Cancelled bool          `json:"cancelled"`
}

// AddSkip records a skipped step
func (rs *RunSummary) AddSkip(component, step, reason string) {
	rs.Skipped = append(rs.Skipped, SkippedStep{
		Component: component,
		Step:      step,
		Reason:    reason,
	})
}

// HasSkips reports whether any steps were skipped
func (rs *RunSummary) HasSkips() bool {
	return len(rs.Skipped) > 0
}

// GetExitCode returns the process exit code for the run
func (rs *RunSummary) GetExitCode() int {
	if rs.Fatal != nil {
		return rs.Fatal.GetExitCode()
	}
	return 0
}

// String returns a one-line description of the run outcome
func (rs *RunSummary) String() string {
	switch {
	case rs.Fatal != nil:
		return fmt.Sprintf("run failed: %s", rs.Fatal.Error())
	case rs.Cancelled:
		return "run cancelled"
	case rs.HasSkips():
		parts := make([]string, 0, len(rs.Skipped))
		for _, s := range rs.Skipped {
			if s.Component != "" {
				parts = append(parts, fmt.Sprintf("%s/%s", s.Component, s.Step))
			} else {
				parts = append(parts, s.Step)
			}
		}
		return fmt.Sprintf("run completed with %d skipped steps (%s)", len(rs.Skipped), strings.Join(parts, ", "))
	default:
		return "run completed successfully"
	}
}
