package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	reconerrors "uco-udo-recon/pkg/errors"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a user-friendly message for err and returns the
// process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if reconErr, ok := reconerrors.AsReconError(err); ok {
		return h.handleReconError(reconErr)
	}

	return h.handleGenericError(err)
}

// handleReconError handles ReconError with detailed context
func (h *CLIErrorHandler) handleReconError(err *reconerrors.ReconError) int {
	// Cancellation is a clean outcome, not an error.
	if err.Category == reconerrors.CategoryCancelled {
		fmt.Fprintf(os.Stderr, "Run cancelled.\n")
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-ReconError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if h.isDiskFullError(err) {
		fmt.Fprintf(os.Stderr, "Error: Insufficient disk space\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, run with the --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category reconerrors.ErrorCategory) string {
	switch category {
	case reconerrors.CategoryWorkbook:
		return `Workbook error help:
• Check that the workbook exists and is a valid xlsx file
• Close the file in Excel before running the reconciliation
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have read and write permissions on the directory`

	case reconerrors.CategoryLocate:
		return `Sheet and marker error help:
• Verify the workbook follows the quarterly reconciliation template
• Check that the Certification and UCO to UDO sheets carry their
  standard headers
• Confirm the component's detail sheet is named after its tab name,
  component code or trading partner number
• Compare against a prior quarter's workbook that processed cleanly`

	case reconerrors.CategoryConvert:
		return `Value conversion error help:
• Check for text in cells that should hold amounts
• Ensure amounts use plain number, comma, $ or (negative) formats
• Recalculate the workbook so formula cells carry cached values`

	case reconerrors.CategoryRecalc:
		return `Recalculation error help:
• Verify the --recalc-cmd engine is installed and on PATH
• Test the command manually against a copy of the workbook
• Use --skip-recalc when the cached values are already current`

	default:
		return `For more help:
• Use 'uco-udo-recon --help' for general help
• Use 'uco-udo-recon reconcile --help' for command-specific help
• Re-run with --verbose and --log-dir to capture a detailed log`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func (h *CLIErrorHandler) isDiskFullError(err error) bool {
	if err == syscall.ENOSPC {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full")
}
