// Package reporter renders the outcome of a reconciliation run for
// the operator.
//
// Supported output formats:
//   - Console: human-readable summary for terminal display
//   - JSON: structured data for programmatic consumption
//
// The console report lists the annotated output file, every step that
// was skipped with its reason, and the fatal error with its suggestion
// when the run aborted.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"uco-udo-recon/internal/engine"
	reconerrors "uco-udo-recon/pkg/errors"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportGenerator renders run results in the configured format.
type ReportGenerator struct {
	format OutputFormat

	// now is replaceable for deterministic timestamps in tests.
	now func() time.Time
}

// NewReportGenerator creates a generator for the given format.
func NewReportGenerator(format OutputFormat) (*ReportGenerator, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid output format: %s", format)
	}
	return &ReportGenerator{format: format, now: time.Now}, nil
}

// GenerateReport renders the run result and writes it to the provided
// writer.
func (rg *ReportGenerator) GenerateReport(result *engine.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *engine.RunResult, writer io.Writer) error {
	fmt.Fprintf(writer, "UCO TO UDO RECONCILIATION\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	fmt.Fprintf(writer, "=== RESULT ===\n")
	fmt.Fprintf(writer, "%s\n", result.Summary)
	if result.OutputPath != "" {
		fmt.Fprintf(writer, "Annotated workbook: %s\n", result.OutputPath)
	}
	fmt.Fprintf(writer, "\n")

	if result.Summary.HasSkips() {
		fmt.Fprintf(writer, "=== SKIPPED STEPS ===\n")
		rg.printSkippedSteps(result.Summary.Skipped, writer)
		fmt.Fprintf(writer, "\n")
	}

	if result.Summary.Fatal != nil {
		fmt.Fprintf(writer, "=== ERROR ===\n")
		fmt.Fprintf(writer, "%s\n", result.Summary.Fatal.Error())
		if result.Summary.Fatal.Suggestion != "" {
			fmt.Fprintf(writer, "Suggestion: %s\n", result.Summary.Fatal.Suggestion)
		}
	}

	return nil
}

func (rg *ReportGenerator) printSkippedSteps(skipped []reconerrors.SkippedStep, writer io.Writer) {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "COMPONENT\tSTEP\tREASON\n")
	for _, s := range skipped {
		component := s.Component
		if component == "" {
			component = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", component, s.Step, s.Reason)
	}
	tw.Flush()
}

func (rg *ReportGenerator) generateJSONReport(result *engine.RunResult, writer io.Writer) error {
	output := map[string]interface{}{
		"generated_at": rg.now().Format(time.RFC3339),
		"output_path":  result.OutputPath,
		"summary":      result.Summary,
		"exit_code":    result.Summary.GetExitCode(),
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
