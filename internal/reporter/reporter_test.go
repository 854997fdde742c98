package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"uco-udo-recon/internal/engine"
	reconerrors "uco-udo-recon/pkg/errors"
)

func newTestGenerator(t *testing.T, format OutputFormat) *ReportGenerator {
	t.Helper()
	rg, err := NewReportGenerator(format)
	if err != nil {
		t.Fatal(err)
	}
	rg.now = func() time.Time {
		return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	}
	return rg
}

func TestOutputFormatIsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{FormatConsole, true},
		{FormatJSON, true},
		{OutputFormat("csv"), false},
		{OutputFormat(""), false},
	}

	for _, tt := range tests {
		if got := tt.format.IsValid(); got != tt.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tt.format, got, tt.valid)
		}
	}
}

func TestNewReportGenerator_RejectsUnknownFormat(t *testing.T) {
	if _, err := NewReportGenerator("yaml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestConsoleReport_Success(t *testing.T) {
	rg := newTestGenerator(t, FormatConsole)
	result := &engine.RunResult{
		OutputPath: "/data/recon - DO.xlsx",
		Summary:    &reconerrors.RunSummary{},
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(result, &buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "run completed successfully") {
		t.Errorf("report missing success line:\n%s", out)
	}
	if !strings.Contains(out, "/data/recon - DO.xlsx") {
		t.Errorf("report missing output path:\n%s", out)
	}
	if strings.Contains(out, "SKIPPED STEPS") {
		t.Errorf("clean run should not list skipped steps:\n%s", out)
	}
}

func TestConsoleReport_Skips(t *testing.T) {
	rg := newTestGenerator(t, FormatConsole)
	summary := &reconerrors.RunSummary{}
	summary.AddSkip("FEM", "component sheet", "no sheet matched the search tokens")
	summary.AddSkip("", "DO TB totals", "account rows not found in column C")

	var buf bytes.Buffer
	err := rg.GenerateReport(&engine.RunResult{OutputPath: "out.xlsx", Summary: summary}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "SKIPPED STEPS") {
		t.Errorf("report missing skip section:\n%s", out)
	}
	if !strings.Contains(out, "FEM") || !strings.Contains(out, "DO TB totals") {
		t.Errorf("report missing skip rows:\n%s", out)
	}
}

func TestConsoleReport_FatalWithSuggestion(t *testing.T) {
	rg := newTestGenerator(t, FormatConsole)
	summary := &reconerrors.RunSummary{
		Fatal: reconerrors.New(reconerrors.CategoryRecalc, reconerrors.CodeEngineUnavailable, "no recalculation engine configured").
			WithSuggestion("pass --recalc-cmd or --skip-recalc"),
	}

	var buf bytes.Buffer
	if err := rg.GenerateReport(&engine.RunResult{Summary: summary}, &buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "ERROR") {
		t.Errorf("report missing error section:\n%s", out)
	}
	if !strings.Contains(out, "--skip-recalc") {
		t.Errorf("report missing suggestion:\n%s", out)
	}
}

func TestJSONReport(t *testing.T) {
	rg := newTestGenerator(t, FormatJSON)
	summary := &reconerrors.RunSummary{}
	summary.AddSkip("FEM", "recon table", "required marker rows not found")

	var buf bytes.Buffer
	err := rg.GenerateReport(&engine.RunResult{OutputPath: "out.xlsx", Summary: summary}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		GeneratedAt string `json:"generated_at"`
		OutputPath  string `json:"output_path"`
		ExitCode    int    `json:"exit_code"`
		Summary     struct {
			Skipped   []reconerrors.SkippedStep `json:"skipped"`
			Cancelled bool                      `json:"cancelled"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, buf.String())
	}

	if decoded.OutputPath != "out.xlsx" {
		t.Errorf("output_path = %q", decoded.OutputPath)
	}
	if decoded.ExitCode != 0 {
		t.Errorf("exit_code = %d, want 0", decoded.ExitCode)
	}
	if len(decoded.Summary.Skipped) != 1 || decoded.Summary.Skipped[0].Step != "recon table" {
		t.Errorf("skipped = %+v", decoded.Summary.Skipped)
	}
	if decoded.GeneratedAt != "2026-03-31T12:00:00Z" {
		t.Errorf("generated_at = %q", decoded.GeneratedAt)
	}
}

func TestGenerateReport_NilResult(t *testing.T) {
	rg := newTestGenerator(t, FormatConsole)
	if err := rg.GenerateReport(nil, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for a nil result")
	}
}
