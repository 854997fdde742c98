package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"uco-udo-recon/internal/extract"
	"uco-udo-recon/internal/worker"
)

// buildDOTBWorkbook lays out a trial balance sheet with the two
// unfilled-order accounts and the Certification total row the result
// is checked against.
func buildDOTBWorkbook(f *excelize.File) {
	f.NewSheet(DOTBSheet)
	f.SetCellValue(DOTBSheet, "C5", "422100")
	f.SetCellValue(DOTBSheet, "H5", 600.00)
	f.SetCellValue(DOTBSheet, "C9", "422200")
	f.SetCellValue(DOTBSheet, "H9", 150.00)

	f.NewSheet(extract.CertificationSheet)
	f.SetCellValue(extract.CertificationSheet, "A8", "Total ")
	f.SetCellValue(extract.CertificationSheet, "D8", 750.00)
}

func TestProcessDOTB_MatchingSums(t *testing.T) {
	eng, pair, summary := newTestEngine(t, buildDOTBWorkbook)

	certTotal := decimal.RequireFromString("750.00")
	if err := eng.ProcessDOTB(certTotal, 8, testProgress(), worker.Never); err != nil {
		t.Fatalf("ProcessDOTB: %v", err)
	}

	// Column H values are mirrored into column N on the account rows.
	if got := cellValue(t, pair.Target, DOTBSheet, "N5"); got == "" {
		t.Error("N5 should carry the 422100 value")
	}
	if got := cellValue(t, pair.Target, DOTBSheet, "N9"); got == "" {
		t.Error("N9 should carry the 422200 value")
	}

	// The sum formula lands one row under the lower account row.
	if got := cellFormula(t, pair.Target, DOTBSheet, "N10"); got != "N5+N9" {
		t.Errorf("N10 formula = %q, want N5+N9", got)
	}

	// Matching sums tick both sheets.
	if got := cellValue(t, pair.Target, DOTBSheet, "O10"); got != "8" {
		t.Errorf("O10 = %q, want 8", got)
	}
	if got := cellValue(t, pair.Target, extract.CertificationSheet, "D9"); got != "a" {
		t.Errorf("Certification D9 = %q, want a", got)
	}

	if summary.HasSkips() {
		t.Errorf("summary has unexpected skips: %+v", summary.Skipped)
	}
}

func TestProcessDOTB_MismatchWritesX(t *testing.T) {
	eng, pair, _ := newTestEngine(t, buildDOTBWorkbook)

	certTotal := decimal.RequireFromString("999.99")
	if err := eng.ProcessDOTB(certTotal, 8, testProgress(), worker.Never); err != nil {
		t.Fatalf("ProcessDOTB: %v", err)
	}

	if got := cellValue(t, pair.Target, DOTBSheet, "O10"); got != "X" {
		t.Errorf("O10 = %q, want X", got)
	}
	if got := cellValue(t, pair.Target, extract.CertificationSheet, "D9"); got != "X" {
		t.Errorf("Certification D9 = %q, want X", got)
	}
}

func TestProcessDOTB_FirstOccurrenceWins(t *testing.T) {
	eng, pair, _ := newTestEngine(t, func(f *excelize.File) {
		buildDOTBWorkbook(f)
		f.SetCellValue(DOTBSheet, "C12", "422100")
		f.SetCellValue(DOTBSheet, "H12", 1000000.00)
	})

	certTotal := decimal.RequireFromString("750.00")
	if err := eng.ProcessDOTB(certTotal, 8, testProgress(), worker.Never); err != nil {
		t.Fatalf("ProcessDOTB: %v", err)
	}

	if got := cellFormula(t, pair.Target, DOTBSheet, "N10"); got != "N5+N9" {
		t.Errorf("N10 formula = %q, the duplicate account row must be ignored", got)
	}
	if got := cellValue(t, pair.Target, DOTBSheet, "O10"); got != "8" {
		t.Errorf("O10 = %q, want 8 from the first occurrences only", got)
	}
}

func TestProcessDOTB_MissingAccountSkips(t *testing.T) {
	eng, pair, summary := newTestEngine(t, func(f *excelize.File) {
		f.NewSheet(DOTBSheet)
		f.SetCellValue(DOTBSheet, "C5", "422100")
		f.SetCellValue(DOTBSheet, "H5", 600.00)
		f.NewSheet(extract.CertificationSheet)
	})

	certTotal := decimal.RequireFromString("600.00")
	if err := eng.ProcessDOTB(certTotal, 8, testProgress(), worker.Never); err != nil {
		t.Fatalf("a missing account row must not abort the run: %v", err)
	}

	if !summary.HasSkips() {
		t.Error("missing account rows should be recorded as a skip")
	}
	if got := cellFormula(t, pair.Target, DOTBSheet, "N6"); got != "" {
		t.Errorf("N6 = %q, no sum formula should be written", got)
	}
}

func TestProcessDOTB_TrimsAccountCodes(t *testing.T) {
	eng, pair, _ := newTestEngine(t, func(f *excelize.File) {
		f.NewSheet(DOTBSheet)
		f.SetCellValue(DOTBSheet, "C5", "  422100  ")
		f.SetCellValue(DOTBSheet, "H5", 600.00)
		f.SetCellValue(DOTBSheet, "C9", "422200")
		f.SetCellValue(DOTBSheet, "H9", 150.00)
		f.NewSheet(extract.CertificationSheet)
	})

	certTotal := decimal.RequireFromString("750.00")
	if err := eng.ProcessDOTB(certTotal, 8, testProgress(), worker.Never); err != nil {
		t.Fatalf("ProcessDOTB: %v", err)
	}

	if got := cellFormula(t, pair.Target, DOTBSheet, "N10"); got != "N5+N9" {
		t.Errorf("N10 formula = %q, padded account codes should still match", got)
	}
}

func TestProcessDOTB_Cancelled(t *testing.T) {
	eng, _, _ := newTestEngine(t, buildDOTBWorkbook)

	flag := worker.NewCancelFlag()
	flag.Cancel()

	err := eng.ProcessDOTB(decimal.Zero, 8, testProgress(), flag)
	if err == nil {
		t.Fatal("expected cancelled sentinel")
	}
}
