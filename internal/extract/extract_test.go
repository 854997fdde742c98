package extract

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

func newExtractor() *Extractor {
	return New(logger.Discard(), models.NewNormalizer(logger.Discard()))
}

// buildWorkbook saves an in-memory workbook and opens it as a Pair.
func buildWorkbook(t *testing.T, build func(f *excelize.File)) *workbook.Pair {
	t.Helper()

	f := excelize.NewFile()
	build(f)

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	pair, err := workbook.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pair.Close() })
	return pair
}

func buildCertification(f *excelize.File) {
	f.NewSheet(CertificationSheet)
	f.SetCellValue(CertificationSheet, "A5", "Trading Partner Number")
	f.SetCellValue(CertificationSheet, "B5", "TIER Component")

	f.SetCellValue(CertificationSheet, "A6", "7007")
	f.SetCellValue(CertificationSheet, "B6", "FEM")
	f.SetCellValue(CertificationSheet, "D6", 100.00)
	f.SetCellValue(CertificationSheet, "E6", 99.50)
	f.SetCellValue(CertificationSheet, "F6", 0.50)
	f.SetCellValue(CertificationSheet, "G6", "FEMA-7007")

	f.SetCellValue(CertificationSheet, "A7", "7005")
	f.SetCellValue(CertificationSheet, "B7", "CBP")
	f.SetCellValue(CertificationSheet, "D7", 250.00)
	f.SetCellValue(CertificationSheet, "E7", 250.00)
	f.SetCellValue(CertificationSheet, "F7", 0)
	f.SetCellValue(CertificationSheet, "G7", "CBP-7005")

	f.SetCellValue(CertificationSheet, "A8", "Total ")
	f.SetCellValue(CertificationSheet, "D8", 350.00)
}

func TestCertificationTable(t *testing.T) {
	pair := buildWorkbook(t, buildCertification)

	table, err := newExtractor().CertificationTable(pair, worker.Never)
	if err != nil {
		t.Fatalf("CertificationTable: %v", err)
	}

	if table.HeaderRow != 5 {
		t.Errorf("HeaderRow = %d, want 5", table.HeaderRow)
	}
	if table.TotalRow != 8 {
		t.Errorf("TotalRow = %d, want 8", table.TotalRow)
	}
	if table.Total.StringFixed(2) != "350.00" {
		t.Errorf("Total = %s, want 350.00", table.Total.StringFixed(2))
	}

	// Rows span header+1 through the total row; structural rows keep
	// their blank keys for the engine's filtering pass.
	if len(table.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Key != "FEM" || first.PartnerNumber != "7007" || first.TabName != "FEMA-7007" {
		t.Errorf("first row = %+v", first)
	}
	if first.Unfilled.StringFixed(2) != "100.00" {
		t.Errorf("Unfilled = %s, want 100.00", first.Unfilled.StringFixed(2))
	}
	if first.Row != 6 {
		t.Errorf("Row = %d, want 6", first.Row)
	}

	// The Tickmark header lands at column H of the header row.
	got, err := pair.Target.GetCellValue(CertificationSheet, "H5")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Tickmark" {
		t.Errorf("H5 = %q, want Tickmark", got)
	}
}

func TestCertificationTable_MissingHeader(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		f.NewSheet(CertificationSheet)
		f.SetCellValue(CertificationSheet, "A8", "Total ")
	})

	_, err := newExtractor().CertificationTable(pair, worker.Never)
	reconErr, ok := reconerrors.AsReconError(err)
	if !ok || reconErr.Code != reconerrors.CodeMarkerNotFound {
		t.Errorf("error = %v, want marker_not_found", err)
	}
}

func TestCertificationTable_TotalMarkerNeedsTrailingSpace(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		f.NewSheet(CertificationSheet)
		f.SetCellValue(CertificationSheet, "A5", "Trading Partner Number")
		// "Total" without the trailing space is a different label.
		f.SetCellValue(CertificationSheet, "A8", "Total")
	})

	_, err := newExtractor().CertificationTable(pair, worker.Never)
	if err == nil {
		t.Fatal("extraction should not accept 'Total' without the trailing space")
	}
}

func buildUcoToUdo(f *excelize.File) {
	f.NewSheet(UcoToUdoSheet)
	f.SetCellValue(UcoToUdoSheet, "A3", "Component")

	f.SetCellValue(UcoToUdoSheet, "A5", "FEM")
	f.SetCellValue(UcoToUdoSheet, "E5", 100.00)
	f.SetCellValue(UcoToUdoSheet, "H5", 99.50)
	f.SetCellValue(UcoToUdoSheet, "L5", 0.50)

	f.SetCellValue(UcoToUdoSheet, "A6", "CBP")
	f.SetCellValue(UcoToUdoSheet, "E6", 250.00)
	f.SetCellValue(UcoToUdoSheet, "H6", 250.00)
	f.SetCellValue(UcoToUdoSheet, "L6", 0)

	f.SetCellValue(UcoToUdoSheet, "A7", "FEM Total")
	f.SetCellValue(UcoToUdoSheet, "E7", 350.00)
}

func TestUcoToUdoTable(t *testing.T) {
	pair := buildWorkbook(t, buildUcoToUdo)

	table, err := newExtractor().UcoToUdoTable(pair, "FEM", worker.Never)
	if err != nil {
		t.Fatalf("UcoToUdoTable: %v", err)
	}

	if table.StartRow != 5 {
		t.Errorf("StartRow = %d, want 5 (Component row + 2)", table.StartRow)
	}
	if table.EndRow != 7 {
		t.Errorf("EndRow = %d, want 7", table.EndRow)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Key != "FEM" || first.Row != 5 {
		t.Errorf("first row = %+v", first)
	}
	if first.PartnerTotal.StringFixed(2) != "99.50" {
		t.Errorf("PartnerTotal = %s, want 99.50", first.PartnerTotal.StringFixed(2))
	}

	keys := table.KeySet()
	if !keys["FEM"] || !keys["CBP"] {
		t.Errorf("KeySet = %v", keys)
	}

	got, err := pair.Target.GetCellValue(UcoToUdoSheet, "N3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Tickmark" {
		t.Errorf("N3 = %q, want Tickmark", got)
	}
}

func TestUcoToUdoTable_FindByKey_FirstMatchWins(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		f.NewSheet(UcoToUdoSheet)
		f.SetCellValue(UcoToUdoSheet, "A3", "Component")
		f.SetCellValue(UcoToUdoSheet, "A5", "FEM")
		f.SetCellValue(UcoToUdoSheet, "E5", 11.00)
		f.SetCellValue(UcoToUdoSheet, "A6", "FEM")
		f.SetCellValue(UcoToUdoSheet, "E6", 22.00)
		f.SetCellValue(UcoToUdoSheet, "A7", "FEM Total")
	})

	table, err := newExtractor().UcoToUdoTable(pair, "FEM", worker.Never)
	if err != nil {
		t.Fatal(err)
	}

	row, ok := table.FindByKey("FEM")
	if !ok {
		t.Fatal("FindByKey should find the duplicate key")
	}
	if row.Row != 5 {
		t.Errorf("FindByKey returned row %d, want the first occurrence at 5", row.Row)
	}
}

func TestUcoToUdoTable_MissingComponentTotal(t *testing.T) {
	pair := buildWorkbook(t, buildUcoToUdo)

	_, err := newExtractor().UcoToUdoTable(pair, "CBP", worker.Never)
	reconErr, ok := reconerrors.AsReconError(err)
	if !ok || reconErr.Code != reconerrors.CodeMarkerNotFound {
		t.Errorf("error = %v, want marker_not_found for missing 'CBP Total'", err)
	}
}

func buildReconSheet(f *excelize.File, sheet string) {
	f.NewSheet(sheet)
	f.SetCellValue(sheet, "A10", reconHeaderMarker)
	f.SetCellValue(sheet, "A20", reconTotalMarker)
	f.SetCellValue(sheet, "A25", reconSystemOfRecordMarker)
	f.SetCellValue(sheet, "C30", reconUDOTotalMarker)
	f.SetCellValue(sheet, "C35", reconUDOAfterAdjMarker)
	f.SetCellValue(sheet, "C40", reconDifferenceAdjMarker)
}

func TestReconMarkers(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		buildReconSheet(f, "FEMA-7007")
	})

	rows, err := newExtractor().ReconMarkers(pair, "FEMA-7007", worker.Never)
	if err != nil {
		t.Fatalf("ReconMarkers: %v", err)
	}

	if rows.Header != 10 || rows.Total != 20 || rows.SystemOfRecord != 25 {
		t.Errorf("column A markers = %+v", rows)
	}
	if rows.UDOTotalSystem != 30 || rows.UDOAfterAdjustments != 35 || rows.DifferenceAdjustments != 40 {
		t.Errorf("column C markers = %+v", rows)
	}
	if rows.FirstData != 11 || rows.LastData != 19 || rows.Tickmark != 21 {
		t.Errorf("derived offsets = %+v", rows)
	}
}

func TestReconMarkers_AdjustedDifferenceTolerantOfWhitespace(t *testing.T) {
	// The adjusted-difference marker alone is matched after trimming;
	// the other five markers require exact text.
	pair := buildWorkbook(t, func(f *excelize.File) {
		buildReconSheet(f, "FEMA-7007")
		f.SetCellValue("FEMA-7007", "C40", "  "+reconDifferenceAdjMarker+"  ")
	})

	rows, err := newExtractor().ReconMarkers(pair, "FEMA-7007", worker.Never)
	if err != nil {
		t.Fatalf("ReconMarkers: %v", err)
	}
	if rows.DifferenceAdjustments != 40 {
		t.Errorf("DifferenceAdjustments = %d, want 40", rows.DifferenceAdjustments)
	}
}

func TestReconMarkers_ExactMarkersRejectWhitespace(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		buildReconSheet(f, "FEMA-7007")
		f.SetCellValue("FEMA-7007", "C35", reconUDOAfterAdjMarker+" ")
	})

	_, err := newExtractor().ReconMarkers(pair, "FEMA-7007", worker.Never)
	if err == nil {
		t.Fatal("padded exact marker should not match")
	}
}

func TestReconMarkers_MissingMarkerIsSkippable(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		buildReconSheet(f, "FEMA-7007")
		f.SetCellValue("FEMA-7007", "C40", "")
	})

	_, err := newExtractor().ReconMarkers(pair, "FEMA-7007", worker.Never)
	reconErr, ok := reconerrors.AsReconError(err)
	if !ok {
		t.Fatalf("error is %T, want *ReconError", err)
	}
	if !reconErr.IsSkippable() {
		t.Error("missing recon markers should be a skippable condition")
	}
}

func TestCertificationTable_Idempotent(t *testing.T) {
	pair := buildWorkbook(t, buildCertification)
	e := newExtractor()

	first, err := e.CertificationTable(pair, worker.Never)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.CertificationTable(pair, worker.Never)
	if err != nil {
		t.Fatal(err)
	}

	if first.HeaderRow != second.HeaderRow || first.TotalRow != second.TotalRow {
		t.Errorf("re-extraction moved the range: %+v vs %+v", first, second)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Errorf("re-extraction changed row count: %d vs %d", len(first.Rows), len(second.Rows))
	}
}

func TestFindCellContaining(t *testing.T) {
	pair := buildWorkbook(t, func(f *excelize.File) {
		f.NewSheet("FEMA-7007")
		f.SetCellValue("FEMA-7007", "B7", "UCO total reported in TIER (per above)")
	})

	col, row, found := newExtractor().FindCellContaining(pair, "FEMA-7007", "UCO total reported in TIER")
	if !found {
		t.Fatal("substring cell not found")
	}
	if col != 2 || row != 7 {
		t.Errorf("found at (%d, %d), want (2, 7)", col, row)
	}
}

func TestCertificationTable_Cancelled(t *testing.T) {
	pair := buildWorkbook(t, buildCertification)

	flag := worker.NewCancelFlag()
	flag.Cancel()

	_, err := newExtractor().CertificationTable(pair, flag)
	if !reconerrors.IsCancelled(err) {
		t.Errorf("error = %v, want cancelled sentinel", err)
	}
}
