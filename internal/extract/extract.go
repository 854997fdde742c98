// Package extract locates logical tables inside worksheets by marker
// text and pulls their rows into typed comparison data. Nothing here
// relies on fixed row numbers; every range is delimited by scanning
// the sheet for exact marker strings.
package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Sheet and marker names the extraction keys on. The trailing space
// in the certification total marker is real: that is how the cell is
// authored in the workbook.
const (
	CertificationSheet = "Certification"
	UcoToUdoSheet      = "DO UCO to UDO"

	certHeaderMarker = "Trading Partner Number"
	certTotalMarker  = "Total "
	ucoHeaderMarker  = "Component"

	tickmarkHeader = "Tickmark"
)

// Recon sub-table markers. The first three live in column A, the last
// three in column C.
const (
	reconHeaderMarker         = "Contract / Agreement / Sales Order #"
	reconTotalMarker          = "Providing Bureau UCO Total via their system records:"
	reconSystemOfRecordMarker = "Difference between: System of Record vs TIER"
	reconUDOTotalMarker       = "UDO total via system records"
	reconUDOAfterAdjMarker    = "UDO after high level adjustments"
	reconDifferenceAdjMarker  = "Difference between: System of Record (after adjustments) vs TIER"
)

// CertTable is the extracted Certification table.
type CertTable struct {
	HeaderRow int
	TotalRow  int
	Total     decimal.Decimal
	Rows      []models.CertRow
}

// UcoTable is the extracted UCO-to-UDO table. StartRow..EndRow is the
// data range including the component total row.
type UcoTable struct {
	HeaderRow int
	StartRow  int
	EndRow    int
	Rows      []models.ComparisonRow
}

// KeySet returns the set of non-blank keys in the table.
func (u *UcoTable) KeySet() map[string]bool {
	keys := make(map[string]bool, len(u.Rows))
	for _, row := range u.Rows {
		if row.Key != "" {
			keys[row.Key] = true
		}
	}
	return keys
}

// FindByKey returns the first row with the given key, in table order.
func (u *UcoTable) FindByKey(key string) (models.ComparisonRow, bool) {
	for _, row := range u.Rows {
		if row.Key == key {
			return row, true
		}
	}
	return models.ComparisonRow{}, false
}

// Extractor scans worksheets for marker-delimited tables.
type Extractor struct {
	log  logger.Logger
	norm *models.Normalizer
}

// New creates an Extractor.
func New(log logger.Logger, norm *models.Normalizer) *Extractor {
	return &Extractor{log: log, norm: norm}
}

// CertificationTable extracts the Certification table: the header row
// holds the exact marker "Trading Partner Number" in column A and the
// total row the exact marker "Total " below it. A "Tickmark" column
// header is written at column H of the header row. Keys, partner
// numbers and tab names come from the formula-preserving view; money
// comes from the cached-value view.
func (e *Extractor) CertificationTable(pair *workbook.Pair, cancel worker.Canceller) (*CertTable, error) {
	if cancel.Cancelled() {
		return nil, reconerrors.CancelledError("certification extraction")
	}

	colA, err := firstColumn(pair, CertificationSheet)
	if err != nil {
		return nil, err
	}

	headerRow := findExact(colA, certHeaderMarker)
	if headerRow == 0 {
		e.log.Error("'Trading Partner Number' cell not found in 'Certification' sheet")
		return nil, reconerrors.StructureError(reconerrors.CodeMarkerNotFound, CertificationSheet, certHeaderMarker)
	}
	totalRow := findExact(colA, certTotalMarker)
	if totalRow == 0 {
		e.log.Error("'Total ' cell not found in 'Certification' sheet")
		return nil, reconerrors.StructureError(reconerrors.CodeMarkerNotFound, CertificationSheet, certTotalMarker)
	}

	totalRaw, err := pair.DataValue(CertificationSheet, 4, totalRow)
	if err != nil {
		return nil, reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, pair.Path, err)
	}
	total := e.norm.Normalize(totalRaw)
	e.log.WithFields(logger.Fields{
		"total": total.String(),
		"row":   totalRow,
	}).Info("certification total found")

	if err := writeTickmarkHeader(pair, CertificationSheet, 8, headerRow); err != nil {
		return nil, err
	}

	table := &CertTable{HeaderRow: headerRow, TotalRow: totalRow, Total: total}
	for row := headerRow + 1; row <= totalRow; row++ {
		if cancel.Cancelled() {
			return nil, reconerrors.CancelledError("certification extraction")
		}

		partner, _ := pair.TargetValue(CertificationSheet, 1, row)
		key, _ := pair.TargetValue(CertificationSheet, 2, row)
		tab, _ := pair.TargetValue(CertificationSheet, 7, row)

		table.Rows = append(table.Rows, models.CertRow{
			PartnerNumber: partner,
			Key:           key,
			TabName:       tab,
			Unfilled:      e.dataMoney(pair, CertificationSheet, 4, row),
			Partner:       e.dataMoney(pair, CertificationSheet, 5, row),
			Difference:    e.dataMoney(pair, CertificationSheet, 6, row),
			Row:           row,
		})
	}

	return table, nil
}

// UcoToUdoTable extracts the UCO-to-UDO table for one component: the
// data range starts two rows below the exact "Component" marker and
// ends at the exact "<component> Total" marker. A "Tickmark" column
// header is written at column N of the marker row.
func (e *Extractor) UcoToUdoTable(pair *workbook.Pair, component string, cancel worker.Canceller) (*UcoTable, error) {
	if cancel.Cancelled() {
		return nil, reconerrors.CancelledError("uco-to-udo extraction")
	}

	colA, err := firstColumn(pair, UcoToUdoSheet)
	if err != nil {
		return nil, err
	}

	headerRow := findExact(colA, ucoHeaderMarker)
	if headerRow == 0 {
		e.log.Error("'Component' cell not found in 'DO UCO to UDO' sheet")
		return nil, reconerrors.StructureError(reconerrors.CodeMarkerNotFound, UcoToUdoSheet, ucoHeaderMarker)
	}

	totalMarker := component + " Total"
	totalRow := findExact(colA, totalMarker)
	if totalRow == 0 {
		e.log.Errorf("%q cell not found in 'DO UCO to UDO' sheet", totalMarker)
		return nil, reconerrors.StructureError(reconerrors.CodeMarkerNotFound, UcoToUdoSheet, totalMarker)
	}

	if err := writeTickmarkHeader(pair, UcoToUdoSheet, 14, headerRow); err != nil {
		return nil, err
	}

	table := &UcoTable{HeaderRow: headerRow, StartRow: headerRow + 2, EndRow: totalRow}
	for row := table.StartRow; row <= table.EndRow; row++ {
		if cancel.Cancelled() {
			return nil, reconerrors.CancelledError("uco-to-udo extraction")
		}

		key, _ := pair.TargetValue(UcoToUdoSheet, 1, row)
		table.Rows = append(table.Rows, models.ComparisonRow{
			Key:           key,
			UnfilledTotal: e.dataMoney(pair, UcoToUdoSheet, 5, row),
			PartnerTotal:  e.dataMoney(pair, UcoToUdoSheet, 8, row),
			Difference:    e.dataMoney(pair, UcoToUdoSheet, 12, row),
			Row:           row,
		})
	}

	e.log.WithFields(logger.Fields{
		"start_row": table.StartRow,
		"end_row":   table.EndRow,
		"rows":      len(table.Rows),
	}).Info("uco-to-udo table extracted")
	return table, nil
}

// ReconMarkers locates the six recon sub-table markers on a component
// sheet. Three live in column A and three in column C; all are exact
// matches except the adjusted-difference marker, which tolerates
// surrounding whitespace. All six must be present.
func (e *Extractor) ReconMarkers(pair *workbook.Pair, sheet string, cancel worker.Canceller) (models.ReconRows, error) {
	if cancel.Cancelled() {
		return models.ReconRows{}, reconerrors.CancelledError("recon marker scan")
	}

	rows, err := pair.Target.GetRows(sheet)
	if err != nil {
		return models.ReconRows{}, reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, pair.Path, err)
	}

	var header, total, systemOfRecord, udoTotalSystem, udoAfterAdj, differenceAdj int
	for i, row := range rows {
		rowNum := i + 1
		if len(row) > 0 {
			switch row[0] {
			case reconHeaderMarker:
				header = rowNum
			case reconTotalMarker:
				total = rowNum
			case reconSystemOfRecordMarker:
				systemOfRecord = rowNum
			}
		}
		if len(row) > 2 {
			switch {
			case row[2] == reconUDOTotalMarker:
				udoTotalSystem = rowNum
			case row[2] == reconUDOAfterAdjMarker:
				udoAfterAdj = rowNum
			case strings.TrimSpace(row[2]) == reconDifferenceAdjMarker:
				differenceAdj = rowNum
			}
		}
	}

	if header == 0 || total == 0 || systemOfRecord == 0 || udoTotalSystem == 0 || udoAfterAdj == 0 || differenceAdj == 0 {
		e.log.WithField("sheet", sheet).Warn("could not find the required rows in the recon table")
		return models.ReconRows{}, reconerrors.StructureError(reconerrors.CodeMarkerNotFound, sheet, "recon table markers")
	}

	return models.NewReconRows(header, total, systemOfRecord, udoTotalSystem, udoAfterAdj, differenceAdj), nil
}

// FindCellContaining scans every cell of a sheet for the first cell
// whose text contains substr, in row-major order. Returns 1-based
// coordinates.
func (e *Extractor) FindCellContaining(pair *workbook.Pair, sheet, substr string) (col, row int, found bool) {
	rows, err := pair.Target.GetRows(sheet)
	if err != nil {
		return 0, 0, false
	}
	for r, cells := range rows {
		for c, value := range cells {
			if strings.Contains(value, substr) {
				return c + 1, r + 1, true
			}
		}
	}
	return 0, 0, false
}

// dataMoney reads a money cell from the cached-value view and
// normalizes it.
func (e *Extractor) dataMoney(pair *workbook.Pair, sheet string, col, row int) decimal.Decimal {
	raw, err := pair.DataValue(sheet, col, row)
	if err != nil {
		e.log.WithError(err).WithField("cell", workbook.CellName(col, row)).Warn("could not read cell")
		return decimal.Zero.Round(2)
	}
	return e.norm.Normalize(raw)
}

// firstColumn reads column A of a sheet from the formula-preserving
// view, indexed by 0-based row.
func firstColumn(pair *workbook.Pair, sheet string) ([]string, error) {
	rows, err := pair.Target.GetRows(sheet)
	if err != nil {
		return nil, reconerrors.WorkbookError(reconerrors.CodeSheetMissing, pair.Path, err).
			WithContext("sheet", sheet)
	}
	col := make([]string, len(rows))
	for i, row := range rows {
		if len(row) > 0 {
			col[i] = row[0]
		}
	}
	return col, nil
}

// findExact returns the 1-based row of the first exact match in a
// column snapshot, or 0.
func findExact(col []string, marker string) int {
	for i, v := range col {
		if v == marker {
			return i + 1
		}
	}
	return 0
}

// writeTickmarkHeader writes the "Tickmark" column header cell.
func writeTickmarkHeader(pair *workbook.Pair, sheet string, col, row int) error {
	if err := workbook.SetCell(pair.Target, sheet, col, row, tickmarkHeader); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, pair.Path, err)
	}
	style, err := workbook.TickmarkHeaderStyle(pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, pair.Path, err)
	}
	cell := workbook.CellName(col, row)
	if err := pair.Target.SetCellStyle(sheet, cell, cell, style); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, pair.Path, err)
	}
	return nil
}
