package engine

import (
	"fmt"

	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Columns receiving sum-verification tickmark formulas, skipping C.
var reconFormulaColumns = []int{2, 4, 5, 6, 7, 8}

// processReconTable verifies the recon sub-table on a component
// sheet: it inserts a "DO Comments" column at K, writes
// sum-verification formulas into the tickmark row, writes the
// System-of-Record and UDO adjustment formulas in columns B and D,
// and saves the workbook. udoRow is the sheet row of the "UDO total
// reported in TIER" marker; the three-way formulas reference it and
// the tickmark written one row below it.
//
// A sheet missing any of the six markers is skipped with a warning
// and left unmodified.
func (e *Engine) processReconTable(sheet string, udoRow int, cancel worker.Canceller) error {
	if cancel.Cancelled() {
		e.log.Info("recon table processing cancelled")
		return reconerrors.CancelledError("recon table processing")
	}

	r, err := e.extractor.ReconMarkers(e.pair, sheet, cancel)
	if err != nil {
		if reconerrors.IsCancelled(err) {
			return err
		}
		e.log.WithError(err).WithField("sheet", sheet).Warn("recon table markers incomplete, skipping")
		e.summary.AddSkip(sheet, "recon table", "required marker rows not found")
		return nil
	}

	if err := workbook.InsertColumn(e.pair.Target, sheet, "K"); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	if err := workbook.SetColumnWidth(e.pair.Target, sheet, "K", 45); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	e.log.WithField("sheet", sheet).Info("inserted DO Comments column at K")

	if err := e.writeCommentsColumn(sheet, r.Header); err != nil {
		return err
	}

	tickStyle, err := workbook.FormulaTickmarkStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	// Sum-verification formulas across the data range, one per money
	// column.
	for _, col := range reconFormulaColumns {
		if cancel.Cancelled() {
			e.log.Info("recon table processing cancelled")
			return reconerrors.CancelledError("recon table processing")
		}
		letter := workbook.ColumnName(col)
		formula := fmt.Sprintf(`=IF(ROUND(SUM(%s$%d:%s%d)-%s%d,0)=0,"%s","%s")`,
			letter, r.FirstData, letter, r.LastData, letter, r.Total,
			models.FormulaPass, models.FormulaFail)
		if err := e.writeFormulaTickmark(sheet, col, r.Tickmark, formula, tickStyle); err != nil {
			return err
		}
	}

	// Column I cross-foots the total row: E..G against H and B+D
	// against E.
	colIFormula := fmt.Sprintf(`=IF(AND((ROUND(SUM(E%d:G%d)-H%d,0)=0),ROUND((+B%d+D%d)-E%d,0)=0),"%s","%s")`,
		r.Total, r.Total, r.Total, r.Total, r.Total, r.Total,
		models.FormulaPassBox, models.FormulaFail)
	if err := e.writeFormulaTickmark(sheet, 9, r.Tickmark, colIFormula, tickStyle); err != nil {
		return err
	}

	// The System-of-Record tickmark row must be blank. When the row
	// under the marker already holds data, insert a fresh row and
	// renumber every offset below it.
	occupied, err := e.pair.TargetValue(sheet, 2, r.SystemTickmark)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, e.pair.Path, err)
	}
	if occupied != "" {
		if err := workbook.InsertRow(e.pair.Target, sheet, r.SystemTickmark); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		e.log.WithField("row", r.SystemTickmark).Info("inserted row for System of Record tickmark")
		r = r.ShiftBelow(r.SystemTickmark)
	}

	for _, col := range []int{2, 4} {
		letter := workbook.ColumnName(col)
		formula := systemOfRecordFormula(letter, r, udoRow)
		if err := e.writeFormulaTickmark(sheet, col, r.SystemTickmark, formula, tickStyle); err != nil {
			return err
		}
	}
	e.log.WithField("row", r.SystemTickmark).Info("System of Record tickmark formulas added")

	// UDO adjustment formulas in column D.
	hlaFormula := fmt.Sprintf("=SUM(D%d:D%d)", r.UDOTotalSystem, r.UDOAfterAdjustments-1)
	if err := workbook.SetFormula(e.pair.Target, sheet, 4, r.UDOAfterAdjustments, hlaFormula); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	diffFormula := fmt.Sprintf("=+D%d-D%d", r.UDOAfterAdjustments, udoRow)
	if err := workbook.SetFormula(e.pair.Target, sheet, 4, r.DifferenceAdjustments, diffFormula); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	udoTickFormula := fmt.Sprintf(`=IF(ROUND(SUM(D%d:D%d)-D%d,0)=0,"%s","%s")`,
		r.UDOTotalSystem, r.UDOAfterAdjustments-1, r.UDOAfterAdjustments,
		models.FormulaPass, models.FormulaFail)
	if err := e.writeFormulaTickmark(sheet, 4, r.UDOTickmark, udoTickFormula, tickStyle); err != nil {
		return err
	}

	diffTickFormula := fmt.Sprintf(`=IF(ROUND(+D%d-D%d+D%d,0)=0,"%s","%s")`,
		udoRow, r.UDOAfterAdjustments, r.DifferenceAdjustments,
		models.FormulaPass, models.FormulaFail)
	if err := e.writeFormulaTickmark(sheet, 4, r.DifferenceTickmark, diffTickFormula, tickStyle); err != nil {
		return err
	}

	e.log.WithField("sheet", sheet).Info("recon table formulas written")
	return e.pair.Save()
}

// systemOfRecordFormula builds the three-way conditional: when the
// UDO tickmark below udoRow shows a match and the difference is
// positive the difference is added back, otherwise its absolute value
// is subtracted.
func systemOfRecordFormula(col string, r models.ReconRows, udoRow int) string {
	return fmt.Sprintf(
		`=IF(AND(%[1]s%[2]d="i",%[1]s%[3]d>0),`+
			`IF(ROUND(%[1]s%[4]d-%[1]s%[5]d+%[1]s%[3]d,0)=0,"%[6]s","%[7]s"),`+
			`IF(ROUND(%[1]s%[4]d-%[1]s%[5]d-IF(%[1]s%[3]d<0,-%[1]s%[3]d,%[1]s%[3]d),0)=0,"%[6]s","%[7]s"))`,
		col, udoRow+1, r.SystemOfRecord, r.Total, udoRow,
		models.FormulaPass, models.FormulaFail)
}

// writeCommentsColumn writes the "DO Comments" header at the freshly
// inserted column K and formats the body below it.
func (e *Engine) writeCommentsColumn(sheet string, headerRow int) error {
	if err := workbook.SetCell(e.pair.Target, sheet, 11, headerRow, "DO Comments"); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	headerStyle, err := workbook.CommentsHeaderStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	headerCell := workbook.CellName(11, headerRow)
	if err := e.pair.Target.SetCellStyle(sheet, headerCell, headerCell, headerStyle); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	rows, err := e.pair.Target.GetRows(sheet)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, e.pair.Path, err)
	}
	lastRow := len(rows)
	if lastRow <= headerRow {
		return nil
	}

	bodyStyle, err := workbook.CommentsBodyStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	first := workbook.CellName(11, headerRow+1)
	last := workbook.CellName(11, lastRow)
	if err := e.pair.Target.SetCellStyle(sheet, first, last, bodyStyle); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	e.log.WithField("sheet", sheet).Info("DO Comments column formatted")
	return nil
}

func (e *Engine) writeFormulaTickmark(sheet string, col, row int, formula string, style int) error {
	if err := workbook.SetFormula(e.pair.Target, sheet, col, row, formula); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	cell := workbook.CellName(col, row)
	if err := e.pair.Target.SetCellStyle(sheet, cell, cell, style); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	e.log.WithFields(logger.Fields{
		"sheet":   sheet,
		"cell":    cell,
		"formula": formula,
	}).Debug("tickmark formula added")
	return nil
}
