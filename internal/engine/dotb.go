package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"uco-udo-recon/internal/extract"
	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// DOTBSheet is the trial balance sheet imported into the working copy.
const DOTBSheet = "DO TB"

// The two unfilled-order account codes summed out of the trial
// balance.
var dotbAccounts = []string{"422100", "422200"}

// ProcessDOTB supplements the trial balance sheet: it finds the first
// occurrence of each account code in column C, copies the cached
// column H value into column N with the accounting format, writes a
// sum formula under the lower of the two rows and compares the sum
// against the certification total. Matching sums get tickmarks on
// both sheets; mismatches get bold X marks. Missing account rows end
// the step with a logged skip, never a failure.
func (e *Engine) ProcessDOTB(certTotal decimal.Decimal, certTotalRow int, progress *logger.ProgressReporter, cancel worker.Canceller) error {
	if cancel.Cancelled() {
		e.log.Info("DO TB sheet processing cancelled")
		return reconerrors.CancelledError("DO TB processing")
	}

	e.log.Info("processing 'DO TB' sheet")
	progress.Report(55, "Processing DO TB sheet")

	rows, err := e.pair.Target.GetRows(DOTBSheet)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSheetMissing, e.pair.Path, err).
			WithContext("sheet", DOTBSheet)
	}

	progress.Report(60, "Searching for account codes")

	accountRows := make(map[string]int, len(dotbAccounts))
	accountValues := make(map[string]decimal.Decimal, len(dotbAccounts))

	highlight, err := workbook.HighlightStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	accounting, err := workbook.AccountingStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}

	for i, row := range rows {
		if cancel.Cancelled() {
			e.log.Info("DO TB sheet processing cancelled")
			return reconerrors.CancelledError("DO TB processing")
		}
		if len(row) < 3 {
			continue
		}

		code := strings.TrimSpace(row[2])
		if !isAccountCode(code) {
			continue
		}
		if _, seen := accountRows[code]; seen {
			continue
		}
		rowNum := i + 1

		raw, err := e.pair.DataValue(DOTBSheet, 8, rowNum)
		if err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, e.pair.Path, err)
		}
		if strings.HasPrefix(raw, "=") {
			e.log.WithFields(logger.Fields{
				"row":   rowNum,
				"value": raw,
			}).Error("unexpected formula residue in DO TB column H")
			continue
		}

		value := e.norm.Normalize(raw)
		accountRows[code] = rowNum
		accountValues[code] = value
		e.log.WithFields(logger.Fields{
			"account": code,
			"row":     rowNum,
			"value":   value.String(),
		}).Info("account row found")

		hCell := workbook.CellName(8, rowNum)
		if err := e.pair.Target.SetCellStyle(DOTBSheet, hCell, hCell, highlight); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}

		if err := workbook.SetCell(e.pair.Target, DOTBSheet, 14, rowNum, value.InexactFloat64()); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		nCell := workbook.CellName(14, rowNum)
		if err := e.pair.Target.SetCellStyle(DOTBSheet, nCell, nCell, accounting); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}

		if len(accountRows) == len(dotbAccounts) {
			break
		}
	}

	if len(accountRows) < len(dotbAccounts) {
		e.log.Error("one or both of '422100' or '422200' were not found in DO TB column C")
		e.summary.AddSkip("", "DO TB totals", "account rows not found in column C")
		return nil
	}

	progress.Report(65, "Calculating summations")

	row422100 := accountRows["422100"]
	row422200 := accountRows["422200"]
	sumRow := row422100
	if row422200 > sumRow {
		sumRow = row422200
	}
	sumRow++

	sumFormula := fmt.Sprintf("=N%d+N%d", row422100, row422200)
	if err := workbook.SetFormula(e.pair.Target, DOTBSheet, 14, sumRow, sumFormula); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	sumStyle, err := workbook.SumStyle(e.pair.Target)
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	sumCell := workbook.CellName(14, sumRow)
	if err := e.pair.Target.SetCellStyle(DOTBSheet, sumCell, sumCell, sumStyle); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	e.log.WithField("formula", sumFormula).Info("sum formula entered in DO TB column N")

	e.autoFitColumn(DOTBSheet, 14, rows)

	calculated := accountValues["422100"].Add(accountValues["422200"])
	e.log.WithField("sum", calculated.String()).Info("account sum calculated")

	if models.WithinTolerance(calculated, certTotal) {
		if err := workbook.WriteTickmark(e.pair.Target, DOTBSheet, 15, sumRow, models.TickmarkTBSum); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		if err := workbook.WriteTickmark(e.pair.Target, extract.CertificationSheet, 4, certTotalRow+1, models.TickmarkTBTotal); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		e.log.Info("sums match, tickmarks added")
	} else {
		if err := workbook.WriteTickmark(e.pair.Target, DOTBSheet, 15, sumRow, models.TickmarkTBSumFail); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		if err := workbook.WriteTickmark(e.pair.Target, extract.CertificationSheet, 4, certTotalRow+1, models.TickmarkTBTotalFail); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		e.log.WithFields(logger.Fields{
			"calculated":    calculated.String(),
			"certification": certTotal.String(),
		}).Info("sums do not match, X marks added")
	}

	progress.Report(75, "DO TB sheet processing complete")
	return nil
}

func isAccountCode(code string) bool {
	for _, c := range dotbAccounts {
		if code == c {
			return true
		}
	}
	return false
}

// autoFitColumn widens a column to fit its longest rendered value.
func (e *Engine) autoFitColumn(sheet string, col int, rows [][]string) {
	width := 0
	for _, row := range rows {
		if len(row) >= col && len(row[col-1]) > width {
			width = len(row[col-1])
		}
	}
	if width == 0 {
		return
	}
	name := workbook.ColumnName(col)
	if err := workbook.SetColumnWidth(e.pair.Target, sheet, name, float64(width)+2); err != nil {
		e.log.WithError(err).WithField("column", name).Debug("could not auto-fit column")
	}
}
