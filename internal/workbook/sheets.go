package workbook

import (
	"github.com/xuri/excelize/v2"

	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// checkEvery bounds how often large-sheet loops poll the cancel flag.
const checkEvery = 50

// ImportSheet copies one sheet from the workbook at srcPath into the
// workbook at dstPath under a new name, saving the destination.
// Formulas and column widths carry over; values copy as raw text so
// the destination keeps what the source displayed. Returns a
// cancellation sentinel if cancel trips mid-copy; the destination is
// not saved in that case.
func ImportSheet(srcPath, srcSheet, dstPath, dstSheet string, log logger.Logger, cancel worker.Canceller) error {
	if cancel.Cancelled() {
		return reconerrors.CancelledError("sheet import")
	}

	src, err := excelize.OpenFile(srcPath, excelize.Options{RawCellValue: true})
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, srcPath, err)
	}
	defer src.Close()

	if idx, err := src.GetSheetIndex(srcSheet); err != nil || idx < 0 {
		return reconerrors.WorkbookError(reconerrors.CodeSheetMissing, srcPath, err).
			WithContext("sheet", srcSheet)
	}

	dst, err := excelize.OpenFile(dstPath, excelize.Options{RawCellValue: true})
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, dstPath, err)
	}
	defer dst.Close()

	if _, err := dst.NewSheet(dstSheet); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dstPath, err).
			WithContext("sheet", dstSheet)
	}

	log.WithFields(logger.Fields{
		"source_sheet": srcSheet,
		"dest_sheet":   dstSheet,
	}).Info("copying sheet")

	rows, err := src.GetRows(srcSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, srcPath, err)
	}

	for r, row := range rows {
		if r%checkEvery == 0 && cancel.Cancelled() {
			log.Info("sheet import cancelled mid-copy")
			return reconerrors.CancelledError("sheet import")
		}
		for c, value := range row {
			if value == "" {
				continue
			}
			cell := CellName(c+1, r+1)
			formula, ferr := src.GetCellFormula(srcSheet, cell)
			if ferr == nil && formula != "" {
				if err := dst.SetCellFormula(dstSheet, cell, formula); err != nil {
					return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dstPath, err)
				}
				continue
			}
			if err := dst.SetCellValue(dstSheet, cell, value); err != nil {
				return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dstPath, err)
			}
		}
	}

	copyColumnWidths(src, srcSheet, dst, dstSheet, log)

	if cancel.Cancelled() {
		return reconerrors.CancelledError("sheet import")
	}

	if err := dst.SaveAs(dstPath); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dstPath, err)
	}

	log.WithField("dest_sheet", dstSheet).Info("sheet copied")
	return nil
}

// copyColumnWidths mirrors the source sheet's column widths onto the
// destination. Width copy is best effort; a column that fails to read
// keeps the default width.
func copyColumnWidths(src *excelize.File, srcSheet string, dst *excelize.File, dstSheet string, log logger.Logger) {
	cols, err := src.GetCols(srcSheet)
	if err != nil {
		log.WithError(err).Debug("could not enumerate columns for width copy")
		return
	}
	for c := 1; c <= len(cols); c++ {
		name := ColumnName(c)
		width, err := src.GetColWidth(srcSheet, name)
		if err != nil {
			continue
		}
		if err := dst.SetColWidth(dstSheet, name, name, width); err != nil {
			log.WithError(err).WithField("column", name).Debug("could not set column width")
		}
	}
}
