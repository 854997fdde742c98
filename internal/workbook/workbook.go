// Package workbook wraps excelize with the two-view access pattern
// the reconciliation needs: a formula-preserving view used for every
// write and a cached-value view used for every money read.
package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	reconerrors "uco-udo-recon/pkg/errors"
)

// Pair holds both open views of one workbook file. Target preserves
// formulas as text and is the only view ever written or saved; Data
// returns the cached values the last recalculation produced.
type Pair struct {
	Target *excelize.File
	Data   *excelize.File
	Path   string
}

// Open loads both views of the workbook at path.
func Open(path string) (*Pair, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, reconerrors.WorkbookError(reconerrors.CodeFileNotFound, path, err)
	}

	target, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, path, err)
	}

	data, err := excelize.OpenFile(path)
	if err != nil {
		target.Close()
		return nil, reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, path, err)
	}

	return &Pair{Target: target, Data: data, Path: path}, nil
}

// TargetValue reads a cell from the formula-preserving view. A cell
// holding a formula comes back as its "="-prefixed formula text, the
// way the annotation pass expects to see unrecalculated residue.
func (p *Pair) TargetValue(sheet string, col, row int) (string, error) {
	cell := CellName(col, row)
	formula, err := p.Target.GetCellFormula(sheet, cell)
	if err == nil && formula != "" {
		return "=" + formula, nil
	}
	return p.Target.GetCellValue(sheet, cell)
}

// DataValue reads a cell from the cached-value view with its number
// format applied, so money comes back the way the sheet displays it.
func (p *Pair) DataValue(sheet string, col, row int) (string, error) {
	return p.Data.GetCellValue(sheet, CellName(col, row))
}

// Save writes the Target view back to the workbook's path.
func (p *Pair) Save() error {
	if err := p.Target.SaveAs(p.Path); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, p.Path, err)
	}
	return nil
}

// Close releases both views.
func (p *Pair) Close() error {
	terr := p.Target.Close()
	derr := p.Data.Close()
	if terr != nil {
		return terr
	}
	return derr
}

// AnnotationSuffix is appended to the target file's base name when
// copying it for annotation.
const AnnotationSuffix = " - DO"

// CopyForAnnotation copies the workbook at src to a sibling file named
// "<name> - DO<ext>" and returns the new path. The source file is
// never modified.
func CopyForAnnotation(src string) (string, error) {
	ext := filepath.Ext(src)
	dst := strings.TrimSuffix(src, ext) + AnnotationSuffix + ext

	in, err := os.Open(src)
	if err != nil {
		return "", reconerrors.WorkbookError(reconerrors.CodeFileNotFound, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dst, err)
	}
	if err := out.Close(); err != nil {
		return "", reconerrors.WorkbookError(reconerrors.CodeSaveFailed, dst, err)
	}

	return dst, nil
}

// CellName converts 1-based coordinates to an A1-style reference.
func CellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}

// ColumnName converts a 1-based column number to its letter form.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "A"
	}
	return name
}

// CellString reads a cell as a string from f.
func CellString(f *excelize.File, sheet string, col, row int) (string, error) {
	return f.GetCellValue(sheet, CellName(col, row))
}

// SetCell writes a value into a cell of f.
func SetCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	return f.SetCellValue(sheet, CellName(col, row), value)
}

// SetFormula writes a formula into a cell of f. A leading "=" is
// accepted and stripped.
func SetFormula(f *excelize.File, sheet string, col, row int, formula string) error {
	return f.SetCellFormula(sheet, CellName(col, row), strings.TrimPrefix(formula, "="))
}

// InsertRow inserts one blank row before the given 1-based row.
func InsertRow(f *excelize.File, sheet string, row int) error {
	return f.InsertRows(sheet, row, 1)
}

// InsertColumn inserts one blank column before the given column letter.
func InsertColumn(f *excelize.File, sheet, col string) error {
	return f.InsertCols(sheet, col, 1)
}

// SetColumnWidth sets the width of a single column.
func SetColumnWidth(f *excelize.File, sheet, col string, width float64) error {
	return f.SetColWidth(sheet, col, col, width)
}
