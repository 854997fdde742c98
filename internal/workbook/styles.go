package workbook

import (
	"github.com/xuri/excelize/v2"

	"uco-udo-recon/internal/models"
)

// AccountingFormat renders negatives red and parenthesized.
const AccountingFormat = "#,##0.00;[Red](#,##0.00)"

var yellowFill = excelize.Fill{Type: "pattern", Color: []string{"FFFF00"}, Pattern: 1}

var centered = &excelize.Alignment{Horizontal: "center", Vertical: "center"}

// WriteTickmark writes a reviewer tickmark into a cell of f: the
// symbol in its display font, centered. Match marks on the DO TB
// sheet additionally get a yellow fill so they stand out next to the
// highlighted account values.
func WriteTickmark(f *excelize.File, sheet string, col, row int, mark models.Tickmark) error {
	if err := SetCell(f, sheet, col, row, mark.Symbol); err != nil {
		return err
	}

	style := &excelize.Style{
		Font:      &excelize.Font{Family: mark.Font, Size: mark.Size, Bold: mark.Bold},
		Alignment: centered,
	}
	if sheet == "DO TB" && mark.Match {
		style.Fill = yellowFill
	}

	id, err := f.NewStyle(style)
	if err != nil {
		return err
	}
	cell := CellName(col, row)
	return f.SetCellStyle(sheet, cell, cell, id)
}

// FormulaTickmarkStyle is the style for cells holding tickmark
// formulas: Wingdings so "a"/"û" render as check and cross, centered.
func FormulaTickmarkStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Wingdings", Size: 11},
		Alignment: centered,
	})
}

// CommentsHeaderStyle is the "DO Comments" column header: yellow
// fill, red bold Calibri 11, centered.
func CommentsHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 11, Bold: true, Color: "FF0000"},
		Fill:      yellowFill,
		Alignment: centered,
	})
}

// CommentsBodyStyle is the "DO Comments" column body: red bold
// Calibri 11, no fill.
func CommentsBodyStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: "Calibri", Size: 11, Bold: true, Color: "FF0000"},
	})
}

// AccountingStyle formats a money cell with the red-negative
// accounting number format.
func AccountingStyle(f *excelize.File) (int, error) {
	fmtStr := AccountingFormat
	return f.NewStyle(&excelize.Style{CustomNumFmt: &fmtStr})
}

// SumStyle formats the DO TB sum cell: accounting number format with
// a thin top border and a double bottom border.
func SumStyle(f *excelize.File) (int, error) {
	fmtStr := AccountingFormat
	return f.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtStr,
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 6},
		},
	})
}

// HighlightStyle applies a yellow fill with the accounting number
// format, used on the DO TB account value cells.
func HighlightStyle(f *excelize.File) (int, error) {
	fmtStr := AccountingFormat
	return f.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtStr,
		Fill:         yellowFill,
	})
}

// TickmarkHeaderStyle is the "Tickmark" column header written above
// the annotation columns on the Certification and UCO-to-UDO sheets.
func TickmarkHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 11, Bold: true},
		Alignment: centered,
	})
}
