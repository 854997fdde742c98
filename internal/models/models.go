package models

import (
	"github.com/shopspring/decimal"
)

// ComparisonRow is one extracted reconciliation tuple. Key comes from
// the table's key column, the three money values from its money
// columns, and Row is the 1-based sheet row the tuple came from so
// annotations can be written back next to the source data.
type ComparisonRow struct {
	Key           string
	UnfilledTotal decimal.Decimal
	PartnerTotal  decimal.Decimal
	Difference    decimal.Decimal
	Row           int
}

// CertRow is one row of the Certification table. It carries the
// trading partner number and tab name alongside the comparison tuple
// because both feed the component sheet lookup.
type CertRow struct {
	PartnerNumber string
	Key           string
	TabName       string
	Unfilled      decimal.Decimal
	Partner       decimal.Decimal
	Difference    decimal.Decimal
	Row           int
}

// Comparison returns the row's values as a ComparisonRow.
func (c CertRow) Comparison() ComparisonRow {
	return ComparisonRow{
		Key:           c.Key,
		UnfilledTotal: c.Unfilled,
		PartnerTotal:  c.Partner,
		Difference:    c.Difference,
		Row:           c.Row,
	}
}

// ComponentAliases maps each TIER component code to the tab-name
// substrings its sheet may be titled with. The compound forms carry
// the trading partner number.
var ComponentAliases = map[string][]string{
	"CBP": {"CBP", "CBP-7005"},
	"CG":  {"USCG", "CG", "USCG-7006"},
	"CIS": {"CIS", "CIS-7001"},
	"CYB": {"CISA", "CYB", "CISA-7009"},
	"FEM": {"FEMA", "FEM", "FEMA-7007"},
	"ICE": {"ICE", "ICE-7019"},
	"MGA": {"MGA", "MGA-7021"},
	"MGT": {"MGT", "MGT-7003"},
	"OIG": {"OIG", "OIG-7002"},
	"SS":  {"USSS", "SS", "USSS-7004"},
	"ST":  {"ST", "STA-7008"},
	"TSA": {"TSA", "TSA-7011"},
	"WMD": {"CWMD", "WMD", "CWMD-7023"},
}

// TradingPartnerAliases maps a trading partner number to the compound
// sheet-name forms it may appear as.
var TradingPartnerAliases = map[string][]string{
	"7001": {"CIS-7001"},
	"7002": {"OIG-7002"},
	"7003": {"MGT-7003"},
	"7004": {"USSS-7004"},
	"7005": {"CBP-7005"},
	"7006": {"USCG-7006"},
	"7007": {"FEMA-7007"},
	"7008": {"STA-7008"},
	"7009": {"CISA-7009"},
	"7011": {"TSA-7011"},
	"7019": {"ICE-7019"},
	"7021": {"MGA-7021"},
	"7023": {"CWMD-7023"},
}

// ReservedSheets are never candidates for component sheet matching.
var ReservedSheets = map[string]bool{
	"Instructions":  true,
	"Certification": true,
	"DO TB":         true,
	"DO UCO to UDO": true,
}

// DepartmentCode is the department-level run, reconciled against the
// workbook as a whole rather than a single component sheet.
const DepartmentCode = "DO"

// ComponentCodes returns the component codes in a fixed order for CLI
// validation and help text. The department code comes first.
func ComponentCodes() []string {
	return []string{
		DepartmentCode,
		"CBP", "CG", "CIS", "CYB", "FEM", "ICE", "MGA",
		"MGT", "OIG", "SS", "ST", "TSA", "WMD",
	}
}

// ValidComponent reports whether code is a known component code.
func ValidComponent(code string) bool {
	if code == DepartmentCode {
		return true
	}
	_, ok := ComponentAliases[code]
	return ok
}

// Tickmark is a write-only cell annotation for human reviewers: a
// symbol rendered in a specific font so it displays as a review mark.
// The engine never reads tickmarks back.
type Tickmark struct {
	Symbol string
	Font   string
	Size   float64
	Bold   bool
	Match  bool
}

// Tickmarks written by the engine. Mismatches always render as a bold
// Calibri "X" at the size of the mark they replace.
var (
	TickmarkUCOMatch     = Tickmark{Symbol: "i", Font: "Wingdings", Size: 11, Match: true}
	TickmarkUCOMismatch  = Tickmark{Symbol: "X", Font: "Calibri", Size: 11, Bold: true}
	TickmarkCertMatch    = Tickmark{Symbol: "i", Font: "Wingdings", Size: 12, Match: true}
	TickmarkCertMismatch = Tickmark{Symbol: "X", Font: "Calibri", Size: 12, Bold: true}
	TickmarkRowMatch     = Tickmark{Symbol: "8", Font: "Wingdings 2", Size: 12, Match: true}
	TickmarkRowMismatch  = Tickmark{Symbol: "X", Font: "Calibri", Size: 12, Bold: true}
	TickmarkTBSum        = Tickmark{Symbol: "8", Font: "Wingdings 2", Size: 10, Match: true}
	TickmarkTBSumFail    = Tickmark{Symbol: "X", Font: "Calibri", Size: 10, Bold: true}
	TickmarkTBTotal      = Tickmark{Symbol: "a", Font: "Marlett", Size: 12, Match: true}
	TickmarkTBTotalFail  = Tickmark{Symbol: "X", Font: "Calibri", Size: 12, Bold: true}
)

// Symbols used inside tickmark formulas. They render as a check, a
// box-check and a cross in the Wingdings face.
const (
	FormulaPass    = "a"
	FormulaPassBox = "b"
	FormulaFail    = "û"
)

// PennyTolerance is the reconciliation equality threshold: two values
// match when the absolute difference is strictly below one cent.
var PennyTolerance = decimal.New(1, -2)

// WithinTolerance reports whether a and b are equal at the penny level.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(PennyTolerance)
}

// ReconRows holds the named row offsets of a component sheet's recon
// sub-table. The first six are located by marker text; the rest are
// derived. Keeping them in one struct lets a row insertion renumber
// every affected offset in one place.
type ReconRows struct {
	Header                int
	Total                 int
	SystemOfRecord        int
	UDOTotalSystem        int
	UDOAfterAdjustments   int
	DifferenceAdjustments int

	FirstData          int
	LastData           int
	Tickmark           int
	SystemTickmark     int
	UDOTickmark        int
	DifferenceTickmark int
}

// NewReconRows builds a ReconRows from the six marker rows, computing
// the derived offsets.
func NewReconRows(header, total, systemOfRecord, udoTotalSystem, udoAfterAdjustments, differenceAdjustments int) ReconRows {
	return ReconRows{
		Header:                header,
		Total:                 total,
		SystemOfRecord:        systemOfRecord,
		UDOTotalSystem:        udoTotalSystem,
		UDOAfterAdjustments:   udoAfterAdjustments,
		DifferenceAdjustments: differenceAdjustments,

		FirstData:          header + 1,
		LastData:           total - 1,
		Tickmark:           total + 1,
		SystemTickmark:     systemOfRecord + 1,
		UDOTickmark:        udoAfterAdjustments + 1,
		DifferenceTickmark: differenceAdjustments + 1,
	}
}

// ShiftBelow returns a copy with every offset strictly below the
// inserted sheet row moved down one. An offset equal to insertedAt
// keeps pointing at the freshly inserted blank row. Call it after
// inserting a row so no reference site is missed.
func (r ReconRows) ShiftBelow(insertedAt int) ReconRows {
	shift := func(row int) int {
		if row > insertedAt {
			return row + 1
		}
		return row
	}
	return ReconRows{
		Header:                shift(r.Header),
		Total:                 shift(r.Total),
		SystemOfRecord:        shift(r.SystemOfRecord),
		UDOTotalSystem:        shift(r.UDOTotalSystem),
		UDOAfterAdjustments:   shift(r.UDOAfterAdjustments),
		DifferenceAdjustments: shift(r.DifferenceAdjustments),

		FirstData:          shift(r.FirstData),
		LastData:           shift(r.LastData),
		Tickmark:           shift(r.Tickmark),
		SystemTickmark:     shift(r.SystemTickmark),
		UDOTickmark:        shift(r.UDOTickmark),
		DifferenceTickmark: shift(r.DifferenceTickmark),
	}
}
