// Package engine cross-references the Certification and UCO-to-UDO
// tables, verifies component sheets, and writes tickmark annotations
// and verification formulas back into the workbook.
package engine

import (
	"github.com/shopspring/decimal"

	"uco-udo-recon/internal/extract"
	"uco-udo-recon/internal/locator"
	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Marker substrings searched for on component sheets. Substring match
// because the cells carry varying surrounding text.
const (
	ucoReportedMarker = "UCO total reported in TIER"
	udoReportedMarker = "UDO total reported in TIER"
)

// Engine drives the comparison phases against one open workbook pair.
type Engine struct {
	pair      *workbook.Pair
	locator   *locator.Locator
	extractor *extract.Extractor
	norm      *models.Normalizer
	summary   *reconerrors.RunSummary
	log       logger.Logger
}

// New creates an Engine. The summary collects non-fatal skips for the
// end-of-run report.
func New(pair *workbook.Pair, loc *locator.Locator, ext *extract.Extractor, norm *models.Normalizer, summary *reconerrors.RunSummary, log logger.Logger) *Engine {
	return &Engine{
		pair:      pair,
		locator:   loc,
		extractor: ext,
		norm:      norm,
		summary:   summary,
		log:       log,
	}
}

// Compare runs the comparison phases: filter the Certification rows
// against the UCO-to-UDO key set, verify each surviving row's
// component sheet, cross-tick rows that match on all three values,
// then save once. Cancellation is polled at every loop boundary and
// returns a clean sentinel; nothing is saved after it is observed.
func (e *Engine) Compare(cert *extract.CertTable, uco *extract.UcoTable, progress *logger.ProgressReporter, cancel worker.Canceller) error {
	if cancel.Cancelled() {
		e.log.Info("range comparison cancelled")
		return reconerrors.CancelledError("comparison")
	}

	e.log.Info("starting comparison of Certification and DO UCO to UDO ranges")
	progress.Report(80, "Starting comparison of ranges")

	ucoKeys := uco.KeySet()
	e.log.WithField("unique_keys", len(ucoKeys)).Info("collected component keys from UCO to UDO range")
	progress.Report(83, "Processing certification values")

	surviving := filterCertRows(cert.Rows, ucoKeys, e.log)
	e.log.WithField("rows", len(surviving)).Info("certification rows surviving filter")
	progress.Report(85, "Analyzing component data")

	band := progress.Band(85, 95)
	for i, row := range surviving {
		if cancel.Cancelled() {
			e.log.Info("range comparison cancelled during component processing")
			return reconerrors.CancelledError("comparison")
		}
		band.Step(i+1, len(surviving), "Processing component: "+row.Key)

		if err := e.verifyComponentSheet(row, uco, cancel); err != nil {
			return err
		}

		if cancel.Cancelled() {
			e.log.Info("range comparison cancelled before tickmark processing")
			return reconerrors.CancelledError("comparison")
		}

		if err := e.crossTickMatches(row, uco.Rows); err != nil {
			return err
		}
	}

	if cancel.Cancelled() {
		e.log.Info("range comparison cancelled before saving workbook")
		return reconerrors.CancelledError("comparison")
	}

	progress.Report(95, "Saving workbook with comparisons")
	if err := e.pair.Save(); err != nil {
		return err
	}
	e.log.Info("workbook saved with updated comparisons and tickmarks")
	progress.Report(97, "Comparison process completed")
	return nil
}

// filterCertRows applies the certification filter: blank-key rows are
// always dropped; a keyed row is dropped only when all three of its
// values are exactly zero AND its key is absent from the UCO-to-UDO
// set. Either condition alone is not enough.
func filterCertRows(rows []models.CertRow, ucoKeys map[string]bool, log logger.Logger) []models.CertRow {
	var out []models.CertRow
	for _, row := range rows {
		if row.Key == "" {
			log.WithField("row", row.Row).Debug("component key is empty, skipping")
			continue
		}

		allZero := row.Unfilled.IsZero() && row.Partner.IsZero() && row.Difference.IsZero()
		if allZero && !ucoKeys[row.Key] {
			log.WithFields(logger.Fields{
				"row": row.Row,
				"key": row.Key,
			}).Debug("all values zero and key absent from UCO range, skipping")
			continue
		}

		out = append(out, row)
	}
	return out
}

// verifyComponentSheet locates the certification row's component
// sheet and checks its reported UCO and UDO totals against the
// UCO-to-UDO table. A sheet or marker that cannot be found is logged
// and recorded as a skip; only cancellation and write failures
// propagate.
func (e *Engine) verifyComponentSheet(row models.CertRow, uco *extract.UcoTable, cancel worker.Canceller) error {
	sheet, err := e.locator.FindComponentSheet(e.pair.Target, row.TabName, row.Key, row.PartnerNumber, cancel)
	if err != nil {
		if reconerrors.IsCancelled(err) {
			return err
		}
		e.log.WithError(err).WithField("key", row.Key).Warn("component sheet not found, skipping verification")
		e.summary.AddSkip(row.Key, "component sheet", "no sheet matched the search tokens")
		return nil
	}

	e.log.WithField("sheet", sheet).Info("processing component sheet")

	// UCO check: the cell next to the UCO marker (column B) against
	// the key-matched row's unfilled total.
	markerRow, reported, ucoRow, ok, err := e.readReportedTotal(sheet, row.Key, ucoReportedMarker, 2, uco)
	if err != nil {
		return err
	}
	if ok {
		isMatch := models.WithinTolerance(reported, ucoRow.UnfilledTotal)
		if err := e.writeVerificationTickmark(sheet, 2, markerRow+1, isMatch); err != nil {
			return err
		}
		e.log.WithFields(logger.Fields{
			"sheet":    sheet,
			"reported": reported.String(),
			"expected": ucoRow.UnfilledTotal.String(),
			"match":    isMatch,
		}).Info("UCO reported total compared")
	}

	if cancel.Cancelled() {
		return reconerrors.CancelledError("component verification")
	}

	// UDO check: column D against the partner total. A key-matched
	// row also triggers the recon sub-table processing, match or not.
	markerRow, reported, ucoRow, ok, err = e.readReportedTotal(sheet, row.Key, udoReportedMarker, 4, uco)
	if err != nil {
		return err
	}
	if ok {
		isMatch := models.WithinTolerance(reported, ucoRow.PartnerTotal)
		if err := e.writeVerificationTickmark(sheet, 4, markerRow+1, isMatch); err != nil {
			return err
		}
		e.log.WithFields(logger.Fields{
			"sheet":    sheet,
			"reported": reported.String(),
			"expected": ucoRow.PartnerTotal.String(),
			"match":    isMatch,
		}).Info("UDO reported total compared")

		if err := e.processReconTable(sheet, markerRow, cancel); err != nil {
			return err
		}
	}

	return nil
}

// readReportedTotal finds a marker cell on the component sheet, reads
// the reported value from the given column of that row and resolves
// the key-matched UCO-to-UDO row. ok is false when the marker or the
// key match is missing; both cases are warnings, not errors.
func (e *Engine) readReportedTotal(sheet, key, marker string, col int, uco *extract.UcoTable) (markerRow int, reported decimal.Decimal, ucoRow models.ComparisonRow, ok bool, err error) {
	_, markerRow, found := e.extractor.FindCellContaining(e.pair, sheet, marker)
	if !found {
		e.log.WithFields(logger.Fields{
			"sheet":  sheet,
			"marker": marker,
			"key":    key,
		}).Warn("reported total cell not found in component sheet")
		return 0, decimal.Decimal{}, models.ComparisonRow{}, false, nil
	}

	raw, rerr := e.pair.TargetValue(sheet, col, markerRow)
	if rerr != nil {
		return 0, decimal.Decimal{}, models.ComparisonRow{}, false,
			reconerrors.WorkbookError(reconerrors.CodeFileCorrupted, e.pair.Path, rerr)
	}
	reported = e.norm.Normalize(raw)

	ucoRow, found = uco.FindByKey(key)
	if !found {
		e.log.WithField("key", key).Warn("no matching value found in UCO to UDO sheet")
		return 0, decimal.Decimal{}, models.ComparisonRow{}, false, nil
	}

	return markerRow, reported, ucoRow, true, nil
}

func (e *Engine) writeVerificationTickmark(sheet string, col, row int, isMatch bool) error {
	mark := models.TickmarkUCOMatch
	if !isMatch {
		mark = models.TickmarkUCOMismatch
	}
	if err := workbook.WriteTickmark(e.pair.Target, sheet, col, row, mark); err != nil {
		return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
	}
	return nil
}

// crossTickMatches writes paired tickmarks for every UCO-to-UDO row
// that matches the certification row on key and all three values
// within the penny tolerance: "i" at column H of the certification
// row and "8" at column N of the UCO-to-UDO row.
func (e *Engine) crossTickMatches(cert models.CertRow, ucoRows []models.ComparisonRow) error {
	for _, ucoRow := range ucoRows {
		if cert.Key != ucoRow.Key {
			continue
		}
		if !models.WithinTolerance(cert.Unfilled, ucoRow.UnfilledTotal) ||
			!models.WithinTolerance(cert.Partner, ucoRow.PartnerTotal) ||
			!models.WithinTolerance(cert.Difference, ucoRow.Difference) {
			continue
		}

		e.log.WithField("key", cert.Key).Info("match found between Certification and UCO to UDO rows")

		if err := workbook.WriteTickmark(e.pair.Target, extract.CertificationSheet, 8, cert.Row, models.TickmarkCertMatch); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
		if err := workbook.WriteTickmark(e.pair.Target, extract.UcoToUdoSheet, 14, ucoRow.Row, models.TickmarkRowMatch); err != nil {
			return reconerrors.WorkbookError(reconerrors.CodeSaveFailed, e.pair.Path, err)
		}
	}
	return nil
}
