package engine

import (
	"uco-udo-recon/internal/extract"
	"uco-udo-recon/internal/locator"
	"uco-udo-recon/internal/models"
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Request describes one reconciliation run: the three input workbooks,
// the component to reconcile and the recalculation collaborator.
type Request struct {
	// TargetFile is the reconciliation workbook. It is never
	// modified; a working copy with the " - DO" suffix receives all
	// annotations.
	TargetFile string
	// TrialBalanceFile supplies the "<component> Total" sheet
	// imported as "DO TB".
	TrialBalanceFile string
	// UcoToUdoFile supplies the "UCO to UDO" sheet imported as
	// "DO UCO to UDO".
	UcoToUdoFile string
	// Component is the TIER component code being reconciled.
	Component string
	// Recalc refreshes cached formula results on the working copy
	// before the cached-value view is read.
	Recalc workbook.Recalculator
}

// RunResult is the outcome of a run.
type RunResult struct {
	OutputPath string
	Summary    *reconerrors.RunSummary
}

// Run executes the full reconciliation pipeline: copy the target
// workbook, import the trial balance and TIER sheets, recalculate,
// extract and compare the tables, and save the annotated copy.
//
// Cancellation at any checkpoint returns the result with
// Summary.Cancelled set and a nil error; partial annotations may
// already be on disk from per-component saves, but no save is issued
// after cancellation is observed. Skippable component-level failures
// are collected in the summary; only workbook-level failures abort.
func Run(req Request, log logger.Logger, progress *logger.ProgressReporter, cancel worker.Canceller) (*RunResult, error) {
	summary := &reconerrors.RunSummary{}
	result := &RunResult{Summary: summary}

	fatal := func(err error) (*RunResult, error) {
		reconErr := reconerrors.WrapIfNeeded(err, reconerrors.CategoryInternal, reconerrors.CodeUnexpectedError, "reconciliation failed")
		summary.Fatal = reconErr
		return result, reconErr
	}
	cancelled := func() (*RunResult, error) {
		summary.Cancelled = true
		log.Info("reconciliation cancelled")
		return result, nil
	}

	log.WithFields(logger.Fields{
		"target":        req.TargetFile,
		"trial_balance": req.TrialBalanceFile,
		"uco_to_udo":    req.UcoToUdoFile,
		"component":     req.Component,
	}).Info("reconciliation started")

	progress.Report(5, "Creating copy of target file")
	outputPath, err := workbook.CopyForAnnotation(req.TargetFile)
	if err != nil {
		return fatal(err)
	}
	result.OutputPath = outputPath
	log.WithField("output", outputPath).Info("created working copy of target file")

	progress.Report(10, "Copying Trial Balance sheet")
	if err := workbook.ImportSheet(req.TrialBalanceFile, req.Component+" Total", outputPath, DOTBSheet, log, cancel); err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	progress.Report(15, "Copying UCO to UDO sheet")
	if err := workbook.ImportSheet(req.UcoToUdoFile, "UCO to UDO", outputPath, extract.UcoToUdoSheet, log, cancel); err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	if err := req.Recalc.Recalculate(outputPath, progress, cancel); err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	if cancel.Cancelled() {
		return cancelled()
	}

	progress.Report(30, "Loading workbooks")
	pair, err := workbook.Open(outputPath)
	if err != nil {
		return fatal(err)
	}
	defer pair.Close()

	norm := models.NewNormalizer(log)
	ext := extract.New(log, norm)
	loc := locator.New(log)
	eng := New(pair, loc, ext, norm, summary, log)

	progress.Report(35, "Processing Certification sheet")
	cert, err := ext.CertificationTable(pair, cancel)
	if err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}
	progress.Report(50, "Certification sheet processed")

	if err := eng.ProcessDOTB(cert.Total, cert.TotalRow, progress, cancel); err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	progress.Report(80, "Processing UCO to UDO sheet")
	uco, err := ext.UcoToUdoTable(pair, req.Component, cancel)
	if err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	if err := eng.Compare(cert, uco, progress, cancel); err != nil {
		if reconerrors.IsCancelled(err) {
			return cancelled()
		}
		return fatal(err)
	}

	if cancel.Cancelled() {
		return cancelled()
	}

	progress.Report(98, "Saving workbook")
	if err := pair.Save(); err != nil {
		return fatal(err)
	}

	progress.Report(100, "Reconciliation complete")
	log.WithField("output", outputPath).Info("reconciliation finished")
	return result, nil
}
