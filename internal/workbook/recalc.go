package workbook

import (
	"os/exec"
	"strings"
	"time"

	"uco-udo-recon/internal/worker"
	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

// Recalculator refreshes a workbook's cached formula results before
// the cached-value view is read. The refresh is an external
// collaborator: a spreadsheet engine rewrites the file in place.
type Recalculator interface {
	Recalculate(path string, progress *logger.ProgressReporter, cancel worker.Canceller) error
}

const (
	// DefaultRecalcRetries and DefaultRecalcBackoff match the retry
	// policy the refresh has always used.
	DefaultRecalcRetries = 3
	DefaultRecalcBackoff = 5 * time.Second
)

// PathPlaceholder in a recalculation command argument is substituted
// with the workbook path. Without it the path is appended.
const PathPlaceholder = "{path}"

// CommandRecalculator shells out to a spreadsheet engine to
// recalculate and re-save the workbook. Each attempt runs the command
// to completion; failed attempts are retried with a fixed backoff,
// polling the cancel flag before each attempt and during the wait.
type CommandRecalculator struct {
	Cmd     []string
	Retries int
	Backoff time.Duration
	Log     logger.Logger
}

// NewCommandRecalculator builds a recalculator with the default retry
// policy.
func NewCommandRecalculator(cmd []string, log logger.Logger) *CommandRecalculator {
	return &CommandRecalculator{
		Cmd:     cmd,
		Retries: DefaultRecalcRetries,
		Backoff: DefaultRecalcBackoff,
		Log:     log,
	}
}

// Recalculate runs the configured command against path, retrying on
// failure. Progress moves in small steps per attempt and never
// crosses the recalculation band.
func (c *CommandRecalculator) Recalculate(path string, progress *logger.ProgressReporter, cancel worker.Canceller) error {
	if len(c.Cmd) == 0 {
		return reconerrors.New(reconerrors.CategoryRecalc, reconerrors.CodeEngineUnavailable,
			"no recalculation command configured").
			WithSuggestion("pass --recalc-cmd or --skip-recalc")
	}

	retries := c.Retries
	if retries <= 0 {
		retries = DefaultRecalcRetries
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if cancel.Cancelled() {
			c.Log.Info("workbook recalculation cancelled")
			return reconerrors.CancelledError("recalculation")
		}

		progress.Report(5*attempt, "Recalculating workbook")
		c.Log.WithFields(logger.Fields{
			"attempt": attempt,
			"file":    path,
		}).Info("recalculating workbook")

		args := c.argsFor(path)
		cmd := exec.Command(args[0], args[1:]...)
		output, err := cmd.CombinedOutput()
		if err == nil {
			progress.Report(25, "Workbook recalculated")
			c.Log.Info("workbook recalculated and saved")
			return nil
		}

		lastErr = err
		c.Log.WithError(err).WithFields(logger.Fields{
			"attempt": attempt,
			"output":  strings.TrimSpace(string(output)),
		}).Error("recalculation attempt failed")

		if attempt < retries {
			c.Log.Infof("retrying in %s", c.Backoff)
			if sleepCancelled(c.Backoff, cancel) {
				return reconerrors.CancelledError("recalculation")
			}
		}
	}

	return reconerrors.RecalcError(retries, lastErr)
}

func (c *CommandRecalculator) argsFor(path string) []string {
	args := make([]string, 0, len(c.Cmd)+1)
	substituted := false
	for _, a := range c.Cmd {
		if strings.Contains(a, PathPlaceholder) {
			a = strings.ReplaceAll(a, PathPlaceholder, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// sleepCancelled waits for d, polling cancel twice a second. Returns
// true if cancellation was observed before the wait elapsed.
func sleepCancelled(d time.Duration, cancel worker.Canceller) bool {
	const step = 500 * time.Millisecond
	for waited := time.Duration(0); waited < d; waited += step {
		if cancel.Cancelled() {
			return true
		}
		remaining := d - waited
		if remaining < step {
			time.Sleep(remaining)
		} else {
			time.Sleep(step)
		}
	}
	return cancel.Cancelled()
}

// NopRecalculator skips recalculation, for workbooks whose cached
// values are already current or environments without an engine.
type NopRecalculator struct {
	Log logger.Logger
}

func (n NopRecalculator) Recalculate(path string, progress *logger.ProgressReporter, cancel worker.Canceller) error {
	progress.Report(25, "Skipping recalculation")
	n.Log.WithField("file", path).Info("recalculation skipped")
	return nil
}
