// Package config builds the pipeline's collaborators from CLI flag
// values.
package config

import (
	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/pkg/logger"
)

// CreateLoggerConfig builds the logger configuration for one run.
// With a log directory the run writes a timestamped debug log file;
// otherwise logs go to stderr at info level, or debug when verbose.
func CreateLoggerConfig(verbose bool, logDir string) *logger.Config {
	if logDir != "" {
		return logger.RunConfig(logDir)
	}

	config := logger.DefaultConfig()
	if verbose {
		config.Level = logger.DebugLevel
	}
	return config
}

// CreateRecalculator builds the recalculation collaborator from the
// CLI flags: the external engine command when one is configured, or
// the no-op when recalculation is skipped.
func CreateRecalculator(recalcCmd []string, skipRecalc bool, log logger.Logger) workbook.Recalculator {
	if skipRecalc || len(recalcCmd) == 0 {
		return workbook.NopRecalculator{Log: log}
	}
	return workbook.NewCommandRecalculator(recalcCmd, log)
}
