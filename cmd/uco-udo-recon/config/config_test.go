package config

import (
	"strings"
	"testing"

	"uco-udo-recon/internal/workbook"
	"uco-udo-recon/pkg/logger"
)

func TestCreateLoggerConfig(t *testing.T) {
	tests := []struct {
		name           string
		verbose        bool
		logDir         string
		expectedLevel  logger.Level
		expectedOutput logger.Output
	}{
		{"default", false, "", logger.InfoLevel, logger.StderrOutput},
		{"verbose", true, "", logger.DebugLevel, logger.StderrOutput},
		{"log directory", false, "/var/log/recon", logger.DebugLevel, logger.FileOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := CreateLoggerConfig(tt.verbose, tt.logDir)

			if config.Level != tt.expectedLevel {
				t.Errorf("Level = %v, want %v", config.Level, tt.expectedLevel)
			}
			if config.Output != tt.expectedOutput {
				t.Errorf("Output = %v, want %v", config.Output, tt.expectedOutput)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("config should be valid: %v", err)
			}
		})
	}
}

func TestCreateLoggerConfig_RunFileInLogDir(t *testing.T) {
	config := CreateLoggerConfig(false, "/var/log/recon")

	if !strings.HasPrefix(config.File, "/var/log/recon/") {
		t.Errorf("log file %q should live under the log directory", config.File)
	}
	if !strings.HasSuffix(config.File, ".log") {
		t.Errorf("log file %q should have the .log extension", config.File)
	}
}

func TestCreateRecalculator(t *testing.T) {
	log := logger.Discard()

	tests := []struct {
		name       string
		recalcCmd  []string
		skipRecalc bool
		expectNop  bool
	}{
		{"skip requested", []string{"soffice", "{path}"}, true, true},
		{"no command configured", nil, false, true},
		{"command configured", []string{"soffice", "--headless", "{path}"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recalc := CreateRecalculator(tt.recalcCmd, tt.skipRecalc, log)

			_, isNop := recalc.(workbook.NopRecalculator)
			if isNop != tt.expectNop {
				t.Errorf("NopRecalculator = %v, want %v", isNop, tt.expectNop)
			}
			if !tt.expectNop {
				cr, ok := recalc.(*workbook.CommandRecalculator)
				if !ok {
					t.Fatalf("expected *workbook.CommandRecalculator, got %T", recalc)
				}
				if len(cr.Cmd) != len(tt.recalcCmd) {
					t.Errorf("Cmd = %v, want %v", cr.Cmd, tt.recalcCmd)
				}
			}
		})
	}
}
