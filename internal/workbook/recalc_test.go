package workbook

import (
	"testing"
	"time"

	reconerrors "uco-udo-recon/pkg/errors"
	"uco-udo-recon/pkg/logger"
)

func newTestReporter() *logger.ProgressReporter {
	return logger.NewProgressReporter(nil, logger.Discard())
}

func TestCommandRecalculator_Success(t *testing.T) {
	r := &CommandRecalculator{
		Cmd:     []string{"true"},
		Retries: 3,
		Backoff: time.Millisecond,
		Log:     logger.Discard(),
	}

	if err := r.Recalculate("/tmp/book.xlsx", newTestReporter(), neverCancel{}); err != nil {
		t.Errorf("Recalculate = %v, want nil", err)
	}
}

func TestCommandRecalculator_RetriesExhausted(t *testing.T) {
	r := &CommandRecalculator{
		Cmd:     []string{"false"},
		Retries: 3,
		Backoff: time.Millisecond,
		Log:     logger.Discard(),
	}

	err := r.Recalculate("/tmp/book.xlsx", newTestReporter(), neverCancel{})
	if err == nil {
		t.Fatal("Recalculate should fail when every attempt fails")
	}

	reconErr, ok := reconerrors.AsReconError(err)
	if !ok {
		t.Fatalf("error is %T, want *ReconError", err)
	}
	if reconErr.Code != reconerrors.CodeRetriesExhausted {
		t.Errorf("Code = %s, want %s", reconErr.Code, reconerrors.CodeRetriesExhausted)
	}
	if reconErr.Context["attempts"] != 3 {
		t.Errorf("attempts = %v, want 3", reconErr.Context["attempts"])
	}
}

func TestCommandRecalculator_NoCommand(t *testing.T) {
	r := &CommandRecalculator{Log: logger.Discard()}

	err := r.Recalculate("/tmp/book.xlsx", newTestReporter(), neverCancel{})
	reconErr, ok := reconerrors.AsReconError(err)
	if !ok || reconErr.Code != reconerrors.CodeEngineUnavailable {
		t.Errorf("error = %v, want engine_unavailable", err)
	}
}

func TestCommandRecalculator_CancelledBeforeAttempt(t *testing.T) {
	r := &CommandRecalculator{
		Cmd:     []string{"true"},
		Retries: 3,
		Backoff: time.Millisecond,
		Log:     logger.Discard(),
	}

	err := r.Recalculate("/tmp/book.xlsx", newTestReporter(), alwaysCancel{})
	if !reconerrors.IsCancelled(err) {
		t.Errorf("error = %v, want cancelled sentinel", err)
	}
}

func TestCommandRecalculator_PathSubstitution(t *testing.T) {
	r := &CommandRecalculator{Cmd: []string{"engine", "--file", "{path}", "--headless"}}
	args := r.argsFor("/data/book.xlsx")

	want := []string{"engine", "--file", "/data/book.xlsx", "--headless"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %s, want %s", i, args[i], want[i])
		}
	}
}

func TestCommandRecalculator_PathAppendedWithoutPlaceholder(t *testing.T) {
	r := &CommandRecalculator{Cmd: []string{"engine", "--headless"}}
	args := r.argsFor("/data/book.xlsx")

	if args[len(args)-1] != "/data/book.xlsx" {
		t.Errorf("last arg = %s, want the workbook path", args[len(args)-1])
	}
}

func TestNopRecalculator(t *testing.T) {
	n := NopRecalculator{Log: logger.Discard()}
	if err := n.Recalculate("/tmp/book.xlsx", newTestReporter(), neverCancel{}); err != nil {
		t.Errorf("Recalculate = %v, want nil", err)
	}
}
