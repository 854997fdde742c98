// Package worker provides cooperative cancellation and background
// execution for reconciliation runs. Cancellation is a polled flag
// threaded explicitly through every traversal loop, never a pushed
// signal: the run observes the flag at loop boundaries and returns
// cleanly at the next checkpoint.
package worker

import (
	"sync"
	"sync/atomic"

	"uco-udo-recon/pkg/logger"
)

// Canceller is the cancellation contract threaded through the
// locator, extractor and engine. Implementations must be safe for
// concurrent use.
type Canceller interface {
	Cancelled() bool
}

// CancelFlag is the standard Canceller: an atomic bool set once by
// the controlling side and polled by the run.
type CancelFlag struct {
	flag atomic.Bool
}

// NewCancelFlag returns a flag in the not-cancelled state.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Cancel requests cancellation. Idempotent.
func (c *CancelFlag) Cancel() {
	c.flag.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (c *CancelFlag) Cancelled() bool {
	return c.flag.Load()
}

// Never is a Canceller that never cancels, for synchronous callers.
var Never Canceller = neverCancel{}

type neverCancel struct{}

func (neverCancel) Cancelled() bool { return false }

// Task is one unit of background work. It reports progress through
// the sink and polls cancel at its own loop boundaries.
type Task func(progress logger.ProgressSink, cancel Canceller) (interface{}, error)

// Worker runs one Task at a time on a background goroutine. Progress,
// completion and failure are delivered through callbacks set before
// Start.
type Worker struct {
	log logger.Logger

	OnProgress logger.ProgressSink
	OnComplete func(result interface{})
	OnError    func(err error)

	mu      sync.Mutex
	running bool
	cancel  *CancelFlag
	done    chan struct{}
	result  interface{}
	err     error
}

// NewWorker creates an idle Worker.
func NewWorker(log logger.Logger) *Worker {
	return &Worker{log: log}
}

// Start launches task on a background goroutine. It returns false if
// a task is already running.
func (w *Worker) Start(task Task) bool {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return false
	}
	w.running = true
	w.cancel = NewCancelFlag()
	w.done = make(chan struct{})
	w.result = nil
	w.err = nil
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	go func() {
		defer close(done)

		result, err := task(w.reportProgress, cancel)

		w.mu.Lock()
		w.running = false
		w.result = result
		w.err = err
		w.mu.Unlock()

		if err != nil {
			w.log.WithError(err).Error("background task failed")
			if w.OnError != nil {
				w.OnError(err)
			}
			return
		}
		if w.OnComplete != nil {
			w.OnComplete(result)
		}
	}()

	return true
}

func (w *Worker) reportProgress(percent int, message string) {
	if w.OnProgress != nil {
		w.OnProgress(percent, message)
	}
}

// Running reports whether a task is in flight.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Cancel requests cancellation of the running task. The task keeps
// running until it polls the flag; Cancel does not wait for it.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		w.log.Info("cancellation requested")
		cancel.Cancel()
	}
}

// Wait blocks until the current task finishes. It is a no-op if no
// task was started.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Result returns the outcome of the last finished task.
func (w *Worker) Result() (interface{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.err
}
