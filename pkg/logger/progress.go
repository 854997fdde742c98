package logger

import (
	"sync"
)

// ProgressSink receives progress updates for a reconciliation run.
// Percent is 0..100; message describes the current step.
type ProgressSink func(percent int, message string)

// ProgressReporter wraps a ProgressSink and enforces the run's ordering
// guarantee: reported percentages are clamped to 0..100 and never
// decrease within one run, regardless of how the pipeline's nested
// phases interleave their updates.
type ProgressReporter struct {
	sink   ProgressSink
	logger Logger

	mutex sync.Mutex
	last  int
}

// NewProgressReporter creates a reporter for one run. A nil sink is
// allowed; updates then only go to the logger.
func NewProgressReporter(sink ProgressSink, log Logger) *ProgressReporter {
	if log == nil {
		log = Discard()
	}
	return &ProgressReporter{
		sink:   sink,
		logger: log.WithComponent("progress"),
	}
}

// Report reports a progress value with a step message.
func (p *ProgressReporter) Report(percent int, message string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	// Monotonic within a run: nested phases may lag the outer band.
	if percent < p.last {
		percent = p.last
	}
	p.last = percent

	p.logger.WithFields(Fields{
		"percent": percent,
		"step":    message,
	}).Debug("Progress update")

	if p.sink != nil {
		p.sink(percent, message)
	}
}

// Last returns the most recently reported percentage.
func (p *ProgressReporter) Last() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.last
}

// Band represents a fixed percentage band reserved for one phase of the
// run (load/recalc, certification, UCO-to-UDO, comparison, save).
type Band struct {
	reporter *ProgressReporter
	lo, hi   int
}

// Band creates a sub-range [lo, hi] of the full progress scale.
func (p *ProgressReporter) Band(lo, hi int) Band {
	if hi < lo {
		hi = lo
	}
	return Band{reporter: p, lo: lo, hi: hi}
}

// Step reports progress for item i of n within the band.
func (b Band) Step(i, n int, message string) {
	if n <= 0 {
		b.reporter.Report(b.lo, message)
		return
	}
	span := b.hi - b.lo
	b.reporter.Report(b.lo+span*i/n, message)
}

// Done reports the band's upper bound.
func (b Band) Done(message string) {
	b.reporter.Report(b.hi, message)
}
