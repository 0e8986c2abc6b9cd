package fusion

// Debouncer suppresses verdict flicker: a status transition is reported only
// after the same candidate status has been resolved for k consecutive
// cycles. With k <= 1 it is a passthrough, preserving the memoryless
// per-cycle behavior.
//
// Debouncer is the one piece of cross-cycle state in the monitor and is
// owned by a single watcher — it is not safe for concurrent use.
type Debouncer struct {
	k         int
	primed    bool
	current   Verdict
	candidate Status
	streak    int
}

// NewDebouncer returns a Debouncer requiring k consecutive cycles before
// accepting a status transition.
func NewDebouncer(k int) *Debouncer {
	if k < 1 {
		k = 1
	}
	return &Debouncer{k: k}
}

// Observe feeds one cycle's verdict and returns the verdict to report.
// Same-status verdicts always pass through so RUL keeps updating while the
// status holds.
func (d *Debouncer) Observe(v Verdict) Verdict {
	if d.k == 1 {
		return v
	}
	if !d.primed {
		d.primed = true
		d.current = v
		d.candidate = v.Status
		d.streak = d.k
		return v
	}

	if v.Status == d.current.Status {
		d.current = v
		d.candidate = v.Status
		d.streak = d.k
		return v
	}

	if v.Status == d.candidate {
		d.streak++
	} else {
		d.candidate = v.Status
		d.streak = 1
	}

	if d.streak >= d.k {
		d.current = v
		return v
	}
	return d.current
}
