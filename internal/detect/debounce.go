// Package detect holds the small stateful filters mission states use to turn
// noisy per-tick readings into confirmed events.
package detect

// Debounce confirms a condition after it holds for Threshold consecutive observations.
type Debounce struct {
	Threshold int
	count     int
}

// NewDebounce returns a Debounce firing after threshold consecutive trues.
func NewDebounce(threshold int) *Debounce {
	if threshold < 1 {
		threshold = 1
	}
	return &Debounce{Threshold: threshold}
}

// Observe records one observation. It returns true exactly once, on the
// observation that brings the consecutive count to Threshold.
func (d *Debounce) Observe(cond bool) bool {
	if !cond {
		d.count = 0
		return false
	}
	d.count++
	return d.count == d.Threshold
}

// Count returns the current run of consecutive trues.
func (d *Debounce) Count() int { return d.count }

// Reached reports whether the current run is at or past Threshold.
func (d *Debounce) Reached() bool { return d.count >= d.Threshold }

// Reset clears the run.
func (d *Debounce) Reset() { d.count = 0 }
