package detect

// PulseWatch detects stalled wheels from cumulative encoder counts.
type PulseWatch struct {
	// Threshold is the mean per-wheel pulse delta below which the wheels count as stalled.
	Threshold uint64

	left, right uint64
	primed      bool
}

// Observe records the counts and returns the per-wheel deltas since the last
// observation and whether the wheels stalled. The first observation only primes.
func (p *PulseWatch) Observe(left, right uint64) (dl, dr uint64, stalled bool) {
	if !p.primed {
		p.left, p.right, p.primed = left, right, true
		return 0, 0, false
	}

	dl = delta(p.left, left)
	dr = delta(p.right, right)
	p.left, p.right = left, right

	return dl, dr, (dl+dr)/2 < p.Threshold
}

// Reset forgets the last counts.
func (p *PulseWatch) Reset() { p.primed = false }

// delta tolerates a counter reset by treating it as a fresh start.
func delta(prev, cur uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}
