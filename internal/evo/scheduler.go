package evo

import "math"

// MutationScheduler owns the engine's mutation rate. Rates live in the
// percentage domain [0, 100]: the rate starts at the maximum, loses
// ceil(rate*decayPercent/100) every generation down to the minimum, and
// snaps back to the maximum after threshold consecutive generations without
// improvement.
type MutationScheduler struct {
	maxRate      float64
	minRate      float64
	decayPercent float64
	threshold    int

	current float64
	stale   int
}

func NewMutationScheduler(maxRate, minRate, decayPercent float64, threshold int) *MutationScheduler {
	return &MutationScheduler{
		maxRate:      maxRate,
		minRate:      minRate,
		decayPercent: decayPercent,
		threshold:    threshold,
		current:      maxRate,
	}
}

// Rate returns the current mutation rate in percent.
func (s *MutationScheduler) Rate() float64 { return s.current }

// Fraction returns the current mutation rate as a value in [0, 1].
func (s *MutationScheduler) Fraction() float64 { return s.current / 100 }

// Advance applies one generation's worth of decay and stagnation tracking.
// The decay runs every generation. An improving generation clears the stale
// counter; a non-improving one bumps it, and reaching the threshold resets
// the rate to the maximum and zeroes the counter.
func (s *MutationScheduler) Advance(improved bool) {
	decay := math.Ceil(s.current * s.decayPercent / 100)
	s.current = math.Max(s.minRate, s.current-decay)

	if improved {
		s.stale = 0
		return
	}
	s.stale++
	if s.stale >= s.threshold {
		s.current = s.maxRate
		s.stale = 0
	}
}
