package transform

import "math"

// Aspect-correction targets. Both assume a 16:9 display.
const (
	// Scale16x10 stretches 16:10 content to fill 16:9 horizontally.
	Scale16x10 = (16.0 / 9.0) / (16.0 / 10.0)
	// Scale21x9 is an approximate vertical fill for ultrawide 21:9 content.
	Scale21x9 = 1.33
)

// Snap returns target when candidate lies within half an increment of it,
// otherwise candidate unchanged.
func Snap(target, candidate, increment float64) float64 {
	if math.Abs(target-candidate) < increment/2 {
		return target
	}
	return candidate
}

// snapAll applies Snap for each target in order. A later target wins when
// both thresholds are met.
func snapAll(candidate, increment float64, targets ...float64) float64 {
	for _, t := range targets {
		candidate = Snap(t, candidate, increment)
	}
	return candidate
}

// step grows or shrinks value by pct percent of itself, then snaps.
// The step is geometric: repeated calls multiply by (1 ± pct/100).
func step(value, pct float64, sign float64, targets ...float64) float64 {
	increment := value * pct / 100
	return snapAll(value+sign*increment, increment, targets...)
}
