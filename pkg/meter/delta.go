package meter

import "math"

// Delta is the result of comparing one day's counter readings.
type Delta struct {
	// Usage is the whole-unit consumption attributed to the day, nil when
	// no usage can be attributed (reading not entered yet, or counter
	// reset).
	Usage *float64
	// Reset reports that the current reading is lower than the previous
	// one, meaning the physical meter was swapped and the counting
	// sequence restarted. This is an expected domain state, not an error.
	Reset bool
}

// ComputeDelta computes the day's usage from the previous and current
// counter readings. Meters in this domain report whole units, so usage is
// rounded to the nearest integer. The function is pure and is re-run on
// every edit of either reading.
func ComputeDelta(previous, current float64) Delta {
	if current <= 0 {
		// current reading not entered yet
		return Delta{}
	}
	if current < previous {
		return Delta{Reset: true}
	}
	usage := math.Round(current - previous)
	return Delta{Usage: &usage}
}

// ApplyDelta combines a computed delta with the month-to-date base sum. On
// a reset day the base carries forward unchanged since no usage can be
// attributed.
func ApplyDelta(d Delta, priorMonthSum float64) (usage *float64, monthToDate float64) {
	if d.Usage == nil {
		return nil, priorMonthSum
	}
	return d.Usage, priorMonthSum + *d.Usage
}
