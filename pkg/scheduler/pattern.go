package scheduler

import (
	"math"
	"time"

	"casewatch/pkg/metrics"
)

// burstSubWindow is the fraction of elapsed window time a change
// cluster must fit in to count as a burst
const burstSubWindow = 0.1

// periodicMaxCV is the coefficient-of-variation ceiling for regular
// inter-change spacing
const periodicMaxCV = 0.3

// steadyMinChangeRate is the change-rate floor for a steady source
const steadyMinChangeRate = 0.5

// ClassifyPattern derives the activity pattern from a source's ordered
// metrics window. Pure function of the window; evaluation follows the
// tie-break order dormant > burst > periodic > steady > sporadic.
func ClassifyPattern(window []metrics.Sample) ActivityPattern {
	if len(window) == 0 {
		return PatternDormant
	}

	var changes []time.Time
	var processed, changed int
	for _, sample := range window {
		processed += sample.RecordsProcessed
		changed += sample.RecordsChanged
		if sample.Changed() {
			changes = append(changes, sample.Timestamp)
		}
	}

	if len(changes) == 0 {
		return PatternDormant
	}

	elapsed := window[len(window)-1].Timestamp.Sub(window[0].Timestamp)
	if isBurst(changes, elapsed) {
		return PatternBurst
	}

	if isPeriodic(changes) {
		return PatternPeriodic
	}

	changeRate := 0.0
	if processed > 0 {
		changeRate = float64(changed) / float64(processed)
	}
	if changeRate >= steadyMinChangeRate {
		return PatternSteady
	}

	return PatternSporadic
}

// isBurst reports whether more than half of the changes fall inside any
// single sub-window spanning 10% of the elapsed window time
func isBurst(changes []time.Time, elapsed time.Duration) bool {
	if elapsed <= 0 {
		// All samples share an instant; every change is one cluster
		return true
	}

	span := time.Duration(float64(elapsed) * burstSubWindow)
	for i := range changes {
		end := changes[i].Add(span)
		count := 0
		for _, ts := range changes[i:] {
			if ts.After(end) {
				break
			}
			count++
		}
		if count*2 > len(changes) {
			return true
		}
	}

	return false
}

// isPeriodic reports whether inter-change intervals are regularly
// spaced (coefficient of variation below the ceiling)
func isPeriodic(changes []time.Time) bool {
	if len(changes) < 3 {
		return false
	}

	intervals := make([]float64, 0, len(changes)-1)
	for i := 1; i < len(changes); i++ {
		intervals = append(intervals, changes[i].Sub(changes[i-1]).Seconds())
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return false
	}

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))

	cv := math.Sqrt(variance) / mean
	return cv < periodicMaxCV
}
