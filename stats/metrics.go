// Package stats computes the statistical signature of raw value chunks.
//
// Compute is a pure, deterministic function: identical chunks always yield
// identical metrics, making every metric golden-vector testable. The health
// monitor and codec selector consume these signatures; nothing here touches
// coding context or wire bytes.
package stats

import (
	"math"
	"sort"
)

// Metrics is the statistical signature of one raw value chunk.
type Metrics struct {
	// UniqueRatio is distinct values over chunk length.
	UniqueRatio float64
	// UniqueDeltaRatio is distinct first-order deltas over delta count.
	UniqueDeltaRatio float64
	// ZeroRatio is the fraction of zero values.
	ZeroRatio float64
	// MeanAbsDelta is the mean absolute first-order delta.
	MeanAbsDelta float64
	// P90AbsDelta is the 90th percentile absolute first-order delta.
	P90AbsDelta float64
	// SignFlipRate is the fraction of consecutive delta pairs with opposite sign.
	SignFlipRate float64
	// MonotonicityScore is the larger of the non-decreasing and non-increasing
	// delta fractions; 1.0 for perfectly monotonic chunks.
	MonotonicityScore float64
	// OutlierScore is the fraction of deltas exceeding 4x the mean magnitude.
	OutlierScore float64
}

// Regime is a telemetry-only coarse classification of a chunk's signature.
type Regime uint8

const (
	RegimeOrdered Regime = iota // ORDERED: near-monotonic, repetitive deltas
	RegimeMixed                 // MIXED: everything in between
	RegimeChaotic               // CHAOTIC: high entropy in values and deltas
)

func (r Regime) String() string {
	switch r {
	case RegimeOrdered:
		return "ORDERED"
	case RegimeMixed:
		return "MIXED"
	case RegimeChaotic:
		return "CHAOTIC"
	default:
		return "Unknown"
	}
}

// Compute returns the statistical signature of chunk.
//
// Deltas are first-order differences within the chunk; single-element chunks
// have no deltas and report zero for every delta-derived metric except
// MonotonicityScore, which defaults to 1.0.
//
// Callers must not pass empty chunks; the block pipeline guarantees chunks
// hold at least one element.
func Compute(chunk []int64) Metrics {
	n := len(chunk)
	if n == 0 {
		return Metrics{MonotonicityScore: 1.0}
	}

	uniques := make(map[int64]struct{}, n)
	zeros := 0
	for _, v := range chunk {
		uniques[v] = struct{}{}
		if v == 0 {
			zeros++
		}
	}

	m := Metrics{
		UniqueRatio:       float64(len(uniques)) / float64(n),
		ZeroRatio:         float64(zeros) / float64(n),
		MonotonicityScore: 1.0,
	}

	if n == 1 {
		return m
	}

	deltas := make([]int64, 0, n-1)
	for i := 1; i < n; i++ {
		deltas = append(deltas, chunk[i]-chunk[i-1])
	}

	uniqueDeltas := make(map[int64]struct{}, len(deltas))
	absDeltas := make([]float64, 0, len(deltas))
	sumAbs := 0.0
	nonNeg, nonPos := 0, 0

	for _, d := range deltas {
		uniqueDeltas[d] = struct{}{}
		abs := math.Abs(float64(d))
		absDeltas = append(absDeltas, abs)
		sumAbs += abs
		if d >= 0 {
			nonNeg++
		}
		if d <= 0 {
			nonPos++
		}
	}

	m.UniqueDeltaRatio = float64(len(uniqueDeltas)) / float64(len(deltas))
	m.MeanAbsDelta = sumAbs / float64(len(deltas))

	sort.Float64s(absDeltas)
	m.P90AbsDelta = absDeltas[(len(absDeltas)*9)/10]

	m.MonotonicityScore = math.Max(
		float64(nonNeg)/float64(len(deltas)),
		float64(nonPos)/float64(len(deltas)),
	)

	flips := 0
	for i := 1; i < len(deltas); i++ {
		if (deltas[i] > 0 && deltas[i-1] < 0) || (deltas[i] < 0 && deltas[i-1] > 0) {
			flips++
		}
	}
	if len(deltas) > 1 {
		m.SignFlipRate = float64(flips) / float64(len(deltas)-1)
	}

	if m.MeanAbsDelta > 0 {
		outliers := 0
		for _, abs := range absDeltas {
			if abs > 4*m.MeanAbsDelta {
				outliers++
			}
		}
		m.OutlierScore = float64(outliers) / float64(len(absDeltas))
	}

	return m
}

// Classify maps a signature to its telemetry regime.
//
// CHAOTIC mirrors the health monitor's entropy gate thresholds so logs and
// routing agree on what "noise" means.
func Classify(m Metrics) Regime {
	if m.UniqueRatio > 0.85 && m.UniqueDeltaRatio > 0.85 {
		return RegimeChaotic
	}
	if m.MonotonicityScore > 0.9 && m.UniqueDeltaRatio < 0.3 {
		return RegimeOrdered
	}

	return RegimeMixed
}
