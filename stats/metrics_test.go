package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLinearTrend(t *testing.T) {
	m := Compute([]int64{10, 20, 30, 40, 50})

	require.InDelta(t, 1.0, m.UniqueRatio, 1e-12)
	require.InDelta(t, 0.25, m.UniqueDeltaRatio, 1e-12)
	require.InDelta(t, 0.0, m.ZeroRatio, 1e-12)
	require.InDelta(t, 10.0, m.MeanAbsDelta, 1e-12)
	require.InDelta(t, 10.0, m.P90AbsDelta, 1e-12)
	require.InDelta(t, 0.0, m.SignFlipRate, 1e-12)
	require.InDelta(t, 1.0, m.MonotonicityScore, 1e-12)
	require.InDelta(t, 0.0, m.OutlierScore, 1e-12)
}

func TestComputeConstantChunk(t *testing.T) {
	m := Compute([]int64{7, 7, 7, 7})

	require.InDelta(t, 0.25, m.UniqueRatio, 1e-12)
	require.InDelta(t, 1.0/3.0, m.UniqueDeltaRatio, 1e-12)
	require.InDelta(t, 0.0, m.MeanAbsDelta, 1e-12)
	require.InDelta(t, 1.0, m.MonotonicityScore, 1e-12)
	require.InDelta(t, 0.0, m.OutlierScore, 1e-12)
}

func TestComputeSingleElement(t *testing.T) {
	m := Compute([]int64{5})

	require.InDelta(t, 1.0, m.UniqueRatio, 1e-12)
	require.InDelta(t, 0.0, m.UniqueDeltaRatio, 1e-12)
	require.InDelta(t, 0.0, m.MeanAbsDelta, 1e-12)
	require.InDelta(t, 1.0, m.MonotonicityScore, 1e-12)
}

func TestComputeAlternatingChunk(t *testing.T) {
	m := Compute([]int64{0, 1, 0, 1, 0})

	require.InDelta(t, 0.4, m.UniqueRatio, 1e-12)
	require.InDelta(t, 0.5, m.UniqueDeltaRatio, 1e-12)
	require.InDelta(t, 0.6, m.ZeroRatio, 1e-12)
	require.InDelta(t, 1.0, m.SignFlipRate, 1e-12)
	require.InDelta(t, 0.5, m.MonotonicityScore, 1e-12)
}

func TestComputeOutlierScore(t *testing.T) {
	// Nine unit deltas and one spike of 1000: mean ~100.9, only the spike
	// exceeds four times the mean.
	chunk := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 1009}
	m := Compute(chunk)

	require.InDelta(t, 0.1, m.OutlierScore, 1e-12)
}

func TestComputeDeterministic(t *testing.T) {
	chunk := []int64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3}

	require.Equal(t, Compute(chunk), Compute(chunk))
}

func TestClassify(t *testing.T) {
	require.Equal(t, RegimeOrdered, Classify(Compute([]int64{10, 20, 30, 40, 50})))
	require.Equal(t, RegimeMixed, Classify(Compute([]int64{0, 1, 0, 1, 0})))
	require.Equal(t, RegimeChaotic, Classify(Compute([]int64{3, 1, 4, 15, 9, 2, 68, 8, 90, 35})))
}

func TestRegimeString(t *testing.T) {
	require.Equal(t, "ORDERED", RegimeOrdered.String())
	require.Equal(t, "MIXED", RegimeMixed.String())
	require.Equal(t, "CHAOTIC", RegimeChaotic.String())
}
