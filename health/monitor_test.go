package health

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/stats"
)

// compressible is a metrics signature that trains the baseline.
var compressible = stats.Metrics{UniqueRatio: 0.3, UniqueDeltaRatio: 0.3}

// noisy trips the entropy gate regardless of achieved ratio.
var noisy = stats.Metrics{UniqueRatio: 0.95, UniqueDeltaRatio: 0.95}

func trainedMonitor(t *testing.T, blocks int, ratio float64) *Monitor {
	t.Helper()

	m := NewMonitor(Config{})
	for i := 0; i < blocks; i++ {
		dec := m.Observe(i, compressible, ratio, format.CodecBitpackDelta)
		require.Equal(t, RouteCore, dec.Route)
	}
	require.Equal(t, StateNormal, m.State())

	return m
}

func TestEntropyGateForcesQuarantine(t *testing.T) {
	m := NewMonitor(Config{})

	dec := m.Observe(0, noisy, 50.0, format.CodecBitpackDelta)

	require.Equal(t, RouteQuarantine, dec.Route)
	require.Equal(t, format.ReasonEntropyBurst, dec.Reason)
	require.Equal(t, format.FlagAnomalyStart|format.FlagHealthQuar, dec.Flags)
	require.Equal(t, StateQuarantineActive, m.State())
}

func TestFirstQualifyingBlockSnapsBaseline(t *testing.T) {
	m := NewMonitor(Config{})

	dec := m.Observe(0, compressible, 10.0, format.CodecBitpackDelta)
	require.Equal(t, RouteCore, dec.Route)
	require.Zero(t, dec.Flags)

	// With zero trained deviation the trigger band is zero, so any dip below
	// the snapped baseline quarantines immediately.
	dec = m.Observe(1, compressible, 9.9, format.CodecBitpackDelta)
	require.Equal(t, RouteQuarantine, dec.Route)
	require.Equal(t, format.ReasonRatioDrop, dec.Reason)
}

func TestHealthWarnBelowBaselineInsideBand(t *testing.T) {
	m := NewMonitor(Config{})

	// Train an upward-drifting baseline so deviation is non-zero: baseline
	// ~10.28, deviation ~0.26, trigger band ~0.78.
	m.Observe(0, compressible, 10.0, format.CodecBitpackDelta)
	m.Observe(1, compressible, 12.0, format.CodecBitpackDelta)
	m.Observe(2, compressible, 11.0, format.CodecBitpackDelta)

	// Below the baseline but inside the band: CORE with a warning flag.
	dec := m.Observe(3, compressible, 10.0, format.CodecBitpackDelta)
	require.Equal(t, RouteCore, dec.Route)
	require.Equal(t, format.FlagHealthWarn, dec.Flags)
}

func TestHighEntropyBlocksDoNotTrainBaseline(t *testing.T) {
	m := NewMonitor(Config{})

	// Unique ratio above the training cap but under the entropy gate.
	m.Observe(0, stats.Metrics{UniqueRatio: 0.82, UniqueDeltaRatio: 0.3}, 2.0, format.CodecNone)
	require.Equal(t, StateNormal, m.State())

	// Baseline still uninitialized: a good block snaps to its own ratio and a
	// ratio far below the untrained 2.0 would otherwise have triggered.
	dec := m.Observe(1, compressible, 50.0, format.CodecBitpackDelta)
	require.Equal(t, RouteCore, dec.Route)
	require.Zero(t, dec.Flags&format.FlagHealthQuar)
}

func TestRatioDropTriggersQuarantine(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)

	dec := m.Observe(5, compressible, 0.5, format.CodecBitpackDelta)

	require.Equal(t, RouteQuarantine, dec.Route)
	require.Equal(t, format.ReasonRatioDrop, dec.Reason)
	require.Equal(t, format.FlagAnomalyStart|format.FlagHealthQuar, dec.Flags)
}

func TestRecoveryNeedsConsecutiveQualifyingProbes(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)
	m.Observe(5, compressible, 0.5, format.CodecBitpackDelta)

	// Frozen baseline 10, deviation floor 0.1: probes qualify at >= 9.0.
	dec := m.Observe(6, compressible, 9.5, format.CodecBitpackDelta)
	require.Equal(t, RouteQuarantine, dec.Route)
	require.Equal(t, format.FlagAnomalyMid|format.FlagHealthQuar, dec.Flags)

	dec = m.Observe(7, compressible, 9.5, format.CodecBitpackDelta)
	require.Equal(t, RouteQuarantine, dec.Route)

	dec = m.Observe(8, compressible, 9.5, format.CodecBitpackDelta)
	require.Equal(t, RouteCore, dec.Route)
	require.Equal(t, format.FlagAnomalyEnd, dec.Flags)
	require.Equal(t, StateNormal, m.State())
}

func TestFailedProbeResetsRecoveryRun(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)
	m.Observe(5, compressible, 0.5, format.CodecBitpackDelta)

	m.Observe(6, compressible, 9.5, format.CodecBitpackDelta)
	m.Observe(7, compressible, 9.5, format.CodecBitpackDelta)

	// One bad probe wipes the run.
	dec := m.Observe(8, compressible, 2.0, format.CodecNone)
	require.Equal(t, RouteQuarantine, dec.Route)

	m.Observe(9, compressible, 9.5, format.CodecBitpackDelta)
	m.Observe(10, compressible, 9.5, format.CodecBitpackDelta)
	dec = m.Observe(11, compressible, 9.5, format.CodecBitpackDelta)

	require.Equal(t, RouteCore, dec.Route)
	require.Equal(t, format.FlagAnomalyEnd, dec.Flags)
}

func TestEntropyGatedProbeNeverQualifies(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)
	m.Observe(5, noisy, 0.5, format.CodecNone)

	// Huge ratio but still noise: disqualified by the gate.
	dec := m.Observe(6, noisy, 50.0, format.CodecBitpackDelta)
	require.Equal(t, RouteQuarantine, dec.Route)
}

func TestObserveFallbackPreservesRecoveryRun(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)
	m.Observe(5, compressible, 0.5, format.CodecBitpackDelta)

	m.Observe(6, compressible, 9.5, format.CodecBitpackDelta)
	m.Observe(7, compressible, 9.5, format.CodecBitpackDelta)

	// An off-cadence fallback block neither qualifies nor resets.
	dec := m.ObserveFallback(8, compressible, 3.0, format.CodecNone)
	require.Equal(t, RouteQuarantine, dec.Route)
	require.Equal(t, format.FlagAnomalyMid|format.FlagHealthQuar, dec.Flags)

	dec = m.Observe(9, compressible, 9.5, format.CodecBitpackDelta)
	require.Equal(t, RouteCore, dec.Route)
	require.Equal(t, format.FlagAnomalyEnd, dec.Flags)
}

func TestShouldProbeCadence(t *testing.T) {
	m := NewMonitor(Config{ProbeInterval: 4})

	require.True(t, m.ShouldProbe(), "NORMAL always probes")

	m.Observe(0, noisy, 1.0, format.CodecNone)
	require.True(t, m.ShouldProbe(), "entry block resets the cadence")

	m.Observe(1, noisy, 1.0, format.CodecNone)
	for i := 2; i <= 4; i++ {
		require.False(t, m.ShouldProbe(), "block %d is off cadence", i)
		m.ObserveFallback(i, noisy, 1.0, format.CodecNone)
	}

	require.True(t, m.ShouldProbe())
}

func TestWorstBlockLeaderboard(t *testing.T) {
	m := NewMonitor(Config{WorstCapacity: 3})

	m.Observe(0, compressible, 10.0, format.CodecBitpackDelta)
	m.Observe(1, compressible, 2.0, format.CodecNone)
	m.Observe(2, compressible, 5.0, format.CodecNone)
	m.Observe(3, compressible, 7.0, format.CodecNone)
	m.Observe(4, compressible, 1.0, format.CodecNone)

	r := m.Report("run", "v")
	require.Len(t, r.WorstBlocks, 3)

	require.Equal(t, []float64{1.0, 2.0, 5.0}, []float64{
		r.WorstBlocks[0].Ratio, r.WorstBlocks[1].Ratio, r.WorstBlocks[2].Ratio,
	})
	require.Equal(t, 4, r.WorstBlocks[0].BlockIndex)
	require.Equal(t, 1, r.WorstBlocks[1].BlockIndex)
	require.Equal(t, 2, r.WorstBlocks[2].BlockIndex)
}

func TestReportSegments(t *testing.T) {
	m := trainedMonitor(t, 5, 10.0)
	m.Observe(5, compressible, 0.5, format.CodecBitpackDelta)
	m.Observe(6, compressible, 9.5, format.CodecBitpackDelta)
	m.Observe(7, compressible, 9.5, format.CodecBitpackDelta)
	m.Observe(8, compressible, 9.5, format.CodecBitpackDelta)

	r := m.Report("run-42", "2.0.0")

	require.Equal(t, ReportSchemaVersion, r.SchemaVersion)
	require.Equal(t, "run-42", r.RunID)
	require.Equal(t, "2.0.0", r.GicsVersion)
	require.Len(t, r.Segments, 1)

	seg := r.Segments[0]
	require.Equal(t, 0, seg.SegmentID)
	require.Equal(t, 5, seg.StartBlockIndex)
	require.NotNil(t, seg.EndBlockIndex)
	require.Equal(t, 8, *seg.EndBlockIndex)
	require.Equal(t, "RATIO_DROP", seg.ReasonCode)
	require.Equal(t, "review_source_volatility", seg.SuggestedAction)
	require.InDelta(t, 0.5, seg.MinRatio, 1e-12)
	require.Equal(t, 3, seg.ProbeAttempts)
	require.Equal(t, 3, seg.ProbeSuccesses)
}

func TestReportForceClosesOpenSegment(t *testing.T) {
	m := trainedMonitor(t, 3, 10.0)
	m.Observe(3, noisy, 0.5, format.CodecNone)
	m.Observe(4, noisy, 0.5, format.CodecNone)

	r := m.Report("run", "v")

	require.Len(t, r.Segments, 1)
	require.NotNil(t, r.Segments[0].EndBlockIndex)
	require.Equal(t, 4, *r.Segments[0].EndBlockIndex)
	require.Equal(t, "ENTROPY_BURST", r.Segments[0].ReasonCode)
	require.Equal(t, "treat_as_incompressible", r.Segments[0].SuggestedAction)
}

func TestMergeReports(t *testing.T) {
	a := &Report{
		Segments: []SegmentReport{
			{SegmentID: 0, StartBlockIndex: 20, ReasonCode: "RATIO_DROP"},
		},
		WorstBlocks: []WorstBlock{{BlockIndex: 20, Ratio: 3.0}},
	}
	b := &Report{
		Segments: []SegmentReport{
			{SegmentID: 0, StartBlockIndex: 5, ReasonCode: "ENTROPY_BURST"},
		},
		WorstBlocks: []WorstBlock{{BlockIndex: 5, Ratio: 1.0}, {BlockIndex: 6, Ratio: 9.0}},
	}

	merged := MergeReports("run", "2.0.0", 2, a, b, nil)

	require.Equal(t, "run", merged.RunID)
	require.Len(t, merged.Segments, 2)
	require.Equal(t, 0, merged.Segments[0].SegmentID)
	require.Equal(t, 5, merged.Segments[0].StartBlockIndex)
	require.Equal(t, 1, merged.Segments[1].SegmentID)
	require.Equal(t, 20, merged.Segments[1].StartBlockIndex)

	require.Len(t, merged.WorstBlocks, 2)
	require.InDelta(t, 1.0, merged.WorstBlocks[0].Ratio, 1e-12)
	require.InDelta(t, 3.0, merged.WorstBlocks[1].Ratio, 1e-12)
}
