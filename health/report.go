package health

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Shiloren/gics/format"
)

// ReportSchemaVersion is the sidecar JSON schema version.
const ReportSchemaVersion = 1

// Report is the sidecar anomaly report persisted next to a sealed session.
type Report struct {
	SchemaVersion int             `json:"schema_version"`
	RunID         string          `json:"run_id"`
	GicsVersion   string          `json:"gics_version"`
	Segments      []SegmentReport `json:"segments"`
	WorstBlocks   []WorstBlock    `json:"worst_blocks"`
}

// SegmentReport describes one anomaly segment's lifecycle.
type SegmentReport struct {
	SegmentID           int     `json:"segment_id"`
	StartBlockIndex     int     `json:"start_block_index"`
	EndBlockIndex       *int    `json:"end_block_index,omitempty"`
	ReasonCode          string  `json:"reason_code"`
	MinRatio            float64 `json:"min_ratio"`
	MaxUniqueRatioProxy float64 `json:"max_unique_ratio_proxy"`
	SuggestedAction     string  `json:"suggested_action"`
	ProbeAttempts       int     `json:"probe_attempts"`
	ProbeSuccesses      int     `json:"probe_successes"`
}

// WorstBlock is one leaderboard entry: the blocks with the lowest achieved
// ratios seen this session, ascending.
type WorstBlock struct {
	BlockIndex int     `json:"block_index"`
	Ratio      float64 `json:"ratio"`
	Entropy    float64 `json:"entropy"`
	CodecID    uint8   `json:"codec_id"`
}

func suggestedAction(reason format.ReasonCode) string {
	switch reason {
	case format.ReasonRatioDrop:
		return "review_source_volatility"
	case format.ReasonEntropyBurst:
		return "treat_as_incompressible"
	default:
		return "inspect_block_range"
	}
}

// Report snapshots the monitor's accumulated anomaly history.
//
// A still-open segment is force-closed at the last seen block index; stream
// end is the only caller in practice, via the encoder's finalize.
func (m *Monitor) Report(runID, version string) *Report {
	m.closeSegment(m.lastBlockIndex)

	r := &Report{
		SchemaVersion: ReportSchemaVersion,
		RunID:         runID,
		GicsVersion:   version,
		Segments:      make([]SegmentReport, 0, len(m.segments)),
		WorstBlocks:   append([]WorstBlock(nil), m.worst...),
	}

	for _, s := range m.segments {
		sr := SegmentReport{
			SegmentID:           s.id,
			StartBlockIndex:     s.start,
			ReasonCode:          s.reason.String(),
			MinRatio:            s.minRatio,
			MaxUniqueRatioProxy: s.maxProxy,
			SuggestedAction:     suggestedAction(s.reason),
			ProbeAttempts:       s.probeAttempts,
			ProbeSuccesses:      s.probeSuccess,
		}
		if s.closed {
			end := s.end
			sr.EndBlockIndex = &end
		}
		r.Segments = append(r.Segments, sr)
	}

	return r
}

// MergeReports combines per-stream reports into a single session report.
//
// Segments are ordered by start block index and renumbered; the worst-block
// leaderboard is re-bounded to the lowest capacity entries across inputs.
func MergeReports(runID, version string, capacity int, reports ...*Report) *Report {
	merged := &Report{
		SchemaVersion: ReportSchemaVersion,
		RunID:         runID,
		GicsVersion:   version,
		Segments:      make([]SegmentReport, 0),
		WorstBlocks:   make([]WorstBlock, 0),
	}

	for _, r := range reports {
		if r == nil {
			continue
		}
		merged.Segments = append(merged.Segments, r.Segments...)
		merged.WorstBlocks = append(merged.WorstBlocks, r.WorstBlocks...)
	}

	sort.Slice(merged.Segments, func(i, j int) bool {
		return merged.Segments[i].StartBlockIndex < merged.Segments[j].StartBlockIndex
	})
	for i := range merged.Segments {
		merged.Segments[i].SegmentID = i
	}

	sort.Slice(merged.WorstBlocks, func(i, j int) bool {
		return merged.WorstBlocks[i].Ratio < merged.WorstBlocks[j].Ratio
	})
	if capacity > 0 && len(merged.WorstBlocks) > capacity {
		merged.WorstBlocks = merged.WorstBlocks[:capacity]
	}

	return merged
}

// WriteSidecar persists the report as indented JSON at path.
func (r *Report) WriteSidecar(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar report: %w", err)
	}

	return nil
}
