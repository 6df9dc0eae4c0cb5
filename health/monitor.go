// Package health implements the compression health monitor: a stateful
// router that classifies every candidate block as CORE or QUARANTINE and
// drives an anomaly-detection/recovery state machine.
//
// One Monitor instance watches one routed stream. It tracks an EMA baseline
// of achieved compression ratios, opens an anomaly segment when a block
// collapses below the baseline or bursts in entropy, and only returns to
// normal after a run of consecutive qualifying probes (wide hysteresis versus
// the narrow trigger, to prevent flapping).
package health

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/stats"
)

// State is the monitor's routing state.
type State uint8

const (
	StateNormal           State = iota // baseline training, blocks route CORE
	StateQuarantineActive              // anomaly open, blocks route QUARANTINE
)

// Route is the per-block classification.
type Route uint8

const (
	// RouteCore commits the speculative candidate and its context updates.
	RouteCore Route = iota
	// RouteQuarantine discards the candidate, rolls the context back, and
	// emits the safe stateless fallback codec.
	RouteQuarantine
)

// Decision is the monitor's verdict for one observed block.
type Decision struct {
	Route  Route
	Flags  uint8             // block header flag bits (format.FlagAnomaly*/FlagHealth*)
	Reason format.ReasonCode // set when this block opened a segment
}

// Config tunes a Monitor. Zero fields take the documented defaults.
type Config struct {
	// TriggerK scales the deviation band below the baseline that trips
	// RATIO_DROP. Default 3.0.
	TriggerK float64
	// RecoveryK scales the (much wider) band above which quarantined blocks
	// qualify for recovery. Default 10.0.
	RecoveryK float64
	// RecoveryBlocks is the number of consecutive qualifying probes required
	// to leave quarantine. Default 3.
	RecoveryBlocks int
	// Alpha is the EMA smoothing factor for all baselines. Default 0.1.
	Alpha float64
	// ProbeInterval is the cadence, in blocks since quarantine entry, at
	// which the encoder attempts a full speculative candidate while
	// quarantined. Default 1 (every block).
	ProbeInterval int
	// WorstCapacity bounds the worst-block leaderboard. Default 10.
	WorstCapacity int
	// Logger receives state transition events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

const (
	defaultTriggerK       = 3.0
	defaultRecoveryK      = 10.0
	defaultRecoveryBlocks = 3
	defaultAlpha          = 0.1
	defaultWorstCapacity  = 10

	// entropyGateThreshold forces quarantine regardless of achieved ratio.
	entropyGateThreshold = 0.85
	// baselineTrainingUniqueCap excludes near-incompressible blocks from
	// baseline training.
	baselineTrainingUniqueCap = 0.8
	// triggerClampFraction caps dev*K so the trigger threshold never goes
	// negative.
	triggerClampFraction = 0.9
	// recoveryDevFloor keeps the recovery band meaningful when deviation has
	// collapsed to near zero.
	recoveryDevFloor = 0.1
)

// Monitor routes blocks for a single stream and accumulates the anomaly
// report. Not safe for concurrent use.
type Monitor struct {
	cfg    Config
	logger zerolog.Logger

	state State

	baseline      float64 // EMA of achieved ratios on qualifying CORE blocks
	baselineDev   float64 // EMA of absolute deviation from the baseline
	baselineProxy float64 // EMA of unique_ratio, the entropy burst reference
	baselineInit  bool

	frozenBaseline   float64 // baseline captured at quarantine entry
	recoveryCounter  int
	blocksSinceEntry int

	segments []*segment
	active   *segment

	worst          []WorstBlock
	lastBlockIndex int
}

type segment struct {
	id            int
	start         int
	end           int
	closed        bool
	reason        format.ReasonCode
	minRatio      float64
	maxProxy      float64
	probeAttempts int
	probeSuccess  int
}

// NewMonitor creates a Monitor with cfg, filling unset fields with defaults.
func NewMonitor(cfg Config) *Monitor {
	if cfg.TriggerK == 0 {
		cfg.TriggerK = defaultTriggerK
	}
	if cfg.RecoveryK == 0 {
		cfg.RecoveryK = defaultRecoveryK
	}
	if cfg.RecoveryBlocks == 0 {
		cfg.RecoveryBlocks = defaultRecoveryBlocks
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = defaultAlpha
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 1
	}
	if cfg.WorstCapacity == 0 {
		cfg.WorstCapacity = defaultWorstCapacity
	}

	return &Monitor{
		cfg:    cfg,
		logger: cfg.Logger,
		worst:  make([]WorstBlock, 0, cfg.WorstCapacity),
	}
}

// State returns the current routing state.
func (m *Monitor) State() State {
	return m.state
}

// ShouldProbe reports whether the encoder should compute a full speculative
// candidate for the next block. Always true in NORMAL; in quarantine, true
// only on the configured probe cadence.
func (m *Monitor) ShouldProbe() bool {
	if m.state == StateNormal {
		return true
	}

	return m.blocksSinceEntry%m.cfg.ProbeInterval == 0
}

// Observe routes a block whose speculative candidate achieved ratio.
//
// ratio is raw bytes over candidate payload bytes (higher is better). The
// entropy gate is checked before any ratio comparison; it forces quarantine
// outright in NORMAL and disqualifies recovery while quarantined.
func (m *Monitor) Observe(blockIndex int, met stats.Metrics, ratio float64, codec format.CodecID) Decision {
	m.lastBlockIndex = blockIndex
	m.recordWorst(blockIndex, ratio, met.UniqueRatio, codec)

	if m.state == StateQuarantineActive {
		return m.observeQuarantined(blockIndex, met, ratio)
	}

	entropyGated := met.UniqueRatio > entropyGateThreshold && met.UniqueDeltaRatio > entropyGateThreshold

	if entropyGated {
		return m.enterQuarantine(blockIndex, met, ratio, format.ReasonEntropyBurst)
	}

	if m.baselineInit {
		clampedBand := math.Min(m.cfg.TriggerK*m.baselineDev, triggerClampFraction*m.baseline)
		if ratio < m.baseline-clampedBand {
			return m.enterQuarantine(blockIndex, met, ratio, format.ReasonRatioDrop)
		}

		burst := met.UniqueRatio > 1.5*m.baselineProxy &&
			met.UniqueRatio > 0.5 &&
			ratio < m.baseline
		if burst {
			return m.enterQuarantine(blockIndex, met, ratio, format.ReasonEntropyBurst)
		}
	}

	dec := Decision{Route: RouteCore}
	if m.baselineInit && ratio < m.baseline {
		dec.Flags |= format.FlagHealthWarn
	}

	m.train(met, ratio)

	return dec
}

// ObserveFallback records a quarantined block that skipped candidate encoding
// (off the probe cadence) and emitted the stateless fallback directly. The
// recovery counter is untouched; segment statistics still update.
func (m *Monitor) ObserveFallback(blockIndex int, met stats.Metrics, ratio float64, codec format.CodecID) Decision {
	m.lastBlockIndex = blockIndex
	m.recordWorst(blockIndex, ratio, met.UniqueRatio, codec)

	m.blocksSinceEntry++
	m.updateActiveSegment(met, ratio)

	return Decision{Route: RouteQuarantine, Flags: format.FlagAnomalyMid | format.FlagHealthQuar}
}

func (m *Monitor) observeQuarantined(blockIndex int, met stats.Metrics, ratio float64) Decision {
	m.blocksSinceEntry++
	m.updateActiveSegment(met, ratio)
	m.active.probeAttempts++

	entropyGated := met.UniqueRatio > entropyGateThreshold && met.UniqueDeltaRatio > entropyGateThreshold
	qualifies := !entropyGated &&
		ratio >= m.frozenBaseline-m.cfg.RecoveryK*math.Max(m.baselineDev, recoveryDevFloor)

	if !qualifies {
		// Strict consecutive-success requirement: one bad probe resets the run.
		m.recoveryCounter = 0

		return Decision{Route: RouteQuarantine, Flags: format.FlagAnomalyMid | format.FlagHealthQuar}
	}

	m.active.probeSuccess++

	if m.recoveryCounter+1 < m.cfg.RecoveryBlocks {
		m.recoveryCounter++

		return Decision{Route: RouteQuarantine, Flags: format.FlagAnomalyMid | format.FlagHealthQuar}
	}

	// Recovered: close the segment, unfreeze the baseline, route CORE.
	// The exit block itself is excluded from baseline training.
	m.closeSegment(blockIndex)
	m.state = StateNormal
	m.recoveryCounter = 0
	m.blocksSinceEntry = 0

	m.logger.Info().
		Int("block", blockIndex).
		Float64("ratio", ratio).
		Float64("frozen_baseline", m.frozenBaseline).
		Msg("quarantine recovered")

	return Decision{Route: RouteCore, Flags: format.FlagAnomalyEnd}
}

func (m *Monitor) enterQuarantine(blockIndex int, met stats.Metrics, ratio float64, reason format.ReasonCode) Decision {
	m.state = StateQuarantineActive
	m.frozenBaseline = m.baseline
	m.recoveryCounter = 0
	m.blocksSinceEntry = 0

	m.active = &segment{
		id:       len(m.segments),
		start:    blockIndex,
		reason:   reason,
		minRatio: ratio,
		maxProxy: met.UniqueRatio,
	}
	m.segments = append(m.segments, m.active)

	m.logger.Warn().
		Int("block", blockIndex).
		Str("reason", reason.String()).
		Float64("ratio", ratio).
		Float64("baseline", m.baseline).
		Str("regime", stats.Classify(met).String()).
		Msg("entering quarantine")

	return Decision{
		Route:  RouteQuarantine,
		Flags:  format.FlagAnomalyStart | format.FlagHealthQuar,
		Reason: reason,
	}
}

func (m *Monitor) closeSegment(blockIndex int) {
	if m.active == nil {
		return
	}
	m.active.end = blockIndex
	m.active.closed = true
	m.active = nil
}

func (m *Monitor) updateActiveSegment(met stats.Metrics, ratio float64) {
	if m.active == nil {
		return
	}
	if ratio < m.active.minRatio {
		m.active.minRatio = ratio
	}
	if met.UniqueRatio > m.active.maxProxy {
		m.active.maxProxy = met.UniqueRatio
	}
}

// train updates the EMA baselines from a qualifying CORE block. The very
// first qualifying block snaps the baseline directly to its ratio instead of
// blending, to avoid startup skew.
func (m *Monitor) train(met stats.Metrics, ratio float64) {
	if met.UniqueRatio > baselineTrainingUniqueCap {
		return
	}

	if !m.baselineInit {
		m.baseline = ratio
		m.baselineDev = 0
		m.baselineProxy = met.UniqueRatio
		m.baselineInit = true

		return
	}

	alpha := m.cfg.Alpha
	m.baselineDev = (1-alpha)*m.baselineDev + alpha*math.Abs(ratio-m.baseline)
	m.baseline = (1-alpha)*m.baseline + alpha*ratio
	m.baselineProxy = (1-alpha)*m.baselineProxy + alpha*met.UniqueRatio
}

func (m *Monitor) recordWorst(blockIndex int, ratio, entropy float64, codec format.CodecID) {
	entry := WorstBlock{
		BlockIndex: blockIndex,
		Ratio:      ratio,
		Entropy:    entropy,
		CodecID:    uint8(codec),
	}

	// Insert in ascending ratio order, then trim to capacity.
	pos := len(m.worst)
	for i, w := range m.worst {
		if ratio < w.Ratio {
			pos = i
			break
		}
	}

	if pos == len(m.worst) {
		if len(m.worst) < m.cfg.WorstCapacity {
			m.worst = append(m.worst, entry)
		}

		return
	}

	m.worst = append(m.worst, WorstBlock{})
	copy(m.worst[pos+1:], m.worst[pos:])
	m.worst[pos] = entry
	if len(m.worst) > m.cfg.WorstCapacity {
		m.worst = m.worst[:m.cfg.WorstCapacity]
	}
}
