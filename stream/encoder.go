package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Shiloren/gics/compress"
	"github.com/Shiloren/gics/encoding"
	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/health"
	"github.com/Shiloren/gics/internal/options"
	"github.com/Shiloren/gics/internal/pool"
	"github.com/Shiloren/gics/section"
	"github.com/Shiloren/gics/session"
	"github.com/Shiloren/gics/stats"
)

// LibraryVersion is the release identifier embedded in sidecar reports.
const LibraryVersion = "2.0.0"

// ChunkSize is the maximum number of elements covered by one block.
const ChunkSize = 1000

// maxAbsValue bounds every encoded magnitude so all delta and delta-of-delta
// arithmetic stays inside int64 without overflow.
const maxAbsValue = int64(1) << 62

// mergedWorstCapacity bounds the worst-block leaderboard in the merged
// session report.
const mergedWorstCapacity = 10

// Encoder turns ordered frames into a sealed GICS v2 session.
//
// Frames accumulate via AddSnapshot; Flush seals the buffered frames into a
// run of blocks terminated by an end-of-stream marker; Finalize flushes any
// remainder, applies the configured at-rest compression, and returns the
// complete session bytes together with the merged anomaly report. An Encoder
// is single-use: after Finalize every method returns ErrEncoderFinalized.
type Encoder struct {
	ctx    *session.Context
	logger zerolog.Logger

	runID         string
	sidecarPath   string
	probeInterval int
	compression   format.CompressionType

	timeMon  *health.Monitor
	valueMon *health.Monitor

	body       *pool.ByteBuffer
	pending    []Snapshot
	blockIndex int
	framed     bool
	finalized  bool
}

// NewEncoder creates an Encoder. See the With* options for configuration;
// the zero configuration uses a private dictionary-disabled context, no
// at-rest compression, and a disabled logger.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{
		probeInterval: 1,
		compression:   format.CompressionNone,
	}

	if err := options.Apply(e, opts...); err != nil {
		return nil, fmt.Errorf("apply encoder option: %w", err)
	}

	if e.ctx == nil {
		e.ctx = session.NewDisabledContext()
	}

	e.timeMon = health.NewMonitor(health.Config{
		ProbeInterval: e.probeInterval,
		Logger:        e.logger.With().Str("stream", format.StreamTime.String()).Logger(),
	})
	e.valueMon = health.NewMonitor(health.Config{
		ProbeInterval: e.probeInterval,
		Logger:        e.logger.With().Str("stream", format.StreamValue.String()).Logger(),
	})

	e.body = pool.GetSessionBuffer()

	return e, nil
}

// AddSnapshot buffers one frame for the next Flush.
//
// Items are copied and ordered by ascending ID; the caller's slice is not
// modified. Returns ErrValueOutOfRange if any magnitude exceeds 2^62 and
// ErrEncoderFinalized after Finalize.
func (e *Encoder) AddSnapshot(s Snapshot) error {
	if e.finalized {
		return errs.ErrEncoderFinalized
	}

	if err := checkMagnitude(s.Timestamp); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, item := range s.Items {
		if err := checkMagnitude(item.ID); err != nil {
			return fmt.Errorf("item id: %w", err)
		}
		if err := checkMagnitude(item.Price); err != nil {
			return fmt.Errorf("item price: %w", err)
		}
		if err := checkMagnitude(item.Quantity); err != nil {
			return fmt.Errorf("item quantity: %w", err)
		}
	}

	e.pending = append(e.pending, Snapshot{
		Timestamp: s.Timestamp,
		Items:     sortedItems(s.Items),
	})
	e.framed = true

	return nil
}

func checkMagnitude(v int64) error {
	if v > maxAbsValue || v < -maxAbsValue {
		return fmt.Errorf("%w: %d", errs.ErrValueOutOfRange, v)
	}

	return nil
}

// Flush seals all buffered frames into blocks followed by one end-of-stream
// marker. A flush with no buffered frames is a no-op. Coding context carries
// across flushes within the session.
func (e *Encoder) Flush() error {
	if e.finalized {
		return errs.ErrEncoderFinalized
	}
	if len(e.pending) == 0 {
		return nil
	}

	times := make([]int64, 0, len(e.pending))
	lens := make([]int64, 0, len(e.pending))

	total := 0
	for _, s := range e.pending {
		total += len(s.Items)
	}
	ids := make([]int64, 0, total)
	prices := make([]int64, 0, total)
	quantities := make([]int64, 0, total)

	for _, s := range e.pending {
		times = append(times, s.Timestamp)
		lens = append(lens, int64(len(s.Items)))
		for _, item := range s.Items {
			ids = append(ids, item.ID)
			prices = append(prices, item.Price)
			quantities = append(quantities, item.Quantity)
		}
	}

	e.emitStream(format.StreamTime, times, e.timeMon)
	e.emitStream(format.StreamValue, prices, e.valueMon)
	e.emitStream(format.StreamItemID, ids, nil)
	e.emitStream(format.StreamQuantity, quantities, nil)
	e.emitStream(format.StreamSnapshotLen, lens, nil)

	_ = e.body.WriteByte(section.EOSMarker)

	e.logger.Debug().
		Int("frames", len(e.pending)).
		Int("items", total).
		Int("body_bytes", e.body.Len()).
		Msg("flushed frames")

	e.pending = e.pending[:0]

	return nil
}

// Finalize flushes pending frames, seals the session, and returns the
// complete wire bytes plus the merged anomaly report.
//
// Returns ErrNoFramesAdded for a session that never saw a frame and
// ErrEncoderFinalized on a second call. When a sidecar path is configured the
// report is also persisted there.
func (e *Encoder) Finalize() ([]byte, *health.Report, error) {
	if e.finalized {
		return nil, nil, errs.ErrEncoderFinalized
	}
	if !e.framed {
		return nil, nil, errs.ErrNoFramesAdded
	}

	if err := e.Flush(); err != nil {
		return nil, nil, err
	}
	e.finalized = true

	report := health.MergeReports(e.runID, LibraryVersion, mergedWorstCapacity,
		e.timeMon.Report(e.runID, LibraryVersion),
		e.valueMon.Report(e.runID, LibraryVersion),
	)

	out, err := e.seal()
	pool.PutSessionBuffer(e.body)
	e.body = nil
	if err != nil {
		return nil, nil, err
	}

	if e.sidecarPath != "" {
		if err := report.WriteSidecar(e.sidecarPath); err != nil {
			return nil, nil, err
		}
	}

	e.logger.Debug().
		Int("blocks", e.blockIndex).
		Int("session_bytes", len(out)).
		Int("anomaly_segments", len(report.Segments)).
		Msg("session finalized")

	return out, report, nil
}

// seal assembles the final session: the uncompressed header, then the body,
// wrapped in the compression envelope when compression is enabled. The
// envelope prefixes the compressed body with the raw body length as a uvarint
// so the decoder can verify the expansion.
func (e *Encoder) seal() ([]byte, error) {
	header := section.NewStreamHeader(e.compression).Bytes()
	body := e.body.Bytes()

	if e.compression == format.CompressionNone {
		out := make([]byte, 0, len(header)+len(body))
		out = append(out, header...)

		return append(out, body...), nil
	}

	codec, err := compress.GetCodec(e.compression)
	if err != nil {
		return nil, err
	}

	compressed, err := codec.Compress(body)
	if err != nil {
		return nil, fmt.Errorf("compress session body: %w", err)
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(body)))

	out := make([]byte, 0, len(header)+n+len(compressed))
	out = append(out, header...)
	out = append(out, lenBuf[:n]...)

	return append(out, compressed...), nil
}

// emitStream chunks one flattened stream and emits a block per chunk. Routed
// streams (those with a monitor) go through the speculative selector; the
// rest use the stateless meta path.
func (e *Encoder) emitStream(id format.StreamID, values []int64, mon *health.Monitor) {
	for start := 0; start < len(values); start += ChunkSize {
		end := min(start+ChunkSize, len(values))
		chunk := values[start:end]

		if mon != nil {
			e.emitRoutedChunk(id, chunk, mon)
		} else {
			e.emitMetaChunk(id, chunk)
		}
	}
}

// emitRoutedChunk encodes one chunk of a routed stream.
//
// The transform is speculative: the context is snapshotted, advanced while
// computing the delta and delta-of-delta sequences, and rolled back whenever
// the monitor routes the block to quarantine. Quarantined blocks always carry
// the stateless raw codec so they decode without any context coupling.
func (e *Encoder) emitRoutedChunk(id format.StreamID, chunk []int64, mon *health.Monitor) {
	met := stats.Compute(chunk)

	payload := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(payload)

	var (
		codecID  format.CodecID
		decision health.Decision
	)

	if mon.ShouldProbe() {
		snap := e.ctx.SnapshotState()

		deltas := make([]int64, len(chunk))
		dods := make([]int64, len(chunk))
		for i, v := range chunk {
			deltas[i], dods[i] = e.observe(id, v)
		}

		codecID = selectRoutedCodec(id, chunk, deltas, dods, met, e.ctx, payload)
		decision = mon.Observe(e.blockIndex, met, blockRatio(len(chunk), payload.Len()), codecID)

		if decision.Route == health.RouteQuarantine {
			e.ctx.Restore(snap)
			payload.Reset()
			encoding.EncodeZigZagSlice(payload, chunk)
			codecID = format.CodecNone
		}
	} else {
		// Off the probe cadence: skip the candidate entirely, leave the
		// context untouched, and emit the safe fallback.
		codecID = format.CodecNone
		encoding.EncodeZigZagSlice(payload, chunk)
		decision = mon.ObserveFallback(e.blockIndex, met, blockRatio(len(chunk), payload.Len()), codecID)
	}

	e.writeBlock(id, codecID, len(chunk), payload.Bytes(), decision.Flags)
}

func (e *Encoder) emitMetaChunk(id format.StreamID, chunk []int64) {
	payload := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(payload)

	codecID := encodeMetaChunk(payload, chunk)
	e.writeBlock(id, codecID, len(chunk), payload.Bytes(), 0)
}

func (e *Encoder) observe(id format.StreamID, v int64) (delta, dod int64) {
	if id == format.StreamTime {
		return e.ctx.ObserveTimestamp(v)
	}

	return e.ctx.ObserveValue(v)
}

func (e *Encoder) writeBlock(id format.StreamID, codecID format.CodecID, count int, payload []byte, flags uint8) {
	h := section.BlockHeader{
		StreamID:   id,
		CodecID:    codecID,
		Count:      uint32(count),
		PayloadLen: uint32(len(payload)),
		Flags:      flags,
	}

	e.body.B = h.AppendTo(e.body.B)
	e.body.MustWrite(payload)
	e.blockIndex++
}

// blockRatio is the achieved compression ratio of one block: raw bytes (8 per
// element) over payload bytes. Higher is better.
func blockRatio(count, payloadLen int) float64 {
	return float64(8*count) / float64(payloadLen)
}
