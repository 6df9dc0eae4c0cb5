package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/Shiloren/gics/compress"
	"github.com/Shiloren/gics/encoding"
	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/internal/options"
	"github.com/Shiloren/gics/section"
	"github.com/Shiloren/gics/session"
)

// Decoder reconstructs frames from a sealed GICS v2 session.
//
// Decoding is strict: any structural error (bad header, truncated payload,
// missing end-of-stream marker, inconsistent stream lengths) aborts with no
// partial result.
type Decoder struct {
	ctx *session.Context
}

// NewDecoder creates a Decoder. Without WithDecoderContext it uses a private
// dictionary-disabled context, which decodes every session that was encoded
// without dictionary coding.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{}

	if err := options.Apply(d, opts...); err != nil {
		return nil, fmt.Errorf("apply decoder option: %w", err)
	}

	if d.ctx == nil {
		d.ctx = session.NewDisabledContext()
	}

	return d, nil
}

// Decode reconstructs the full frame sequence from a sealed session.
func (d *Decoder) Decode(data []byte) ([]Snapshot, error) {
	header, err := section.ParseStreamHeader(data)
	if err != nil {
		return nil, err
	}

	body, err := unseal(header, data[section.StreamHeaderSize:])
	if err != nil {
		return nil, err
	}

	streams, err := d.decodeBlocks(body)
	if err != nil {
		return nil, err
	}

	return assembleSnapshots(streams)
}

// unseal removes the at-rest compression envelope: a uvarint raw body length
// followed by the compressed body. Uncompressed sessions pass through.
func unseal(header section.StreamHeader, body []byte) ([]byte, error) {
	if header.Compression() == format.CompressionNone {
		return body, nil
	}

	rawLen, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("%w: compression envelope length", errs.ErrTruncatedPayload)
	}

	codec, err := compress.GetCodec(header.Compression())
	if err != nil {
		return nil, err
	}

	decompressed, err := codec.Decompress(body[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrTruncatedPayload, err)
	}
	if uint64(len(decompressed)) != rawLen {
		return nil, fmt.Errorf("%w: envelope declares %d raw bytes, got %d", errs.ErrTruncatedPayload, rawLen, len(decompressed))
	}

	return decompressed, nil
}

// decodeBlocks walks the block run and accumulates decoded values per stream.
//
// Every flush ends with an end-of-stream marker, so a well-formed body may
// interleave markers with further block runs; the body as a whole must end on
// a marker or the session was truncated mid-flush.
func (d *Decoder) decodeBlocks(body []byte) (map[format.StreamID][]int64, error) {
	streams := make(map[format.StreamID][]int64)

	sawEOS := false
	offset := 0

	for offset < len(body) {
		if body[offset] == section.EOSMarker {
			sawEOS = true
			offset++
			continue
		}

		if len(body)-offset < section.BlockHeaderSize {
			break
		}

		h, err := section.ParseBlockHeader(body[offset:])
		if err != nil {
			return nil, err
		}
		offset += section.BlockHeaderSize

		end := offset + int(h.PayloadLen)
		if end > len(body) {
			return nil, fmt.Errorf("%w: block payload of %d bytes at offset %d", errs.ErrPayloadOutOfBounds, h.PayloadLen, offset)
		}

		values, err := d.decodeBlock(h, body[offset:end])
		if err != nil {
			return nil, err
		}
		if len(values) != int(h.Count) {
			return nil, fmt.Errorf("%w: block declares %d values, decoded %d", errs.ErrStreamLengthMismatch, h.Count, len(values))
		}

		streams[h.StreamID] = append(streams[h.StreamID], values...)
		offset = end
		sawEOS = false
	}

	if !sawEOS {
		return nil, errs.ErrMissingEOSMarker
	}

	return streams, nil
}

func (d *Decoder) decodeBlock(h section.BlockHeader, payload []byte) ([]int64, error) {
	switch h.StreamID {
	case format.StreamTime, format.StreamValue:
		return d.decodeRoutedBlock(h, payload)
	default:
		return decodeMetaBlock(h, payload)
	}
}

// decodeRoutedBlock decodes one TIME or VALUE block against the coding
// context. Non-commitable blocks (quarantined by the encoder) decode against
// a snapshot and leave the context bit-identical afterwards.
func (d *Decoder) decodeRoutedBlock(h section.BlockHeader, payload []byte) ([]int64, error) {
	commit := h.Commitable()

	var snap session.Snapshot
	if !commit {
		snap = d.ctx.SnapshotState()
	}

	values, err := d.decodeRoutedSequence(h, payload)

	if !commit {
		d.ctx.Restore(snap)
	}

	return values, err
}

func (d *Decoder) decodeRoutedSequence(h section.BlockHeader, payload []byte) ([]int64, error) {
	count := int(h.Count)

	// rawKind decodes absolute values, deltaKind first-order deltas, dodKind
	// second-order deltas; raw sequences still advance the delta chains so
	// subsequent blocks resume from the right reference.
	const (
		rawKind = iota
		deltaKind
		dodKind
	)

	var (
		seq  []int64
		kind int
		err  error
	)

	switch h.CodecID {
	case format.CodecNone:
		seq, err = encoding.DecodeZigZagSlice(payload, count)
		kind = rawKind
	case format.CodecRLEZigZag:
		seq, err = encoding.DecodeRLE(payload, count)
		kind = rawKind
	case format.CodecDictVarint:
		if h.StreamID != format.StreamValue {
			return nil, fmt.Errorf("%w: dictionary codec on stream %s", errs.ErrInvalidCodec, h.StreamID)
		}
		seq, err = d.decodeDict(payload, count)
		kind = rawKind
	case format.CodecVarintDelta:
		seq, err = encoding.DecodeZigZagSlice(payload, count)
		kind = deltaKind
	case format.CodecDoDVarint:
		seq, err = encoding.DecodeZigZagSlice(payload, count)
		kind = dodKind
	case format.CodecRLEDoD:
		seq, err = encoding.DecodeRLE(payload, count)
		kind = dodKind
	case format.CodecBitpackDelta:
		seq, err = encoding.DecodeBitpack(payload, count)
		if h.StreamID == format.StreamTime {
			kind = dodKind
		} else {
			kind = deltaKind
		}
	default:
		return nil, fmt.Errorf("%w: codec %s on stream %s", errs.ErrInvalidCodec, h.CodecID, h.StreamID)
	}
	if err != nil {
		return nil, err
	}

	values := make([]int64, len(seq))
	for i, s := range seq {
		var v int64

		switch kind {
		case rawKind:
			v = s
		case deltaKind:
			v = d.last(h.StreamID) + s
		case dodKind:
			v = d.last(h.StreamID) + d.lastDelta(h.StreamID) + s
		}

		d.observe(h.StreamID, v)
		values[i] = v
	}

	return values, nil
}

// decodeDict replays dictionary coding: tag 0 is a miss followed by the raw
// zigzag varint value (inserted into the dictionary, mirroring the encoder),
// tag >= 1 references dictionary code tag-1.
func (d *Decoder) decodeDict(payload []byte, count int) ([]int64, error) {
	// Every element costs at least its one-byte tag; bound the declared
	// count by the payload before allocating.
	if count > len(payload) {
		return nil, fmt.Errorf("%w: %d values cannot fit in %d bytes", errs.ErrTruncatedPayload, count, len(payload))
	}

	values := make([]int64, 0, count)
	offset := 0

	for len(values) < count {
		tag, n := binary.Uvarint(payload[offset:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: dictionary tag %d of %d", errs.ErrTruncatedPayload, len(values)+1, count)
		}
		offset += n

		if tag == 0 {
			u, m := binary.Uvarint(payload[offset:])
			if m <= 0 {
				return nil, fmt.Errorf("%w: dictionary miss value", errs.ErrTruncatedPayload)
			}
			offset += m

			v := encoding.UnZigZag(u)
			d.ctx.UpdateDictionary(v)
			values = append(values, v)
			continue
		}

		v, ok := d.ctx.DictValue(int(tag - 1))
		if !ok {
			return nil, fmt.Errorf("%w: code %d, dictionary holds %d entries", errs.ErrInvalidDictionary, tag-1, d.ctx.DictionarySize())
		}
		values = append(values, v)
	}

	return values, nil
}

func (d *Decoder) last(id format.StreamID) int64 {
	if id == format.StreamTime {
		return d.ctx.LastTimestamp()
	}

	return d.ctx.LastValue()
}

func (d *Decoder) lastDelta(id format.StreamID) int64 {
	if id == format.StreamTime {
		return d.ctx.LastTimestampDelta()
	}

	return d.ctx.LastValueDelta()
}

func (d *Decoder) observe(id format.StreamID, v int64) {
	if id == format.StreamTime {
		d.ctx.ObserveTimestamp(v)
	} else {
		d.ctx.ObserveValue(v)
	}
}

// decodeMetaBlock decodes one block of a non-routed stream. Meta streams only
// carry the two stateless codecs.
func decodeMetaBlock(h section.BlockHeader, payload []byte) ([]int64, error) {
	count := int(h.Count)

	switch h.CodecID {
	case format.CodecNone:
		return encoding.DecodeZigZagSlice(payload, count)
	case format.CodecRLEZigZag:
		return encoding.DecodeRLE(payload, count)
	default:
		return nil, fmt.Errorf("%w: codec %s on stream %s", errs.ErrInvalidCodec, h.CodecID, h.StreamID)
	}
}

// assembleSnapshots zips the flattened streams back into frames, validating
// that every cross-stream length relationship holds.
func assembleSnapshots(streams map[format.StreamID][]int64) ([]Snapshot, error) {
	times := streams[format.StreamTime]
	lens := streams[format.StreamSnapshotLen]
	ids := streams[format.StreamItemID]
	prices := streams[format.StreamValue]
	quantities := streams[format.StreamQuantity]

	if len(times) != len(lens) {
		return nil, fmt.Errorf("%w: %d timestamps, %d snapshot lengths", errs.ErrStreamLengthMismatch, len(times), len(lens))
	}
	if len(ids) != len(prices) || len(ids) != len(quantities) {
		return nil, fmt.Errorf("%w: %d ids, %d prices, %d quantities", errs.ErrStreamLengthMismatch, len(ids), len(prices), len(quantities))
	}

	total := 0
	for _, l := range lens {
		if l < 0 {
			return nil, fmt.Errorf("%w: negative snapshot length %d", errs.ErrStreamLengthMismatch, l)
		}
		total += int(l)
	}
	if total != len(ids) {
		return nil, fmt.Errorf("%w: snapshot lengths sum to %d items, streams hold %d", errs.ErrStreamLengthMismatch, total, len(ids))
	}

	snapshots := make([]Snapshot, 0, len(times))
	pos := 0

	for i, ts := range times {
		n := int(lens[i])
		items := make([]Item, n)
		for k := 0; k < n; k++ {
			items[k] = Item{
				ID:       ids[pos+k],
				Price:    prices[pos+k],
				Quantity: quantities[pos+k],
			}
		}
		pos += n

		snapshots = append(snapshots, Snapshot{Timestamp: ts, Items: items})
	}

	return snapshots, nil
}
