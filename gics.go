// Package gics is an adaptive lossless codec for ordered frames of priced
// items (order-book snapshots, inventory ticks, market summaries).
//
// Frames flatten into columnar integer streams; each stream is cut into
// blocks that an adaptive selector encodes with the cheapest applicable
// primitive codec (delta varint, delta-of-delta, run-length, fixed-width
// bitpack, dictionary). A compression health monitor watches the achieved
// ratio per routed stream, quarantines anomalous regions behind a stateless
// fallback codec so the coding context never absorbs noise, and emits a
// sidecar report describing every anomaly segment.
//
// The top-level Encode and Decode cover the common single-shot case; use
// stream.NewEncoder / stream.NewDecoder directly for multi-flush sessions or
// shared coding contexts.
package gics

import (
	"github.com/Shiloren/gics/health"
	"github.com/Shiloren/gics/internal/hash"
	"github.com/Shiloren/gics/session"
	"github.com/Shiloren/gics/stream"
)

// Version is the library release identifier, embedded in sidecar reports.
const Version = stream.LibraryVersion

// Re-exported core types so simple callers only import this package.
type (
	Item     = stream.Item
	Snapshot = stream.Snapshot
	Report   = health.Report
)

// EncoderOption configures Encode; see the stream.With* options.
type EncoderOption = stream.EncoderOption

// DecoderOption configures Decode; see the stream.With* options.
type DecoderOption = stream.DecoderOption

// Encode seals frames into one complete session and returns the wire bytes
// and the anomaly report.
func Encode(frames []Snapshot, opts ...EncoderOption) ([]byte, *Report, error) {
	enc, err := stream.NewEncoder(opts...)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range frames {
		if err := enc.AddSnapshot(f); err != nil {
			return nil, nil, err
		}
	}

	return enc.Finalize()
}

// Decode reconstructs the exact frame sequence from a sealed session.
func Decode(data []byte, opts ...DecoderOption) ([]Snapshot, error) {
	dec, err := stream.NewDecoder(opts...)
	if err != nil {
		return nil, err
	}

	return dec.Decode(data)
}

// NewSessionContext creates a dictionary-enabled coding context identified by
// id, for sharing between an encoder and its matching decoder.
func NewSessionContext(id string) *session.Context {
	return session.NewContext(id)
}

// ItemID derives a stable non-negative 63-bit identifier from an item name,
// for callers whose source data keys items by string.
func ItemID(name string) int64 {
	return hash.ID63(name)
}
