// Package encoding implements the primitive byte-level codecs used for GICS
// block payloads: zigzag-varint, run-length pairs over varint, and
// fixed-width bitpacking.
//
// All codecs are pure transforms between integer sequences and bytes; the
// coding-context coupling (delta chains, dictionary state) lives in the
// stream package. Encoders append into pooled byte buffers, decoders operate
// on plain byte slices.
//
// All arithmetic is fixed-width int64/uint64. Values survive the full signed
// 64-bit range through zigzag mapping; callers enforce the documented
// magnitude ceiling at ingestion, not here.
package encoding
