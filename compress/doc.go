// Package compress provides the optional at-rest compression wrapped around
// a sealed GICS session body.
//
// The block codecs already exploit the structure of the streams; this layer
// exists for cold storage and transport of whole sessions, where a general
// compressor still finds cross-block redundancy (repeated headers, dictionary
// misses, RLE literals). It is applied once at finalize time and signalled in
// the session header flags; it never touches individual block payloads.
//
// Available codecs: None, Zstd (pure-Go by default, gozstd behind the
// `gozstd` build tag), S2, and LZ4 block format.
package compress
