// Package stream implements the GICS v2 session encoder and decoder.
//
// An Encoder accepts ordered frames (timestamped snapshots of priced items),
// flattens them into columnar numeric streams, and emits self-describing
// blocks of at most ChunkSize elements each. The TIME and VALUE streams run
// through an adaptive codec selector guarded by a per-stream health monitor;
// the remaining streams use simple stateless codecs. Decoding reverses the
// whole pipeline and is exact: the reconstructed frames are bit-identical to
// the input.
//
// Encoder and Decoder instances are not safe for concurrent use.
package stream
