package compress

// ZstdCompressor provides Zstandard compression for sealed session bodies.
//
// Best ratio of the built-in codecs; the choice for cold storage and
// long-haul transport where decode frequency is low. The implementation is
// pure Go by default; build with the `gozstd` tag to use the cgo bindings.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
