// Package errs defines the sentinel errors shared across the gics packages.
//
// Call sites wrap these with fmt.Errorf("%w: ...") to attach context while
// keeping errors.Is checks stable for callers.
package errs

import "errors"

// Format errors. All of these are fatal on decode: the decoder aborts and
// returns no partial result.
var (
	ErrInvalidMagicNumber   = errors.New("invalid magic number")
	ErrUnsupportedVersion   = errors.New("unsupported format version")
	ErrInvalidHeaderSize    = errors.New("invalid header size")
	ErrInvalidHeaderFlags   = errors.New("invalid header flags")
	ErrInvalidCompression   = errors.New("invalid compression type")
	ErrTruncatedPayload     = errors.New("truncated payload")
	ErrPayloadOutOfBounds   = errors.New("payload extends past buffer end")
	ErrMissingEOSMarker     = errors.New("missing end-of-stream marker")
	ErrInvalidCodec         = errors.New("invalid codec for stream")
	ErrInvalidStreamID      = errors.New("invalid stream id")
	ErrInvalidBitWidth      = errors.New("invalid bitpack width")
	ErrInvalidDictionary    = errors.New("dictionary code out of range")
	ErrStreamLengthMismatch = errors.New("stream lengths are inconsistent")
)

// Misuse errors, returned synchronously on API misuse.
var (
	ErrEncoderFinalized = errors.New("encoder already finalized")
	ErrValueOutOfRange  = errors.New("value magnitude exceeds safe integer domain")
	ErrNoFramesAdded    = errors.New("no frames added")
)
