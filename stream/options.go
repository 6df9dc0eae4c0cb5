package stream

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Shiloren/gics/errs"
	"github.com/Shiloren/gics/format"
	"github.com/Shiloren/gics/internal/options"
	"github.com/Shiloren/gics/session"
)

// EncoderOption configures an Encoder at construction time.
type EncoderOption = options.Option[*Encoder]

// WithContext attaches a caller-owned coding context to the encoder.
//
// A dictionary-enabled context (session.NewContext) activates dictionary
// coding for the VALUE stream and may be shared with the matching decoder for
// cross-session dictionary reuse. Without this option the encoder uses a
// private dictionary-disabled context.
func WithContext(ctx *session.Context) EncoderOption {
	return options.New(func(e *Encoder) error {
		if ctx == nil {
			return fmt.Errorf("context cannot be nil")
		}
		e.ctx = ctx

		return nil
	})
}

// WithRunID sets the run identifier embedded in the sidecar anomaly report.
func WithRunID(runID string) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.runID = runID
	})
}

// WithSidecarPath makes Finalize persist the anomaly report as JSON at path.
func WithSidecarPath(path string) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.sidecarPath = path
	})
}

// WithProbeInterval sets the cadence, in blocks, at which quarantined streams
// attempt a full speculative candidate. 1 probes every block.
func WithProbeInterval(interval int) EncoderOption {
	return options.New(func(e *Encoder) error {
		if interval < 1 {
			return fmt.Errorf("probe interval must be at least 1, got %d", interval)
		}
		e.probeInterval = interval

		return nil
	})
}

// WithCompression selects the at-rest compression applied to the sealed
// session body at Finalize. Default is format.CompressionNone.
func WithCompression(compression format.CompressionType) EncoderOption {
	return options.New(func(e *Encoder) error {
		switch compression {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			e.compression = compression

			return nil
		default:
			return fmt.Errorf("%w: 0x%x", errs.ErrInvalidCompression, uint8(compression))
		}
	})
}

// WithLogger sets the logger receiving health state transitions and session
// lifecycle events. Default is a disabled logger.
func WithLogger(logger zerolog.Logger) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.logger = logger
	})
}

// DecoderOption configures a Decoder at construction time.
type DecoderOption = options.Option[*Decoder]

// WithDecoderContext attaches a caller-owned coding context to the decoder.
//
// Sessions encoded against a dictionary-enabled context decode against a
// dictionary-enabled context; share the encoder's context for cross-session
// reuse, or supply a fresh one for self-contained sessions.
func WithDecoderContext(ctx *session.Context) DecoderOption {
	return options.New(func(d *Decoder) error {
		if ctx == nil {
			return fmt.Errorf("context cannot be nil")
		}
		d.ctx = ctx

		return nil
	})
}
