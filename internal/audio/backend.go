// Package audio owns the microphone stream, the capture buffer, and WAV encoding.
package audio

import apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"

// Format is the native sample representation delivered by a device stream.
type Format int

const (
	FormatInt16 Format = iota + 1
	FormatFloat32
)

func (f Format) String() string {
	switch f {
	case FormatInt16:
		return "s16"
	case FormatFloat32:
		return "f32"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the config spellings "int16" and "float32" as well as
// the short forms String returns.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "int16", "s16":
		return FormatInt16, nil
	case "float32", "f32":
		return FormatFloat32, nil
	default:
		return 0, apperrors.Newf(apperrors.UnsupportedFormat, "sample format %q", s)
	}
}

// StreamConfig describes what the device negotiated.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     Format
}

// Frame is one callback's worth of interleaved samples in the stream's native
// format. Exactly one of Int16 and Float32 is set. The slices are only valid
// for the duration of the handler call.
type Frame struct {
	Channels int
	Int16    []int16
	Float32  []float32
}

// Len returns the number of interleaved samples.
func (f Frame) Len() int {
	if f.Float32 != nil {
		return len(f.Float32)
	}
	return len(f.Int16)
}

// FrameHandler runs on the audio subsystem's thread. It must not block.
type FrameHandler func(Frame)

// Stream is a live, opened device stream.
type Stream interface {
	Config() StreamConfig
	Start() error
	Close() error
}

// Backend opens the default input device. Errors are *errors.AppError with
// DeviceNotFound, ConfigurationError, UnsupportedFormat, or StreamError codes.
type Backend interface {
	Open(handler FrameHandler) (Stream, error)
}
