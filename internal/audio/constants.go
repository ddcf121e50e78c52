package audio

// Capture configuration constants
const (
	// Output container format
	TargetSampleRate = 16000
	BitDepth         = 16
	wavPCMFormat     = 1

	// Initial buffer capacity in seconds of device-rate audio
	BufferPreallocSeconds = 5

	// Frames per device read (~21ms at 48kHz)
	DefaultFramesPerBuffer = 1024

	// Channel cap when opening a multi-channel device; only the first channel is kept
	MaxCaptureChannels = 2
)
