package archive

import "time"

// Archive batcher defaults
const (
	DefaultMaxSize    = 8
	DefaultFlushDelay = 5 * time.Second
	UploadTimeout     = 30 * time.Second
	ContentType       = "audio/wav"
)
