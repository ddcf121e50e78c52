package wakeword

import "time"

// Listener configuration constants
const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultWindowSeconds = 3
	DefaultMinSeconds    = 1
	DefaultDetectTimeout = 10 * time.Second
)
