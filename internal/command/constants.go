package command

import "time"

const (
	// AIActionPrefix marks clipboard actions that the caller handles with the
	// transcription service.
	AIActionPrefix = "ai_action:"

	CommandTimeout      = 5 * time.Second
	DefaultTimerMinutes = 5
	DefaultApp          = "Finder"
	DefaultURL          = "https://google.com"
	WifiInterface       = "en0"
)
