// Package orchestrator connects the recording session to the wake word
// listener, result history, assistant, and event stream.
package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Event channel buffer; slow consumers lose events rather than stall the session
	EventBuffer = 100

	// Deadline for a clipboard assistant action
	AssistTimeout = 30 * time.Second
)

// Event types
const (
	EventStatus = "status"
	EventResult = "result"
	EventNotice = "notice"
)
