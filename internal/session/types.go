// Package session drives a recording through start, silence-based segment
// flushes, and the final stop, and routes each transcription result.
package session

import (
	"context"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/command"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

// State is the session lifecycle state.
type State int

const (
	Idle State = iota
	Recording
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Trigger says what started a session.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerHold   Trigger = "hold"
	TriggerWake   Trigger = "wake"
)

// Kind distinguishes mid-session segments from the final stop.
type Kind string

const (
	KindSegment Kind = "segment"
	KindFinal   Kind = "final"
)

// Capture is the audio capture engine as seen by the session.
type Capture interface {
	Start() error
	Stop() []int16
	Drain() []int16
	SecondsSinceVoice() float64
	IsRecording() bool
	ActualSampleRate() int
}

// Typer types text into an application.
type Typer interface {
	Type(ctx context.Context, text, targetApp string) error
}

// CommandExecutor runs a parsed voice command.
type CommandExecutor interface {
	Execute(ctx context.Context, action command.Action, params string) (string, error)
}

// AppQuery reports the frontmost application.
type AppQuery interface {
	ActiveApp(ctx context.Context) (string, bool)
}

// Notifier shows user-facing notices.
type Notifier interface {
	Notify(title, message string)
}

// Observer receives state changes and routed results. Calls are made without
// engine locks held and must not block for long.
type Observer interface {
	SessionChanged(Status)
	ResultReady(Outcome)
}

// Archiver keeps a copy of every dispatched recording.
type Archiver interface {
	Archive(rec Take)
}

// Take is one encoded buffer handed to the transcriber.
type Take struct {
	SessionID uint64
	Kind      Kind
	WAV       []byte
	Samples   int
	At        time.Time
}

// Status is a snapshot of the engine.
type Status struct {
	State           string `json:"state"`
	Recording       bool   `json:"recording"`
	Processing      bool   `json:"processing"`
	Mode            string `json:"mode"`
	TranslateTarget string `json:"translate_target,omitempty"`
	Target          string `json:"target,omitempty"`
	SampleRate      int    `json:"sample_rate"`
	Active          bool   `json:"active"`
	SessionID       uint64 `json:"session_id"`
}

// Outcome is a routed transcription result.
type Outcome struct {
	SessionID uint64            `json:"session_id"`
	Kind      Kind              `json:"kind"`
	Result    transcribe.Result `json:"result"`
	TargetApp string            `json:"target_app,omitempty"`
	Output    string            `json:"output,omitempty"`
	Error     string            `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}
