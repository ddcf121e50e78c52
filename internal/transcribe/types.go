// Package transcribe turns recorded WAV audio into text, translations, or
// structured voice commands using remote speech services.
package transcribe

import (
	"context"
	"strings"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Mode selects what the service should do with the audio. The set of modes is
// closed: Dictation, Translate, and Command.
type Mode interface {
	String() string
	isMode()
}

// Dictation transcribes speech as typed text.
type Dictation struct{}

// Translate transcribes and translates into Target (a language code).
type Translate struct {
	Target string
}

// Command classifies speech as dictation, a device command, or a wake/sleep phrase.
type Command struct{}

func (Dictation) String() string   { return "dictation" }
func (t Translate) String() string { return "translate" }
func (Command) String() string     { return "command" }

func (Dictation) isMode() {}
func (Translate) isMode() {}
func (Command) isMode()   {}

// ParseMode converts a mode name from the control surface.
func ParseMode(name, target string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dictation":
		return Dictation{}, nil
	case "translate":
		if target == "" {
			return nil, apperrors.New(apperrors.InvalidArgument, "translate mode requires a target language")
		}
		return Translate{Target: target}, nil
	case "command":
		return Command{}, nil
	default:
		return nil, apperrors.Newf(apperrors.InvalidArgument, "unknown mode %q", name)
	}
}

// Context carries user preferences and environment hints into the prompt.
type Context struct {
	AIEditing      bool
	FormatCommands bool
	Dictionary     []string
	WritingStyle   string
	ActiveApp      string
	WhisperMode    bool
}

// ResultType says how a result should be routed.
type ResultType string

const (
	ResultDictation ResultType = "dictation"
	ResultCommand   ResultType = "command"
	ResultWakeword  ResultType = "wakeword"
	ResultSleep     ResultType = "sleep"
)

// Valid reports whether t is one of the known result types.
func (t ResultType) Valid() bool {
	switch t {
	case ResultDictation, ResultCommand, ResultWakeword, ResultSleep:
		return true
	default:
		return false
	}
}

// Result is what a transcription returns.
type Result struct {
	Type   ResultType `json:"result_type"`
	Text   string     `json:"text"`
	Action string     `json:"action,omitempty"`
	Params string     `json:"params,omitempty"`
}

// Transcriber converts a WAV container into a routed result.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, mode Mode, tc Context) (Result, error)
}

// Provider is a single remote service. Supports reports whether the service can
// handle mode at all; unsupported modes fall through to the next provider.
type Provider interface {
	Transcriber
	Name() string
	Supports(mode Mode) bool
}
