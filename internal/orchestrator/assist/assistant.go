// Package assist runs the clipboard AI actions a voice command can request
package assist

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/command"
	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Completer runs a text prompt against a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
}

// Assistant rewrites the clipboard in place for AI actions
type Assistant struct {
	completer Completer
	clip      Clipboard
	language  string
	now       func() time.Time

	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	lastTime time.Time
}

// New creates an assistant. language is the translate_clipboard target.
func New(completer Completer, clip Clipboard, language string, cooldown time.Duration, enabled bool) *Assistant {
	if language == "" {
		language = DefaultLanguage
	}
	return &Assistant{
		completer: completer,
		clip:      clip,
		language:  language,
		now:       time.Now,
		enabled:   enabled,
		cooldown:  cooldown,
	}
}

// Request extracts the AI action from a command result. ok is false when
// output is not an AI action request.
func Request(output string) (command.Action, bool) {
	name, found := strings.CutPrefix(output, command.AIActionPrefix)
	if !found {
		return 0, false
	}
	a, err := command.Parse(name)
	if err != nil || !a.IsAI() {
		return 0, false
	}
	return a, true
}

// Run applies action to the clipboard text and writes the answer back.
// It returns the new clipboard contents.
func (a *Assistant) Run(ctx context.Context, action command.Action) (string, error) {
	if !action.IsAI() {
		return "", apperrors.Newf(apperrors.UnknownAction, "%s is not an AI action", action)
	}
	if !a.IsEnabled() {
		return "", apperrors.New(apperrors.Unavailable, "assistant is disabled")
	}

	a.mu.Lock()
	now := a.now()
	if !a.lastTime.IsZero() && now.Sub(a.lastTime) < a.cooldown {
		a.mu.Unlock()
		return "", apperrors.New(apperrors.Busy, "assistant is cooling down")
	}
	a.lastTime = now
	a.mu.Unlock()

	text, err := a.clip.ReadClipboard()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "read clipboard")
	}
	if strings.TrimSpace(text) == "" {
		return "", apperrors.New(apperrors.InvalidArgument, "clipboard is empty")
	}

	out, err := a.completer.Complete(ctx, Prompt(action, text, a.language))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if err := a.clip.WriteClipboard(out); err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "write clipboard")
	}

	slog.Info("assistant action complete", "action", action, "in_chars", len(text), "out_chars", len(out))
	return out, nil
}

// Prompt builds the model prompt for action over text.
func Prompt(action command.Action, text, language string) string {
	var instr string
	switch action {
	case command.TranslateClipboard:
		instr = "Translate the following text into " + language + ". Return only the translation."
	case command.RewriteClipboard:
		instr = "Rewrite the following text so it is clear and well written. Keep its meaning and language. Return only the rewritten text."
	case command.SummarizeClipboard:
		instr = "Summarize the following text in a few sentences, in the same language. Return only the summary."
	case command.GenerateCode:
		instr = "Write code for the following request. Return only the code, without markdown fences."
	}
	return instr + "\n\n" + text
}

// SetEnabled enables/disables the assistant
func (a *Assistant) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	slog.Info("assistant state changed", "enabled", enabled)
}

// IsEnabled returns current enabled state
func (a *Assistant) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}
