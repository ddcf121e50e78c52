// Package typer delivers text into the focused application by pasting it
// through the system clipboard.
package typer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Activator focuses an application by name.
type Activator interface {
	Activate(ctx context.Context, app string) error
}

// Paster sends the platform paste shortcut.
type Paster interface {
	Paste() error
}

type systemClipboard struct{}

func (systemClipboard) Read() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) Write(text string) error { return clipboard.WriteAll(text) }

// Typer pastes text and restores the previous clipboard afterwards.
type Typer struct {
	clip  Clipboard
	act   Activator
	paste Paster
	sleep func(ctx context.Context, d time.Duration) error

	// one paste at a time; the clipboard is shared state
	mu sync.Mutex
}

// New creates a Typer that uses the system clipboard and a virtual keyboard.
func New(act Activator) (*Typer, error) {
	p, err := newKeyboardPaster()
	if err != nil {
		return nil, err
	}
	return newTyper(systemClipboard{}, act, p), nil
}

func newTyper(clip Clipboard, act Activator, p Paster) *Typer {
	return &Typer{clip: clip, act: act, paste: p, sleep: sleepCtx}
}

// Type pastes text into targetApp, or the focused application when targetApp is empty.
func (t *Typer) Type(ctx context.Context, text, targetApp string) error {
	if text == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	previous, readErr := t.clip.Read()

	if err := t.clip.Write(text); err != nil {
		return apperrors.Wrap(err, apperrors.TypingFailed, "write clipboard")
	}
	if err := t.sleep(ctx, ClipboardSettle); err != nil {
		return err
	}

	settle := PasteSettle
	if targetApp != "" && t.act != nil {
		if err := t.act.Activate(ctx, targetApp); err != nil {
			slog.Warn("could not focus target app", "app", targetApp, "error", err)
		}
		if err := t.sleep(ctx, FocusSettle); err != nil {
			return err
		}
		settle = PasteSettleAfterFocus
	}

	if err := t.paste.Paste(); err != nil {
		return apperrors.Wrap(err, apperrors.TypingFailed, "send paste shortcut")
	}
	_ = t.sleep(ctx, settle)

	if readErr == nil {
		if err := t.clip.Write(previous); err != nil {
			slog.Warn("could not restore clipboard", "error", err)
		}
	}
	return nil
}

// ReadClipboard returns the current clipboard text.
func (t *Typer) ReadClipboard() (string, error) {
	s, err := t.clip.Read()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Unavailable, "read clipboard")
	}
	return s, nil
}

// WriteClipboard replaces the clipboard text.
func (t *Typer) WriteClipboard(text string) error {
	if err := t.clip.Write(text); err != nil {
		return apperrors.Wrap(err, apperrors.TypingFailed, "write clipboard")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
