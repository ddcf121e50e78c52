// Package screen queries and drives the desktop: the frontmost application,
// focusing an application by name, and saving screenshots.
package screen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// backend implements the platform-specific parts
type backend interface {
	activeApp(ctx context.Context) (string, error)
	activate(ctx context.Context, app string) error
	captureTo(ctx context.Context, path string) error
}

// Screen is the desktop adapter used by the session and command layers.
type Screen struct {
	backend
	now func() time.Time
}

func newScreen(b backend) *Screen {
	return &Screen{backend: b, now: time.Now}
}

// ActiveApp returns the name of the frontmost application, if it can be determined.
func (s *Screen) ActiveApp(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	name, err := s.activeApp(ctx)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// Activate brings app to the foreground.
func (s *Screen) Activate(ctx context.Context, app string) error {
	if app == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()
	return s.activate(ctx, app)
}

// Screenshot saves a PNG of the main display into dir and returns its path.
func (s *Screen) Screenshot(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(err, apperrors.CommandFailed, "create screenshot directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("%s%d.png", ScreenshotPrefix, s.now().Unix()))
	if err := s.captureTo(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// DefaultScreenshotDir is ~/Desktop, falling back to the working directory.
func DefaultScreenshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

// run executes a short-lived helper and returns its trimmed stdout.
func run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", apperrors.Wrapf(err, apperrors.CommandFailed, "%s failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// quote escapes s for use inside an AppleScript string literal.
func quote(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}
