//go:build linux

package screen

import (
	"context"
	"os/exec"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type linuxBackend struct{}

func (linuxBackend) activeApp(ctx context.Context) (string, error) {
	return run(ctx, "xdotool", "getactivewindow", "getwindowclassname")
}

func (linuxBackend) activate(ctx context.Context, app string) error {
	_, err := run(ctx, "xdotool", "search", "--onlyvisible", "--class", app, "windowactivate", "--sync")
	return err
}

func (linuxBackend) captureTo(ctx context.Context, path string) error {
	// Try gnome-screenshot first, fall back to scrot
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		_, err := run(ctx, "gnome-screenshot", "-f", path)
		return err
	}
	if _, err := exec.LookPath("scrot"); err == nil {
		_, err := run(ctx, "scrot", "-o", path)
		return err
	}
	return apperrors.New(apperrors.Unavailable, "no screenshot tool found (install gnome-screenshot or scrot)")
}

// New creates a platform-specific screen adapter
func New() *Screen {
	return newScreen(linuxBackend{})
}
