//go:build !darwin && !linux

package screen

import (
	"context"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type unsupportedBackend struct{}

func (unsupportedBackend) activeApp(context.Context) (string, error) {
	return "", apperrors.New(apperrors.Unavailable, "foreground app query not supported on this platform")
}

func (unsupportedBackend) activate(context.Context, string) error {
	return apperrors.New(apperrors.Unavailable, "app activation not supported on this platform")
}

func (unsupportedBackend) captureTo(context.Context, string) error {
	return apperrors.New(apperrors.Unavailable, "screen capture not supported on this platform")
}

// New creates a platform-specific screen adapter
func New() *Screen {
	return newScreen(unsupportedBackend{})
}
