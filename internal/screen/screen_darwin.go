//go:build darwin

package screen

import "context"

type darwinBackend struct{}

func (darwinBackend) activeApp(ctx context.Context) (string, error) {
	return run(ctx, "osascript", "-e",
		`tell application "System Events" to get name of first application process whose frontmost is true`)
}

func (darwinBackend) activate(ctx context.Context, app string) error {
	_, err := run(ctx, "osascript", "-e", `tell application "`+quote(app)+`" to activate`)
	return err
}

func (darwinBackend) captureTo(ctx context.Context, path string) error {
	// -x: no sound
	_, err := run(ctx, "screencapture", "-x", path)
	return err
}

// New creates a platform-specific screen adapter
func New() *Screen {
	return newScreen(darwinBackend{})
}
