package typer

import (
	"runtime"
	"time"

	"github.com/micmonay/keybd_event"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type keyboardPaster struct {
	kb keybd_event.KeyBonding
}

func newKeyboardPaster() (*keyboardPaster, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "create virtual keyboard")
	}
	if runtime.GOOS == "linux" {
		// uinput needs time to register the new device
		time.Sleep(LinuxKeyboardWarmup)
	}

	// Cmd+V on macOS, Ctrl+V elsewhere
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	return &keyboardPaster{kb: kb}, nil
}

func (p *keyboardPaster) Paste() error {
	return p.kb.Launching()
}
