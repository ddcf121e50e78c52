package typer

import "time"

const (
	ClipboardSettle       = 80 * time.Millisecond
	FocusSettle           = 300 * time.Millisecond
	PasteSettle           = 150 * time.Millisecond
	PasteSettleAfterFocus = 250 * time.Millisecond
	LinuxKeyboardWarmup   = 2 * time.Second
)
