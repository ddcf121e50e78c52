// Package command runs the device actions recognised in command mode.
package command

import (
	"strings"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Action is one of the supported voice commands.
type Action int

const (
	OpenApp Action = iota + 1
	Screenshot
	VolumeUp
	VolumeDown
	Mute
	BrightnessUp
	BrightnessDown
	DarkMode
	LockScreen
	WifiToggle
	BluetoothToggle
	PlayPause
	NextTrack
	PrevTrack
	NewTab
	CloseTab
	OpenURL
	SelectAll
	Copy
	Paste
	Undo
	Save
	SetTimer
	TranslateClipboard
	RewriteClipboard
	SummarizeClipboard
	GenerateCode
)

var actionNames = map[Action]string{
	OpenApp:            "open_app",
	Screenshot:         "screenshot",
	VolumeUp:           "volume_up",
	VolumeDown:         "volume_down",
	Mute:               "mute",
	BrightnessUp:       "brightness_up",
	BrightnessDown:     "brightness_down",
	DarkMode:           "dark_mode",
	LockScreen:         "lock_screen",
	WifiToggle:         "wifi_toggle",
	BluetoothToggle:    "bluetooth_toggle",
	PlayPause:          "play_pause",
	NextTrack:          "next_track",
	PrevTrack:          "prev_track",
	NewTab:             "new_tab",
	CloseTab:           "close_tab",
	OpenURL:            "open_url",
	SelectAll:          "select_all",
	Copy:               "copy",
	Paste:              "paste",
	Undo:               "undo",
	Save:               "save",
	SetTimer:           "set_timer",
	TranslateClipboard: "translate_clipboard",
	RewriteClipboard:   "rewrite_clipboard",
	SummarizeClipboard: "summarize_clipboard",
	GenerateCode:       "generate_code",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, n := range actionNames {
		m[n] = a
	}
	return m
}()

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// IsAI reports whether the action is handed back to the caller as an
// "ai_action:<name>" marker instead of being run locally.
func (a Action) IsAI() bool {
	switch a {
	case TranslateClipboard, RewriteClipboard, SummarizeClipboard, GenerateCode:
		return true
	default:
		return false
	}
}

// Parse converts an action name from a command-mode result.
func Parse(name string) (Action, error) {
	if a, ok := actionsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return 0, apperrors.Newf(apperrors.UnknownAction, "unknown command: %s", name)
}

// Actions returns every supported action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionNames))
	for a := OpenApp; a <= GenerateCode; a++ {
		out = append(out, a)
	}
	return out
}
