package command

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Runner executes an external program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// Screenshotter saves a screenshot into dir.
type Screenshotter interface {
	Screenshot(ctx context.Context, dir string) (string, error)
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Executor runs actions on the local machine.
type Executor struct {
	run           Runner
	shots         Screenshotter
	notify        Notifier
	screenshotDir string
	schedule      func(d time.Duration, fn func()) (stop func() bool)

	mu     sync.Mutex
	timers map[int]func() bool
	nextID int
	closed bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(e *Executor) { e.run = r }
}

// WithScreenshots sets where screenshots are taken and saved.
func WithScreenshots(s Screenshotter, dir string) Option {
	return func(e *Executor) {
		e.shots = s
		e.screenshotDir = dir
	}
}

// WithNotifier sets the notifier used when timers fire.
func WithNotifier(n Notifier) Option {
	return func(e *Executor) { e.notify = n }
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		run:    ExecRunner{},
		timers: make(map[int]func() bool),
		schedule: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute runs action and returns a short human-readable outcome.
func (e *Executor) Execute(ctx context.Context, action Action, params string) (string, error) {
	params = strings.TrimSpace(params)
	slog.Debug("executing command", "action", action, "params", params)

	if action.IsAI() {
		return AIActionPrefix + action.String(), nil
	}

	switch action {
	case OpenApp:
		app := orDefault(params, DefaultApp)
		return app + " opened", e.exec(ctx, action, "open", "-a", app)
	case Screenshot:
		if e.shots == nil {
			return "", apperrors.New(apperrors.Unavailable, "screenshots are not configured")
		}
		path, err := e.shots.Screenshot(ctx, e.screenshotDir)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CommandFailed, "screenshot")
		}
		return "Screenshot saved: " + path, nil
	case VolumeUp:
		return "Volume up", e.osascript(ctx, action, "set volume output volume ((output volume of (get volume settings)) + 10)")
	case VolumeDown:
		return "Volume down", e.osascript(ctx, action, "set volume output volume ((output volume of (get volume settings)) - 10)")
	case Mute:
		return "Mute toggled", e.osascript(ctx, action, "set volume output muted not (output muted of (get volume settings))")
	case BrightnessUp:
		return "Brightness up", e.osascript(ctx, action, `tell application "System Events" to key code 144`)
	case BrightnessDown:
		return "Brightness down", e.osascript(ctx, action, `tell application "System Events" to key code 145`)
	case DarkMode:
		return "Dark mode toggled", e.osascript(ctx, action,
			`tell application "System Events" to tell appearance preferences to set dark mode to not dark mode`)
	case LockScreen:
		return "Screen locked", e.exec(ctx, action, "pmset", "displaysleepnow")
	case WifiToggle:
		return e.toggleWifi(ctx)
	case BluetoothToggle:
		return "Bluetooth settings opened", e.osascript(ctx, action,
			`tell application "System Preferences" to reveal pane id "com.apple.preferences.Bluetooth"`)
	case PlayPause:
		return "Play/pause", e.osascript(ctx, action, `tell application "Music" to playpause`)
	case NextTrack:
		return "Next track", e.osascript(ctx, action, `tell application "Music" to next track`)
	case PrevTrack:
		return "Previous track", e.osascript(ctx, action, `tell application "Music" to previous track`)
	case NewTab:
		return "New tab", e.keystroke(ctx, action, "t")
	case CloseTab:
		return "Tab closed", e.keystroke(ctx, action, "w")
	case OpenURL:
		url := orDefault(params, DefaultURL)
		return url + " opened", e.exec(ctx, action, "open", url)
	case SelectAll:
		return "Selected all", e.keystroke(ctx, action, "a")
	case Copy:
		return "Copied", e.keystroke(ctx, action, "c")
	case Paste:
		return "Pasted", e.keystroke(ctx, action, "v")
	case Undo:
		return "Undone", e.keystroke(ctx, action, "z")
	case Save:
		return "Saved", e.keystroke(ctx, action, "s")
	case SetTimer:
		return e.setTimer(params), nil
	default:
		return "", apperrors.Newf(apperrors.UnknownAction, "unknown command: %s", action)
	}
}

func (e *Executor) exec(ctx context.Context, action Action, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	if _, err := e.run.Run(ctx, name, args...); err != nil {
		return apperrors.Wrapf(err, apperrors.CommandFailed, "%s failed", action)
	}
	return nil
}

func (e *Executor) osascript(ctx context.Context, action Action, script string) error {
	return e.exec(ctx, action, "osascript", "-e", script)
}

func (e *Executor) keystroke(ctx context.Context, action Action, key string) error {
	return e.osascript(ctx, action, fmt.Sprintf(`tell application "System Events" to keystroke "%s" using command down`, key))
}

func (e *Executor) toggleWifi(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	out, err := e.run.Run(ctx, "networksetup", "-getairportpower", WifiInterface)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CommandFailed, "wifi status")
	}
	next := "on"
	if strings.Contains(out, "On") {
		next = "off"
	}
	if _, err := e.run.Run(ctx, "networksetup", "-setairportpower", WifiInterface, next); err != nil {
		return "", apperrors.Wrap(err, apperrors.CommandFailed, "wifi toggle")
	}
	return "Wi-Fi " + next, nil
}

// setTimer schedules a notification. Unparseable durations use the default.
func (e *Executor) setTimer(params string) string {
	minutes, err := strconv.Atoi(params)
	if err != nil || minutes <= 0 {
		minutes = DefaultTimerMinutes
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "Timer not set"
	}
	id := e.nextID
	e.nextID++
	e.timers[id] = e.schedule(time.Duration(minutes)*time.Minute, func() {
		e.mu.Lock()
		delete(e.timers, id)
		e.mu.Unlock()
		if e.notify != nil {
			e.notify.Notify("Timer", fmt.Sprintf("%d minute timer finished", minutes))
		}
	})
	return fmt.Sprintf("%d minute timer set", minutes)
}

// PendingTimers returns the number of timers that have not fired.
func (e *Executor) PendingTimers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Close cancels pending timers.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, stop := range e.timers {
		stop()
		delete(e.timers, id)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
