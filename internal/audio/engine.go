package audio

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// State is the engine's recording state.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Engine captures from one device stream into a mono 16-bit buffer.
type Engine struct {
	backend Backend
	now     func() time.Time

	mu     sync.Mutex // guards state, stream, rate
	state  State
	stream Stream
	rate   int

	bufMu     sync.Mutex // guards buf and recording
	buf       []int16
	recording bool

	lastVoice atomic.Int64 // unix nano
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for voice-activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an idle engine that opens streams through backend.
func NewEngine(backend Backend, opts ...Option) *Engine {
	e := &Engine{backend: backend, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start opens the default input device and begins recording.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Recording {
		return apperrors.New(apperrors.AlreadyRecording, "recording already in progress")
	}

	// Release the previous handle before the device is opened again.
	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			slog.Warn("failed to close previous stream", "error", err)
		}
		e.stream = nil
	}

	stream, err := e.backend.Open(e.handleFrame)
	if err != nil {
		return err
	}
	cfg := stream.Config()

	e.bufMu.Lock()
	e.buf = make([]int16, 0, cfg.SampleRate*BufferPreallocSeconds)
	e.lastVoice.Store(e.now().UnixNano())
	e.recording = true
	e.bufMu.Unlock()

	if err := stream.Start(); err != nil {
		e.bufMu.Lock()
		e.recording = false
		e.buf = nil
		e.bufMu.Unlock()
		_ = stream.Close()
		return apperrors.Wrap(err, apperrors.StreamError, "start input stream")
	}

	e.stream = stream
	e.rate = cfg.SampleRate
	e.state = Recording
	slog.Info("recording started", "rate", cfg.SampleRate, "channels", cfg.Channels, "format", cfg.Format)
	return nil
}

// handleFrame is the capture callback. It runs on the audio thread.
func (e *Engine) handleFrame(f Frame) {
	e.bufMu.Lock()
	defer e.bufMu.Unlock()
	if !e.recording {
		return
	}
	var voiced bool
	e.buf, voiced = Downmix(e.buf, f)
	if voiced {
		e.lastVoice.Store(e.now().UnixNano())
	}
}

// Stop ends recording, releases the device, and returns everything captured.
func (e *Engine) Stop() []int16 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Idle

	e.bufMu.Lock()
	e.recording = false
	out := make([]int16, len(e.buf))
	copy(out, e.buf)
	e.buf = nil
	e.bufMu.Unlock()

	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			slog.Warn("failed to close input stream", "error", err)
		}
		e.stream = nil
	}

	slog.Info("recording stopped", "samples", len(out))
	return out
}

// Drain takes and clears the buffered samples while recording continues.
func (e *Engine) Drain() []int16 {
	e.bufMu.Lock()
	defer e.bufMu.Unlock()

	out := e.buf
	e.buf = make([]int16, 0, cap(out))
	if out == nil {
		return []int16{}
	}
	return out
}

// SecondsSinceVoice returns the elapsed time since the last voiced frame.
func (e *Engine) SecondsSinceVoice() float64 {
	last := e.lastVoice.Load()
	if last == 0 {
		return 0
	}
	return e.now().Sub(time.Unix(0, last)).Seconds()
}

// IsRecording reports whether the engine is in the Recording state.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == Recording
}

// ActualSampleRate returns the negotiated rate of the current or most recent stream.
func (e *Engine) ActualSampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rate == 0 {
		return TargetSampleRate
	}
	return e.rate
}

// Close releases any stream still held.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Idle
	e.bufMu.Lock()
	e.recording = false
	e.bufMu.Unlock()
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	return err
}
