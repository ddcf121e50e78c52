// Package wakeword runs a continuous low-duty capture loop and raises a callback
// when a phrase detector confirms the wake phrase in recent speech.
package wakeword

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/audio"
	"github.com/GriffinCanCode/pushtalk/internal/observe"
	"github.com/GriffinCanCode/pushtalk/internal/vad"
)

// PhraseDetector decides whether a short mono buffer contains the wake phrase.
type PhraseDetector interface {
	Detect(ctx context.Context, samples []int16, sampleRate int) (bool, error)
}

// Config for the listener.
type Config struct {
	PollInterval  time.Duration
	WindowSeconds int // ring buffer length
	MinSeconds    int // audio required before a check
	Hysteresis    vad.HysteresisConfig
	DetectTimeout time.Duration
	Metrics       *observe.Metrics // optional
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = DefaultWindowSeconds
	}
	if c.MinSeconds <= 0 {
		c.MinSeconds = DefaultMinSeconds
	}
	if c.DetectTimeout <= 0 {
		c.DetectTimeout = DefaultDetectTimeout
	}
	return c
}

// Listener owns its own input stream, independent of any recording session.
type Listener struct {
	backend  audio.Backend
	detector PhraseDetector
	cfg      Config
	tick     func(time.Duration) (<-chan time.Time, func())

	listening atomic.Bool
	running   atomic.Bool

	mu     sync.Mutex // guards buf, det, rate, maxLen
	buf    []int16
	det    *vad.Hysteresis
	rate   int
	maxLen int

	streamMu sync.Mutex
	stream   audio.Stream
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a listener. Nothing is opened until StartListening.
func New(backend audio.Backend, detector PhraseDetector, cfg Config) *Listener {
	cfg = cfg.withDefaults()
	return &Listener{
		backend:  backend,
		detector: detector,
		cfg:      cfg,
		det:      vad.NewHysteresis(cfg.Hysteresis),
		tick:     defaultTicker,
	}
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// StartListening opens the stream and starts the poller. onWake is called from
// the poller goroutine. Calling it again while running is a no-op.
func (l *Listener) StartListening(ctx context.Context, onWake func()) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}

	stream, err := l.backend.Open(l.handleFrame)
	if err != nil {
		l.running.Store(false)
		return err
	}
	cfg := stream.Config()

	l.mu.Lock()
	l.rate = cfg.SampleRate
	l.maxLen = cfg.SampleRate * l.cfg.WindowSeconds
	l.buf = make([]int16, 0, l.maxLen+cfg.SampleRate/4)
	l.det.Reset()
	l.mu.Unlock()
	l.listening.Store(true)

	if err := stream.Start(); err != nil {
		l.listening.Store(false)
		l.running.Store(false)
		_ = stream.Close()
		return err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	l.streamMu.Lock()
	l.stream = stream
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.streamMu.Unlock()

	go func() {
		defer close(done)
		l.poll(pollCtx, onWake)
	}()

	slog.Info("wake word listener started", "rate", cfg.SampleRate, "channels", cfg.Channels)
	return nil
}

// handleFrame runs on the audio thread.
func (l *Listener) handleFrame(f audio.Frame) {
	if !l.listening.Load() {
		return
	}
	energy := audio.FrameEnergy(f)

	l.mu.Lock()
	l.buf, _ = audio.Downmix(l.buf, f)
	if excess := len(l.buf) - l.maxLen; l.maxLen > 0 && excess > 0 {
		n := copy(l.buf, l.buf[excess:])
		l.buf = l.buf[:n]
	}
	l.det.Update(energy)
	l.mu.Unlock()
}

func (l *Listener) poll(ctx context.Context, onWake func()) {
	ch, stop := l.tick(l.cfg.PollInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			l.check(ctx, onWake)
		}
	}
}

// check runs one poller tick.
func (l *Listener) check(ctx context.Context, onWake func()) {
	if !l.listening.Load() {
		return
	}

	l.mu.Lock()
	if !l.det.Detected() || len(l.buf) < l.rate*l.cfg.MinSeconds {
		l.mu.Unlock()
		return
	}
	// Clear first so a slow detector call does not re-trigger on the same speech.
	l.det.Clear()
	snapshot := make([]int16, len(l.buf))
	copy(snapshot, l.buf)
	l.buf = l.buf[:0]
	rate := l.rate
	l.mu.Unlock()

	detectCtx, cancel := context.WithTimeout(ctx, l.cfg.DetectTimeout)
	defer cancel()

	ok, err := l.detector.Detect(detectCtx, snapshot, rate)
	if err != nil {
		l.cfg.Metrics.RecordWakeCheck(ctx, "error")
		slog.Warn("wake word check failed", "error", err)
		return
	}
	if !ok {
		l.cfg.Metrics.RecordWakeCheck(ctx, "miss")
		return
	}
	l.cfg.Metrics.RecordWakeCheck(ctx, "wake")
	slog.Info("wake word detected")
	onWake()
}

// Pause stops accumulation without tearing down the stream.
func (l *Listener) Pause() {
	l.listening.Store(false)
}

// Resume clears the buffer and detector state, then resumes accumulation.
func (l *Listener) Resume() {
	l.mu.Lock()
	l.buf = l.buf[:0]
	l.det.Reset()
	l.mu.Unlock()
	l.listening.Store(true)
}

// IsListening reports whether frames are being accumulated.
func (l *Listener) IsListening() bool { return l.listening.Load() }

// VoiceDetected reports the current hysteresis flag.
func (l *Listener) VoiceDetected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.det.Detected()
}

// Stop closes the stream and waits for the poller to exit.
func (l *Listener) Stop() error {
	if !l.running.CompareAndSwap(true, false) {
		return nil
	}
	l.listening.Store(false)

	l.streamMu.Lock()
	stream, cancel, done := l.stream, l.cancel, l.done
	l.stream, l.cancel, l.done = nil, nil, nil
	l.streamMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if stream != nil {
		return stream.Close()
	}
	return nil
}
