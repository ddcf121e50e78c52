package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type fakeStream struct {
	cfg      StreamConfig
	startErr error
	mu       sync.Mutex
	started  bool
	closed   bool
}

func (s *fakeStream) Config() StreamConfig { return s.cfg }

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeBackend struct {
	cfg      StreamConfig
	openErr  error
	startErr error
	handler  FrameHandler
	streams  []*fakeStream
}

func (b *fakeBackend) Open(h FrameHandler) (Stream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.handler = h
	s := &fakeStream{cfg: b.cfg, startErr: b.startErr}
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *fakeBackend) push(f Frame) { b.handler(f) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(cfg StreamConfig) (*Engine, *fakeBackend, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	backend := &fakeBackend{cfg: cfg}
	return NewEngine(backend, WithClock(clock.Now)), backend, clock
}

func TestEngineStartStop(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 48000, Channels: 1, Format: FormatInt16})

	if err := e.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if !e.IsRecording() {
		t.Fatal("IsRecording() = false after Start")
	}
	if got := e.ActualSampleRate(); got != 48000 {
		t.Errorf("ActualSampleRate() = %d, want 48000", got)
	}

	b.push(Frame{Channels: 1, Int16: []int16{1, 2, 3}})
	b.push(Frame{Channels: 1, Int16: []int16{4, 5}})

	got := e.Stop()
	want := []int16{1, 2, 3, 4, 5}
	if !equalInt16(got, want) {
		t.Errorf("Stop() = %v, want %v", got, want)
	}
	if e.IsRecording() {
		t.Error("IsRecording() = true after Stop")
	}
	if !b.streams[0].isClosed() {
		t.Error("Stop should release the stream")
	}

	// Frames arriving after stop are discarded.
	b.push(Frame{Channels: 1, Int16: []int16{9}})
	if got := e.Drain(); len(got) != 0 {
		t.Errorf("Drain() after stop = %v, want empty", got)
	}
}

func TestEngineStopWithNoSamples(t *testing.T) {
	e, _, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	got := e.Stop()
	if got == nil || len(got) != 0 {
		t.Errorf("Stop() = %v, want empty non-nil slice", got)
	}
}

func TestEngineStartWhileRecording(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	if err := e.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	err := e.Start()
	if !apperrors.IsCode(err, apperrors.AlreadyRecording) {
		t.Fatalf("second Start() = %v, want AlreadyRecording", err)
	}
	if len(b.streams) != 1 {
		t.Errorf("streams opened = %d, want 1", len(b.streams))
	}
	if b.streams[0].isClosed() {
		t.Error("rejected Start must not release the active stream")
	}
}

func TestEngineOpenFailureStaysIdle(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	b.openErr = apperrors.New(apperrors.DeviceNotFound, "no mic")

	err := e.Start()
	if !apperrors.IsCode(err, apperrors.DeviceNotFound) {
		t.Fatalf("Start() = %v, want DeviceNotFound", err)
	}
	if e.IsRecording() {
		t.Error("engine should stay idle after open failure")
	}

	b.openErr = nil
	if err := e.Start(); err != nil {
		t.Errorf("retry Start() = %v, want nil", err)
	}
}

func TestEngineStreamStartFailure(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	b.startErr = errors.New("device busy")

	err := e.Start()
	if !apperrors.IsCode(err, apperrors.StreamError) {
		t.Fatalf("Start() = %v, want StreamError", err)
	}
	if e.IsRecording() {
		t.Error("engine should stay idle after stream start failure")
	}
	if !b.streams[0].isClosed() {
		t.Error("failed stream should be closed")
	}
}

func TestEngineDrainKeepsRecording(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	_ = e.Start()

	b.push(Frame{Channels: 1, Int16: []int16{1, 2}})
	if got := e.Drain(); !equalInt16(got, []int16{1, 2}) {
		t.Errorf("Drain() = %v, want [1 2]", got)
	}
	if !e.IsRecording() {
		t.Error("Drain must not stop recording")
	}

	b.push(Frame{Channels: 1, Int16: []int16{3}})
	if got := e.Stop(); !equalInt16(got, []int16{3}) {
		t.Errorf("Stop() = %v, want [3]", got)
	}
}

func TestEngineDownmixesFloatStereo(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 44100, Channels: 2, Format: FormatFloat32})
	_ = e.Start()

	b.push(Frame{Channels: 2, Float32: []float32{0.5, -1, 1.5, 0, -2, 1}})

	got := e.Stop()
	want := []int16{16383, 32767, -32768}
	if !equalInt16(got, want) {
		t.Errorf("Stop() = %v, want %v", got, want)
	}
}

func TestEngineVoiceActivity(t *testing.T) {
	e, b, clock := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	_ = e.Start()

	clock.Advance(2 * time.Second)
	if got := e.SecondsSinceVoice(); got != 2 {
		t.Errorf("SecondsSinceVoice() = %v, want 2", got)
	}

	b.push(Frame{Channels: 1, Int16: []int16{10, -20, 30}})
	if got := e.SecondsSinceVoice(); got != 2 {
		t.Errorf("quiet frame changed SecondsSinceVoice to %v", got)
	}

	b.push(Frame{Channels: 1, Int16: []int16{0, 800, 0}})
	if got := e.SecondsSinceVoice(); got != 0 {
		t.Errorf("SecondsSinceVoice() after voiced frame = %v, want 0", got)
	}
}

func TestEngineRestartReplacesStream(t *testing.T) {
	e, b, _ := newTestEngine(StreamConfig{SampleRate: 16000, Channels: 1, Format: FormatInt16})
	_ = e.Start()
	b.push(Frame{Channels: 1, Int16: []int16{7}})
	_ = e.Stop()

	if err := e.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if got := e.Drain(); len(got) != 0 {
		t.Errorf("buffer not cleared on start: %v", got)
	}
	if len(b.streams) != 2 || !b.streams[0].isClosed() {
		t.Error("restart should open a fresh stream after releasing the old one")
	}
}

func equalInt16(a, b []int16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
