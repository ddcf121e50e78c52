package session

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/command"
	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

type fakeCapture struct {
	mu        sync.Mutex
	recording bool
	buf       []int16
	silence   float64
	startErr  error
	starts    int
	polled    chan struct{}
}

func (f *fakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.recording = true
	f.buf = nil
	return nil
}

func (f *fakeCapture) Stop() []int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = false
	out := append([]int16{}, f.buf...)
	f.buf = nil
	return out
}

func (f *fakeCapture) Drain() []int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int16{}, f.buf...)
	f.buf = f.buf[:0]
	return out
}

func (f *fakeCapture) SecondsSinceVoice() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case f.polled <- struct{}{}:
	default:
	}
	return f.silence
}

func (f *fakeCapture) IsRecording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *fakeCapture) ActualSampleRate() int { return 16000 }

func (f *fakeCapture) feed(samples []int16, silence float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, samples...)
	f.silence = silence
}

func (f *fakeCapture) setSilence(s float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silence = s
}

type transcribeCall struct {
	mode transcribe.Mode
	tc   transcribe.Context
}

type fakeTranscriber struct {
	mu        sync.Mutex
	calls     []transcribeCall
	result    transcribe.Result
	err       error
	gate      chan struct{}
	ignoreCtx bool
	inflight  int
	peak      int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ []byte, mode transcribe.Mode, tc transcribe.Context) (transcribe.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transcribeCall{mode, tc})
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	gate, res, err, ignoreCtx := f.gate, f.result, f.err, f.ignoreCtx
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if gate != nil {
		done := ctx.Done()
		if ignoreCtx {
			done = nil
		}
		select {
		case <-gate:
		case <-done:
			return transcribe.Result{}, ctx.Err()
		}
	}
	return res, err
}

func (f *fakeTranscriber) peakInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type typed struct{ text, target string }

type fakeTyper struct {
	mu    sync.Mutex
	typed []typed
}

func (f *fakeTyper) Type(_ context.Context, text, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, typed{text, target})
	return nil
}

func (f *fakeTyper) all() []typed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]typed{}, f.typed...)
}

type fakeExecutor struct {
	mu      sync.Mutex
	actions []command.Action
}

func (f *fakeExecutor) Execute(_ context.Context, a command.Action, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return "done", nil
}

type fakeApps struct{ app string }

func (f fakeApps) ActiveApp(context.Context) (string, bool) { return f.app, f.app != "" }

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Notify(title, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) has(title string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.titles {
		if t == title {
			return true
		}
	}
	return false
}

type fakeObserver struct {
	results chan Outcome
}

func (f *fakeObserver) SessionChanged(Status) {}
func (f *fakeObserver) ResultReady(o Outcome) { f.results <- o }

type harness struct {
	engine   *Engine
	capture  *fakeCapture
	trans    *fakeTranscriber
	typer    *fakeTyper
	exec     *fakeExecutor
	notifier *fakeNotifier
	observer *fakeObserver
	ticks    chan time.Time
	clock    time.Time
	clockMu  sync.Mutex
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		capture:  &fakeCapture{polled: make(chan struct{}, 64)},
		trans:    &fakeTranscriber{result: transcribe.Result{Type: transcribe.ResultDictation, Text: "hello"}},
		typer:    &fakeTyper{},
		exec:     &fakeExecutor{},
		notifier: &fakeNotifier{},
		observer: &fakeObserver{results: make(chan Outcome, 16)},
		ticks:    make(chan time.Time),
		clock:    time.Unix(1700000000, 0),
	}
	e, err := New(Deps{
		Capture:     h.capture,
		Transcriber: h.trans,
		Typer:       h.typer,
		Commands:    h.exec,
		Apps:        fakeApps{app: "Notes"},
		Notifier:    h.notifier,
	}, cfg,
		WithTicker(func(time.Duration) (<-chan time.Time, func()) { return h.ticks, func() {} }),
		WithClock(h.now),
		WithEncoder(func(s []int16, _ int) ([]byte, error) { return []byte("RIFF"), nil }),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	e.SetObserver(h.observer)
	h.engine = e
	t.Cleanup(e.Close)
	return h
}

func (h *harness) now() time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	return h.clock
}

func (h *harness) advance(d time.Duration) {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	h.clock = h.clock.Add(d)
}

// tick delivers one watchdog tick and waits until the watchdog has sampled
// the silence length for it.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	select {
	case h.ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not take tick")
	}
	select {
	case <-h.capture.polled:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not poll capture")
	}
}

func (h *harness) waitResult(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.observer.results:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Outcome{}
	}
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.engine.State() == want && !h.engine.IsProcessing() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v (processing %v), want %v", h.engine.State(), h.engine.IsProcessing(), want)
}

func loud(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = 5000
	}
	return s
}

func TestSilenceTimers(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name     string
		silences []float64
		want     []watchAction
	}{
		{
			"pause after speech flushes once",
			[]float64{0.2, 1.0, 1.5, 2.0, 2.5},
			[]watchAction{watchContinue, watchContinue, watchFlush, watchContinue, watchContinue},
		},
		{
			"no flush without speech",
			[]float64{1.5, 2.0, 2.5},
			[]watchAction{watchContinue, watchContinue, watchContinue},
		},
		{
			"speech re-arms the flush",
			[]float64{0.1, 1.6, 0.3, 1.7},
			[]watchAction{watchContinue, watchFlush, watchContinue, watchFlush},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var timers silenceTimers
			for i, s := range tt.silences {
				got := timers.step(s, cfg)
				if got == watchFlush {
					timers.flushed()
				}
				if got != tt.want[i] {
					t.Errorf("step %d (silence %.1f) = %v, want %v", i, s, got, tt.want[i])
				}
			}
		})
	}
}

func TestSilenceTimersStopAfterCumulativeSilence(t *testing.T) {
	cfg := DefaultConfig()
	var timers silenceTimers
	ticks := int(cfg.MaxSilence / cfg.Tick)
	for i := 1; i < ticks; i++ {
		if got := timers.step(40, cfg); got != watchContinue {
			t.Fatalf("tick %d = %v, want continue", i, got)
		}
	}
	if got := timers.step(40, cfg); got != watchStop {
		t.Errorf("tick %d = %v, want stop", ticks, got)
	}

	timers = silenceTimers{}
	for i := 0; i < ticks-1; i++ {
		timers.step(40, cfg)
	}
	timers.step(0.1, cfg)
	if timers.cumulative != 0 {
		t.Errorf("voice should reset cumulative silence, got %v", timers.cumulative)
	}
}

func TestStartStopTypesIntoRecordedApp(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()

	if err := h.engine.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if !h.engine.IsRecording() || h.engine.SessionID() != 1 {
		t.Fatalf("state = %v, session = %d", h.engine.State(), h.engine.SessionID())
	}
	if st := h.engine.Status(); st.Target != "Notes" || st.SampleRate != 16000 {
		t.Errorf("status = %+v", st)
	}

	h.capture.feed(loud(3200), 0.1)
	if err := h.engine.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	o := h.waitResult(t)
	if o.Kind != KindFinal || o.Result.Text != "hello" || o.TargetApp != "Notes" || o.Error != "" {
		t.Errorf("outcome = %+v", o)
	}
	h.waitState(t, Idle)

	got := h.typer.all()
	if len(got) != 1 || got[0] != (typed{"hello", "Notes"}) {
		t.Errorf("typed = %+v", got)
	}
	call := h.trans.calls[0]
	if _, ok := call.mode.(transcribe.Dictation); !ok || call.tc.ActiveApp != "Notes" {
		t.Errorf("transcribe call = %+v", call)
	}
	if !h.notifier.has("Typed") {
		t.Errorf("notifications = %v, want Typed", h.notifier.titles)
	}
}

func TestStartRejections(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()

	if err := h.engine.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := h.engine.Start(ctx); !apperrors.IsCode(err, apperrors.AlreadyRecording) {
		t.Errorf("second Start() = %v, want AlreadyRecording", err)
	}
	if h.capture.starts != 1 {
		t.Errorf("capture started %d times, want 1", h.capture.starts)
	}
}

func TestStartDeviceErrorLeavesIdle(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.capture.startErr = apperrors.New(apperrors.DeviceNotFound, "no input device")

	err := h.engine.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.DeviceNotFound) {
		t.Fatalf("Start() = %v, want DeviceNotFound", err)
	}
	if h.engine.State() != Idle || h.engine.SessionID() != 0 {
		t.Errorf("state = %v, session = %d", h.engine.State(), h.engine.SessionID())
	}
	if !h.notifier.has("Microphone error") {
		t.Errorf("notifications = %v", h.notifier.titles)
	}

	h.capture.startErr = nil
	if err := h.engine.Start(context.Background()); err != nil {
		t.Errorf("retry Start() = %v", err)
	}
}

func TestStopEmptyRecording(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	_ = h.engine.Start(ctx)

	err := h.engine.Stop(ctx)
	if !apperrors.IsCode(err, apperrors.EmptyRecording) {
		t.Fatalf("Stop() = %v, want EmptyRecording", err)
	}
	if h.engine.State() != Idle || h.engine.IsProcessing() {
		t.Errorf("state = %v, processing = %v", h.engine.State(), h.engine.IsProcessing())
	}
	if h.trans.callCount() != 0 {
		t.Error("empty recording should not be transcribed")
	}
	if !h.notifier.has("Empty recording") {
		t.Errorf("notifications = %v", h.notifier.titles)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	if err := h.engine.Stop(context.Background()); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}

func TestBusyWhileProcessing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.trans.gate = make(chan struct{})
	ctx := context.Background()

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	if err := h.engine.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	if h.engine.State() != Finalizing {
		t.Errorf("state = %v, want finalizing", h.engine.State())
	}
	if err := h.engine.Start(ctx); !apperrors.IsCode(err, apperrors.Busy) {
		t.Errorf("Start() while processing = %v, want Busy", err)
	}
	if err := h.engine.Toggle(ctx); !apperrors.IsCode(err, apperrors.Busy) {
		t.Errorf("Toggle() while processing = %v, want Busy", err)
	}

	close(h.trans.gate)
	h.waitResult(t)
	h.waitState(t, Idle)

	if err := h.engine.Toggle(ctx); err != nil {
		t.Errorf("Toggle() after processing = %v", err)
	}
	if !h.engine.IsRecording() {
		t.Error("Toggle() should start a new session")
	}
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name       string
		result     transcribe.Result
		wantAction command.Action
		wantActive bool
		wantErr    bool
	}{
		{"command", transcribe.Result{Type: transcribe.ResultCommand, Action: "volume_up"}, command.VolumeUp, false, false},
		{"unknown command", transcribe.Result{Type: transcribe.ResultCommand, Action: "fly"}, 0, false, true},
		{"wakeword", transcribe.Result{Type: transcribe.ResultWakeword, Text: "millow"}, 0, true, false},
		{"sleep", transcribe.Result{Type: transcribe.ResultSleep}, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultConfig())
			h.trans.result = tt.result
			ctx := context.Background()

			_ = h.engine.Start(ctx)
			h.capture.feed(loud(1600), 0.1)
			if err := h.engine.Stop(ctx); err != nil {
				t.Fatalf("Stop() = %v", err)
			}
			o := h.waitResult(t)
			h.waitState(t, Idle)

			if (o.Error != "") != tt.wantErr {
				t.Errorf("outcome error = %q, wantErr %v", o.Error, tt.wantErr)
			}
			if tt.wantAction != 0 {
				if len(h.exec.actions) != 1 || h.exec.actions[0] != tt.wantAction {
					t.Errorf("executed = %v, want [%v]", h.exec.actions, tt.wantAction)
				}
				if o.Output != "done" {
					t.Errorf("output = %q", o.Output)
				}
			} else if len(h.exec.actions) != 0 {
				t.Errorf("executed = %v, want none", h.exec.actions)
			}
			if h.engine.IsActive() != tt.wantActive {
				t.Errorf("IsActive() = %v, want %v", h.engine.IsActive(), tt.wantActive)
			}
			if len(h.typer.all()) != 0 {
				t.Errorf("non-dictation result was typed: %+v", h.typer.all())
			}
		})
	}
}

func TestCommandsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CommandsEnabled = false
	h := newHarness(t, cfg)
	h.trans.result = transcribe.Result{Type: transcribe.ResultCommand, Action: "mute"}
	ctx := context.Background()

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	_ = h.engine.Stop(ctx)
	o := h.waitResult(t)

	if o.Error == "" || len(h.exec.actions) != 0 {
		t.Errorf("outcome = %+v, executed = %v", o, h.exec.actions)
	}
}

func TestHoldToTalkDebounce(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()

	if err := h.engine.HoldPress(ctx); err != nil {
		t.Fatalf("HoldPress() = %v", err)
	}
	h.capture.feed(loud(1600), 0.1)
	if err := h.engine.HoldRelease(ctx); err != nil {
		t.Fatalf("HoldRelease() = %v", err)
	}
	h.waitResult(t)
	h.waitState(t, Idle)

	// bounce: a second press 300ms after the first start
	h.advance(300 * time.Millisecond)
	if err := h.engine.HoldPress(ctx); err != nil {
		t.Fatalf("HoldPress() = %v", err)
	}
	if h.engine.IsRecording() {
		t.Fatal("press within the debounce window should be ignored")
	}

	h.advance(300 * time.Millisecond)
	if err := h.engine.HoldPress(ctx); err != nil {
		t.Fatalf("HoldPress() = %v", err)
	}
	if !h.engine.IsRecording() {
		t.Error("press after the debounce window should start")
	}

	if err := h.engine.HoldRelease(ctx); !apperrors.IsCode(err, apperrors.EmptyRecording) {
		t.Errorf("HoldRelease() = %v, want EmptyRecording", err)
	}
	if err := h.engine.HoldRelease(ctx); err != nil {
		t.Errorf("HoldRelease() when idle = %v", err)
	}
}

func TestSegmentFlush(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	_ = h.engine.Start(ctx)

	h.capture.feed(loud(8000), 0.2)
	h.tick(t)
	h.capture.setSilence(1.6)
	h.tick(t)

	o := h.waitResult(t)
	if o.Kind != KindSegment || o.Result.Text != "hello" {
		t.Errorf("outcome = %+v", o)
	}
	h.waitState(t, Recording)
	if !h.capture.IsRecording() {
		t.Error("segment flush must not stop the stream")
	}
	if got := h.typer.all(); len(got) != 1 || got[0].target != "Notes" {
		t.Errorf("typed = %+v", got)
	}

	// no second flush for the same pause
	h.capture.feed(loud(100), 2.0)
	h.tick(t)
	h.tick(t)
	if n := h.trans.callCount(); n != 1 {
		t.Errorf("transcribe calls = %d, want 1", n)
	}
}

func TestSegmentBelowSignalFloorDiscarded(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()
	_ = h.engine.Start(ctx)

	quiet := make([]int16, 8000)
	for i := range quiet {
		quiet[i] = 50
	}
	h.capture.feed(quiet, 0.2)
	h.tick(t)
	h.capture.setSilence(1.6)
	h.tick(t)
	h.tick(t)

	if n := h.trans.callCount(); n != 0 {
		t.Errorf("transcribe calls = %d, want 0", n)
	}
	if got := h.capture.Drain(); len(got) != 0 {
		t.Errorf("discarded segment left %d samples in the buffer", len(got))
	}
}

func TestSilenceAutoStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSilence = time.Second
	h := newHarness(t, cfg)
	ctx := context.Background()
	_ = h.engine.Start(ctx)

	h.capture.feed(loud(1600), 5)
	h.tick(t)
	h.tick(t)

	o := h.waitResult(t)
	if o.Kind != KindFinal {
		t.Errorf("kind = %v, want final", o.Kind)
	}
	h.waitState(t, Idle)
	if !h.notifier.has("Silence") {
		t.Errorf("notifications = %v", h.notifier.titles)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.trans.gate = make(chan struct{})
	h.trans.ignoreCtx = true
	ctx := context.Background()

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	_ = h.engine.Stop(ctx)

	h.engine.Cancel(ctx)
	if err := h.engine.Start(ctx); !apperrors.IsCode(err, apperrors.Busy) {
		t.Fatalf("Start() with cancelled dispatch in flight = %v, want Busy", err)
	}
	close(h.trans.gate)
	h.waitState(t, Idle)

	select {
	case o := <-h.observer.results:
		t.Errorf("stale result delivered: %+v", o)
	default:
	}
	if len(h.typer.all()) != 0 {
		t.Errorf("stale result typed: %+v", h.typer.all())
	}
	if err := h.engine.Start(ctx); err != nil {
		t.Errorf("Start() after cancelled dispatch returned = %v", err)
	}
}

func TestCancelAbortsInFlightDispatch(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.trans.gate = make(chan struct{})
	defer close(h.trans.gate)
	ctx := context.Background()

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	_ = h.engine.Stop(ctx)

	h.engine.Cancel(ctx)
	h.waitState(t, Idle)

	if err := h.engine.Start(ctx); err != nil {
		t.Fatalf("Start() after cancel = %v", err)
	}
	if h.engine.SessionID() != 3 {
		t.Errorf("SessionID() = %d, want 3", h.engine.SessionID())
	}
}

func TestDispatchesNeverOverlap(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.trans.gate = make(chan struct{})
	h.trans.ignoreCtx = true
	ctx := context.Background()

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	_ = h.engine.Stop(ctx)
	h.engine.Cancel(ctx)

	// The second session cannot start until the abandoned dispatch returns.
	if err := h.engine.Start(ctx); err == nil {
		h.capture.feed(loud(1600), 0.1)
		_ = h.engine.Stop(ctx)
	}
	close(h.trans.gate)
	h.waitState(t, Idle)

	if err := h.engine.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	h.capture.feed(loud(1600), 0.1)
	if err := h.engine.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	h.waitResult(t)
	h.waitState(t, Idle)

	if got := h.trans.peakInflight(); got != 1 {
		t.Errorf("peak concurrent dispatches = %d, want 1", got)
	}
	if got := h.trans.callCount(); got != 2 {
		t.Errorf("dispatches = %d, want 2", got)
	}
}

func TestSetModeAndPreferences(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()

	if err := h.engine.SetMode(nil); !apperrors.IsCode(err, apperrors.InvalidArgument) {
		t.Errorf("SetMode(nil) = %v", err)
	}
	if err := h.engine.SetMode(transcribe.Translate{Target: "en"}); err != nil {
		t.Fatalf("SetMode() = %v", err)
	}
	h.engine.SetPreferences(transcribe.Context{AIEditing: true, Dictionary: []string{"gRPC"}})

	st := h.engine.Status()
	if st.Mode != "translate" || st.TranslateTarget != "en" {
		t.Errorf("status = %+v", st)
	}

	_ = h.engine.Start(ctx)
	h.capture.feed(loud(1600), 0.1)
	_ = h.engine.Stop(ctx)
	h.waitResult(t)

	call := h.trans.calls[0]
	if m, ok := call.mode.(transcribe.Translate); !ok || m.Target != "en" {
		t.Errorf("mode = %#v", call.mode)
	}
	if !call.tc.AIEditing || call.tc.ActiveApp != "Notes" || len(call.tc.Dictionary) != 1 {
		t.Errorf("context = %+v", call.tc)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}, DefaultConfig()); !apperrors.IsCode(err, apperrors.InvalidArgument) {
		t.Errorf("New() = %v, want InvalidArgument", err)
	}
}

func TestAddDictionaryWords(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.engine.SetPreferences(transcribe.Context{Dictionary: []string{"gRPC"}})

	got := h.engine.AddDictionaryWords("pushtalk", "gRPC", "", "Kubernetes")
	want := []string{"gRPC", "pushtalk", "Kubernetes"}
	if !slices.Equal(got.Dictionary, want) {
		t.Errorf("AddDictionaryWords() = %v, want %v", got.Dictionary, want)
	}
	if !slices.Equal(h.engine.Preferences().Dictionary, want) {
		t.Errorf("Preferences().Dictionary = %v, want %v", h.engine.Preferences().Dictionary, want)
	}
}
