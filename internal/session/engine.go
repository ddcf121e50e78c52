package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/audio"
	"github.com/GriffinCanCode/pushtalk/internal/command"
	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/observe"
	"github.com/GriffinCanCode/pushtalk/internal/syncx"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
	"github.com/GriffinCanCode/pushtalk/internal/vad"
)

// Deps are the collaborators the engine drives. Capture and Transcriber are
// required; the rest may be nil.
type Deps struct {
	Capture     Capture
	Transcriber transcribe.Transcriber
	Typer       Typer
	Commands    CommandExecutor
	Apps        AppQuery
	Notifier    Notifier
	Archiver    Archiver
	Metrics     *observe.Metrics
}

// Engine owns one recording session at a time. All mutable state is private
// and guarded; callers interact only through methods.
type Engine struct {
	capture     Capture
	transcriber transcribe.Transcriber
	typer       Typer
	commands    CommandExecutor
	apps        AppQuery
	notifier    Notifier
	archiver    Archiver
	metrics     *observe.Metrics
	observer    *syncx.RWGuard[Observer]

	cfg       Config
	encode    func(samples []int16, sourceRate int) ([]byte, error)
	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu         sync.Mutex
	state      State
	processing bool
	abortJob   context.CancelFunc
	lastHold   time.Time
	stopWatch  context.CancelFunc
	sessCtx    context.Context
	span       *trace.Span

	sessionID atomic.Uint64
	active    atomic.Bool
	mode      *syncx.RWGuard[transcribe.Mode]
	target    *syncx.RWGuard[string]
	prefs     *syncx.RWGuard[transcribe.Context]

	base   context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for hold debouncing and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTicker overrides the watchdog ticker.
func WithTicker(fn func(time.Duration) (<-chan time.Time, func())) Option {
	return func(e *Engine) { e.newTicker = fn }
}

// WithEncoder overrides WAV encoding.
func WithEncoder(fn func([]int16, int) ([]byte, error)) Option {
	return func(e *Engine) { e.encode = fn }
}

// New creates an engine in the Idle state.
func New(deps Deps, cfg Config, opts ...Option) (*Engine, error) {
	if deps.Capture == nil || deps.Transcriber == nil {
		return nil, apperrors.New(apperrors.InvalidArgument, "session: capture and transcriber are required")
	}
	cfg = cfg.withDefaults()

	base, cancel := context.WithCancel(context.Background())
	e := &Engine{
		capture:     deps.Capture,
		transcriber: deps.Transcriber,
		typer:       deps.Typer,
		commands:    deps.Commands,
		apps:        deps.Apps,
		notifier:    deps.Notifier,
		archiver:    deps.Archiver,
		metrics:     deps.Metrics,
		observer:    syncx.NewGuard[Observer](nil),
		cfg:         cfg,
		encode:      audio.EncodeWAV,
		now:         time.Now,
		newTicker:   defaultTicker,
		mode:        syncx.NewGuard(cfg.Mode),
		target:      syncx.NewGuard(""),
		prefs:       syncx.NewGuard(cfg.Preferences),
		base:        base,
		cancel:      cancel,
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// SetObserver registers the receiver of state changes and results.
func (e *Engine) SetObserver(o Observer) {
	e.observer.Set(o)
}

// Start begins a manually triggered recording.
func (e *Engine) Start(ctx context.Context) error {
	return e.StartTrigger(ctx, TriggerManual)
}

// StartTrigger begins a recording. It fails with Busy while a previous
// recording is being processed and with AlreadyRecording when one is live.
func (e *Engine) StartTrigger(ctx context.Context, trigger Trigger) error {
	var app string
	if e.apps != nil {
		app, _ = e.apps.ActiveApp(ctx)
	}

	e.mu.Lock()
	if e.processing {
		e.mu.Unlock()
		trace.Logger(ctx).Info("start ignored, still processing", "trigger", trigger)
		return apperrors.New(apperrors.Busy, "previous recording is still being processed")
	}
	if e.state != Idle {
		e.mu.Unlock()
		return apperrors.New(apperrors.AlreadyRecording, "already recording")
	}
	if err := e.capture.Start(); err != nil {
		e.mu.Unlock()
		trace.Logger(ctx).Error("could not start recording", "error", err)
		e.notifier.Notify("Microphone error", err.Error())
		return err
	}

	id := e.sessionID.Add(1)
	e.target.Set(app)
	sctx, span := trace.StartSpan(trace.WithSession(e.detach(ctx), id), "session.record")
	span.SetAttr("trigger", string(trigger))
	wctx, stop := context.WithCancel(sctx)
	e.state = Recording
	e.stopWatch = stop
	e.sessCtx = sctx
	e.span = span
	e.jobs.Add(1)
	e.mu.Unlock()

	go e.watch(wctx, id)

	e.metrics.RecordStart(sctx, string(trigger))
	trace.Logger(sctx).Info("recording started", "trigger", trigger, "target", app)
	e.notifier.Notify("Recording", "Speak now, stop when you are done")
	e.emit()
	return nil
}

// Stop ends the live recording and dispatches it. It is a no-op when idle
// and fails with Busy while a dispatch is still in flight.
func (e *Engine) Stop(ctx context.Context) error {
	return e.stopSession(ctx, 0, "manual")
}

// Toggle starts when idle and stops when recording.
func (e *Engine) Toggle(ctx context.Context) error {
	if e.State() == Recording {
		return e.Stop(ctx)
	}
	return e.Start(ctx)
}

// HoldPress handles the hold-to-talk key going down. Presses within the
// debounce window of the previous hold start are ignored.
func (e *Engine) HoldPress(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Recording {
		e.mu.Unlock()
		return nil
	}
	now := e.now()
	if !e.lastHold.IsZero() && now.Sub(e.lastHold) < e.cfg.HoldDebounce {
		e.mu.Unlock()
		trace.Logger(ctx).Debug("hold press debounced")
		return nil
	}
	e.lastHold = now
	e.mu.Unlock()

	return e.StartTrigger(ctx, TriggerHold)
}

// HoldRelease handles the hold-to-talk key going up.
func (e *Engine) HoldRelease(ctx context.Context) error {
	if e.State() != Recording {
		return nil
	}
	return e.Stop(ctx)
}

// Cancel abandons the live recording without dispatching it. An in-flight
// dispatch is aborted and its result discarded; the engine stays Busy until
// that dispatch has returned.
func (e *Engine) Cancel(ctx context.Context) {
	e.mu.Lock()
	wasRecording := e.state == Recording
	if wasRecording {
		e.capture.Stop()
		e.stopWatch()
		e.span.SetAttr("stop_reason", "cancelled")
		e.span.End()
	}
	if e.abortJob != nil {
		e.abortJob()
	}
	sctx := e.sessCtx
	e.sessionID.Add(1)
	e.state = Idle
	e.mu.Unlock()

	if wasRecording {
		e.metrics.RecordEnd(sctx)
	}
	trace.Logger(ctx).Info("session cancelled", "was_recording", wasRecording)
	e.emit()
}

// Close cancels any session and waits for background work to finish.
func (e *Engine) Close() {
	e.Cancel(context.Background())
	e.cancel()
	e.jobs.Wait()
}

func (e *Engine) stopSession(ctx context.Context, id uint64, reason string) error {
	e.mu.Lock()
	if e.processing {
		e.mu.Unlock()
		trace.Logger(ctx).Info("stop ignored, still processing", "reason", reason)
		return apperrors.New(apperrors.Busy, "previous recording is still being processed")
	}
	if e.state != Recording || (id != 0 && e.sessionID.Load() != id) {
		e.mu.Unlock()
		return nil
	}
	id = e.sessionID.Load()
	e.state = Finalizing
	jctx := e.beginJob()
	rate := e.capture.ActualSampleRate()
	samples := e.capture.Stop()
	e.stopWatch()
	span := e.span
	e.mu.Unlock()

	span.SetAttr("samples", len(samples))
	span.SetAttr("stop_reason", reason)
	span.End()
	e.metrics.RecordEnd(jctx)
	e.emit()

	log := trace.Logger(jctx)
	if len(samples) == 0 {
		log.Warn("recording is empty")
		e.notifier.Notify("Empty recording", "Make sure you are speaking into the microphone")
		e.finishJob(id, KindFinal)
		return apperrors.New(apperrors.EmptyRecording, "recording is empty")
	}

	wav, err := e.encode(samples, rate)
	if err != nil {
		log.Error("could not encode recording", "error", err)
		e.metrics.RecordFailure(jctx, "encode")
		e.notifier.Notify("Error", err.Error())
		e.finishJob(id, KindFinal)
		return err
	}

	seconds := float64(len(samples)) / float64(rate)
	log.Info("recording stopped", "seconds", seconds, "reason", reason)
	e.notifier.Notify("Processing", fmt.Sprintf("Transcribing %.1fs of audio", seconds))

	e.jobs.Add(1)
	go e.dispatch(jctx, id, KindFinal, wav, len(samples))
	return nil
}

// flushSegment drains the buffer mid-session. It reports whether the flush
// happened; a busy engine leaves the samples in place for the next attempt.
func (e *Engine) flushSegment(id uint64) bool {
	e.mu.Lock()
	if e.state != Recording || e.sessionID.Load() != id {
		e.mu.Unlock()
		return false
	}
	if e.processing {
		e.mu.Unlock()
		return false
	}
	sctx := e.sessCtx
	samples := e.capture.Drain()
	if len(samples) == 0 || vad.BelowSignalFloor(samples, e.cfg.RMSFloor, e.cfg.PeakFloor) {
		e.mu.Unlock()
		trace.Logger(sctx).Debug("segment below signal floor, discarded", "samples", len(samples))
		e.metrics.RecordSegment(sctx, "discarded")
		return true
	}
	jctx := e.beginJob()
	rate := e.capture.ActualSampleRate()
	e.mu.Unlock()

	e.metrics.RecordSegment(sctx, "dispatched")
	e.emit()

	e.jobs.Add(1)
	go func() {
		wav, err := e.encode(samples, rate)
		if err != nil {
			trace.Logger(jctx).Error("could not encode segment", "error", err)
			e.metrics.RecordFailure(jctx, "encode")
			e.finishJob(id, KindSegment)
			e.jobs.Done()
			return
		}
		e.dispatch(jctx, id, KindSegment, wav, len(samples))
	}()
	return true
}

func (e *Engine) dispatch(ctx context.Context, id uint64, kind Kind, wav []byte, samples int) {
	defer e.jobs.Done()
	defer e.finishJob(id, kind)

	ctx, span := trace.StartSpan(ctx, "session.dispatch")
	defer span.End()
	span.SetAttr("session", id)
	span.SetAttr("kind", string(kind))
	log := trace.Logger(ctx)

	if e.archiver != nil {
		e.archiver.Archive(Take{SessionID: id, Kind: kind, WAV: wav, Samples: samples, At: e.now()})
	}

	mode := e.mode.Get()
	target := e.target.Get()
	tc := e.prefs.Get()
	tc.ActiveApp = target

	tctx, cancel := context.WithTimeout(ctx, e.cfg.TranscribeTimeout)
	start := time.Now()
	res, err := e.transcriber.Transcribe(tctx, wav, mode, tc)
	cancel()
	e.metrics.RecordTranscribe(ctx, string(kind), time.Since(start), err)

	if e.sessionID.Load() != id {
		log.Warn("discarding stale result", "current", e.sessionID.Load())
		e.metrics.RecordStale(ctx)
		return
	}
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Error("transcription failed", "kind", kind, "error", err)
		e.metrics.RecordFailure(ctx, "transcribe")
		if kind == KindFinal {
			e.notifier.Notify("Transcription failed", err.Error())
		}
		e.report(Outcome{SessionID: id, Kind: kind, TargetApp: target, Error: err.Error(), At: e.now()})
		return
	}

	log.Info("transcribed", "kind", kind, "type", res.Type, "chars", len(res.Text))
	e.report(e.route(ctx, id, kind, res, target))
}

func (e *Engine) route(ctx context.Context, id uint64, kind Kind, res transcribe.Result, target string) Outcome {
	out := Outcome{SessionID: id, Kind: kind, Result: res, TargetApp: target, At: e.now()}
	log := trace.Logger(ctx)

	switch res.Type {
	case transcribe.ResultCommand:
		if !e.cfg.CommandsEnabled || e.commands == nil {
			out.Error = "commands are disabled"
			return out
		}
		action, err := command.Parse(res.Action)
		if err != nil {
			out.Error = err.Error()
			e.notifier.Notify("Command error", err.Error())
			return out
		}
		msg, err := e.commands.Execute(ctx, action, res.Params)
		if err != nil {
			log.Error("command failed", "action", action, "error", err)
			e.metrics.RecordFailure(ctx, "command")
			out.Error = err.Error()
			e.notifier.Notify("Command error", err.Error())
			return out
		}
		out.Output = msg
		if !strings.HasPrefix(msg, command.AIActionPrefix) {
			e.notifier.Notify("Command", msg)
		}

	case transcribe.ResultWakeword:
		e.active.Store(true)
		e.notifier.Notify("Awake", "Listening")

	case transcribe.ResultSleep:
		e.active.Store(false)
		e.notifier.Notify("Sleeping", "Wake word needed to continue")

	default:
		if res.Text == "" {
			return out
		}
		if e.typer == nil {
			out.Error = "no typer configured"
			return out
		}
		if err := e.typer.Type(ctx, res.Text, target); err != nil {
			log.Error("typing failed", "target", target, "error", err)
			e.metrics.RecordFailure(ctx, "type")
			out.Error = err.Error()
			e.notifier.Notify("Typing error", err.Error())
			return out
		}
		if kind == KindFinal {
			e.notifier.Notify("Typed", res.Text)
		}
	}
	return out
}

// beginJob sets the processing guard and returns the context the job runs
// under. Callers hold e.mu.
func (e *Engine) beginJob() context.Context {
	e.processing = true
	ctx, abort := context.WithCancel(e.sessCtx)
	e.abortJob = abort
	return ctx
}

// finishJob clears the processing guard. At most one job runs at a time, so
// the guard is released even when the job's session was cancelled.
func (e *Engine) finishJob(id uint64, kind Kind) {
	e.mu.Lock()
	e.processing = false
	if e.abortJob != nil {
		e.abortJob()
		e.abortJob = nil
	}
	if kind == KindFinal && e.state == Finalizing && e.sessionID.Load() == id {
		e.state = Idle
	}
	e.mu.Unlock()
	e.emit()
}

// detach keeps the caller's trace but not its cancellation; sessions outlive
// the request that started them.
func (e *Engine) detach(ctx context.Context) context.Context {
	if tc, ok := trace.FromContext(ctx); ok {
		return trace.WithContext(e.base, tc)
	}
	return e.base
}

func (e *Engine) report(o Outcome) {
	if obs := e.observer.Get(); obs != nil {
		obs.ResultReady(o)
	}
}

func (e *Engine) emit() {
	if obs := e.observer.Get(); obs != nil {
		obs.SessionChanged(e.Status())
	}
}

// SetMode changes how the next dispatch is transcribed.
func (e *Engine) SetMode(mode transcribe.Mode) error {
	if mode == nil {
		return apperrors.New(apperrors.InvalidArgument, "mode must not be nil")
	}
	if prev := e.mode.Swap(mode); prev != nil && prev.String() != mode.String() {
		slog.Info("transcription mode changed", "from", prev.String(), "to", mode.String())
	}
	e.notifier.Notify("Mode", mode.String())
	e.emit()
	return nil
}

// Mode returns the current transcription mode.
func (e *Engine) Mode() transcribe.Mode { return e.mode.Get() }

// SetPreferences replaces the transcription preferences.
func (e *Engine) SetPreferences(tc transcribe.Context) { e.prefs.Set(tc) }

// AddDictionaryWords appends custom vocabulary to the preferences, skipping
// words already present.
func (e *Engine) AddDictionaryWords(words ...string) transcribe.Context {
	return e.prefs.Modify(func(tc transcribe.Context) transcribe.Context {
		dict := slices.Clone(tc.Dictionary)
		for _, w := range words {
			if w != "" && !slices.Contains(dict, w) {
				dict = append(dict, w)
			}
		}
		tc.Dictionary = dict
		return tc
	})
}

// Preferences returns the transcription preferences.
func (e *Engine) Preferences() transcribe.Context { return e.prefs.Get() }

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRecording reports whether a session is live.
func (e *Engine) IsRecording() bool { return e.State() == Recording }

// IsProcessing reports whether a dispatch is in flight.
func (e *Engine) IsProcessing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

// ActualSampleRate returns the capture device's negotiated rate.
func (e *Engine) ActualSampleRate() int { return e.capture.ActualSampleRate() }

// IsActive reports the wake/sleep flag set by wakeword and sleep results.
func (e *Engine) IsActive() bool { return e.active.Load() }

// SessionID returns the current session number.
func (e *Engine) SessionID() uint64 { return e.sessionID.Load() }

// Status returns a snapshot for the control surface.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st, processing := e.state, e.processing
	e.mu.Unlock()

	s := Status{
		State:      st.String(),
		Recording:  st == Recording,
		Processing: processing,
		Mode:       e.mode.Get().String(),
		Target:     e.target.Get(),
		SampleRate: e.capture.ActualSampleRate(),
		Active:     e.active.Load(),
		SessionID:  e.sessionID.Load(),
	}
	if t, ok := e.mode.Get().(transcribe.Translate); ok {
		s.TranslateTarget = t.Target
	}
	return s
}
