package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/pushtalk/internal/command"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/assist"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/history"
	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

// Event is pushed to control surface subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Notice is a user-facing message.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Engine is the session engine as seen by the manager.
type Engine interface {
	StartTrigger(ctx context.Context, trigger session.Trigger) error
	SetObserver(o session.Observer)
}

// WakeListener raises a callback when the wake phrase is heard.
type WakeListener interface {
	StartListening(ctx context.Context, onWake func()) error
	Pause()
	Resume()
	Stop() error
}

// Assistant runs clipboard AI actions.
type Assistant interface {
	Run(ctx context.Context, action command.Action) (string, error)
}

// Notifier shows desktop notifications.
type Notifier interface {
	Notify(title, message string)
}

// Manager coordinates all services around the session engine
type Manager struct {
	engine   Engine
	wake     WakeListener
	assist   Assistant
	notifier Notifier
	history  *history.Store
	events   chan Event

	wakePaused atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithWakeListener starts sessions from the wake phrase.
func WithWakeListener(l WakeListener) Option {
	return func(m *Manager) { m.wake = l }
}

// WithAssistant handles AI action command results.
func WithAssistant(a Assistant) Option {
	return func(m *Manager) { m.assist = a }
}

// New creates a new manager
func New(notifier Notifier, hist *history.Store, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		notifier: notifier,
		history:  hist,
		events:   make(chan Event, EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Attach registers the manager as the engine's observer.
func (m *Manager) Attach(e Engine) {
	m.engine = e
	e.SetObserver(m)
}

// Start begins wake word listening when a listener is configured.
func (m *Manager) Start(ctx context.Context) error {
	if m.wake == nil {
		return nil
	}
	if err := m.wake.StartListening(m.ctx, m.onWake); err != nil {
		trace.Logger(ctx).Warn("wake word listener start failed", "error", err)
		return err
	}
	trace.Logger(ctx).Info("wake word listener started")
	return nil
}

// Stop shuts down the listener and waits for assistant work.
func (m *Manager) Stop() {
	m.cancel()
	if m.wake != nil {
		if err := m.wake.Stop(); err != nil {
			trace.Logger(context.Background()).Warn("wake word listener stop failed", "error", err)
		}
	}
	m.wg.Wait()
}

func (m *Manager) onWake() {
	if m.engine == nil {
		return
	}
	ctx, span := trace.StartSpan(m.ctx, "wake_start")
	defer span.End()

	m.wake.Pause()
	m.wakePaused.Store(true)
	if err := m.engine.StartTrigger(ctx, session.TriggerWake); err != nil {
		span.SetAttr("error", err.Error())
		trace.Logger(ctx).Info("wake word ignored", "error", err)
		m.resumeWake()
	}
}

func (m *Manager) resumeWake() {
	if m.wake != nil && m.wakePaused.CompareAndSwap(true, false) {
		m.wake.Resume()
	}
}

// SessionChanged implements session.Observer.
func (m *Manager) SessionChanged(st session.Status) {
	if st.State == session.Idle.String() && !st.Processing {
		m.resumeWake()
	}
	m.emit(Event{Type: EventStatus, Data: st})
}

// ResultReady implements session.Observer.
func (m *Manager) ResultReady(o session.Outcome) {
	entry := m.history.Add(o)
	m.emit(Event{Type: EventResult, Data: entry})

	if action, ok := assist.Request(o.Output); ok && m.assist != nil {
		m.wg.Add(1)
		go m.runAssist(action)
	}
}

func (m *Manager) runAssist(action command.Action) {
	defer m.wg.Done()
	ctx, span := trace.StartSpan(m.ctx, "assist_action")
	defer span.End()
	span.SetAttr("action", action.String())

	ctx, cancel := context.WithTimeout(ctx, AssistTimeout)
	defer cancel()

	log := trace.Logger(ctx)
	out, err := m.assist.Run(ctx, action)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Error("assistant action failed", "action", action, "error", err)
		m.Notify("Assistant error", err.Error())
		return
	}
	m.Notify("Clipboard updated", out)
}

// Notify shows a notification and forwards it to subscribers. It
// implements session.Notifier.
func (m *Manager) Notify(title, message string) {
	if m.notifier != nil {
		m.notifier.Notify(title, message)
	}
	m.emit(Event{Type: EventNotice, Data: Notice{Title: title, Message: message}})
}

// emit sends an event (non-blocking).
func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

// Events returns the channel for control surface events
func (m *Manager) Events() <-chan Event {
	return m.events
}

// History returns the result history.
func (m *Manager) History() *history.Store {
	return m.history
}
