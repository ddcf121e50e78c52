package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/command"
	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/orchestrator/history"
	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

type mockEngine struct {
	mu       sync.Mutex
	triggers []session.Trigger
	err      error
	observer session.Observer
}

func (m *mockEngine) StartTrigger(_ context.Context, trigger session.Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, trigger)
	return m.err
}

func (m *mockEngine) SetObserver(o session.Observer) { m.observer = o }

type mockWake struct {
	mu      sync.Mutex
	onWake  func()
	paused  int
	resumed int
	stopped bool
}

func (m *mockWake) StartListening(_ context.Context, onWake func()) error {
	m.onWake = onWake
	return nil
}

func (m *mockWake) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused++
}

func (m *mockWake) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed++
}

func (m *mockWake) Stop() error {
	m.stopped = true
	return nil
}

type mockAssistant struct {
	mu      sync.Mutex
	actions []command.Action
	err     error
}

func (m *mockAssistant) Run(_ context.Context, a command.Action) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, a)
	return "rewritten", m.err
}

type mockNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *mockNotifier) Notify(title, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestAttachRegistersObserver(t *testing.T) {
	eng := &mockEngine{}
	m := New(&mockNotifier{}, history.NewStore(10))
	m.Attach(eng)

	if eng.observer != m {
		t.Error("Attach() should register the manager as observer")
	}
}

func TestWakeStartsSession(t *testing.T) {
	eng := &mockEngine{}
	wake := &mockWake{}
	m := New(&mockNotifier{}, history.NewStore(10), WithWakeListener(wake))
	m.Attach(eng)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	wake.onWake()

	if len(eng.triggers) != 1 || eng.triggers[0] != session.TriggerWake {
		t.Errorf("triggers = %v, want [wake]", eng.triggers)
	}
	if wake.paused != 1 {
		t.Errorf("paused = %d, want 1", wake.paused)
	}

	m.SessionChanged(session.Status{State: session.Recording.String(), Recording: true})
	m.SessionChanged(session.Status{State: session.Finalizing.String(), Processing: true})
	if wake.resumed != 0 {
		t.Errorf("resumed = %d while the session is live", wake.resumed)
	}

	m.SessionChanged(session.Status{State: session.Idle.String()})
	m.SessionChanged(session.Status{State: session.Idle.String()})
	if wake.resumed != 1 {
		t.Errorf("resumed = %d, want 1", wake.resumed)
	}

	m.Stop()
	if !wake.stopped {
		t.Error("Stop() should stop the listener")
	}
}

func TestWakeIgnoredWhenBusy(t *testing.T) {
	eng := &mockEngine{err: apperrors.New(apperrors.Busy, "busy")}
	wake := &mockWake{}
	m := New(&mockNotifier{}, history.NewStore(10), WithWakeListener(wake))
	m.Attach(eng)
	_ = m.Start(context.Background())

	wake.onWake()

	if wake.paused != 1 || wake.resumed != 1 {
		t.Errorf("paused = %d, resumed = %d, want 1 and 1", wake.paused, wake.resumed)
	}
}

func TestResultReadyRecordsHistory(t *testing.T) {
	hist := history.NewStore(10)
	m := New(&mockNotifier{}, hist)

	m.ResultReady(session.Outcome{SessionID: 3, Kind: session.KindFinal, Result: transcribe.Result{Type: transcribe.ResultDictation, Text: "hi"}})

	if hist.Len() != 1 {
		t.Fatalf("history Len() = %d, want 1", hist.Len())
	}
	events := drain(m.Events())
	if len(events) != 1 || events[0].Type != EventResult {
		t.Fatalf("events = %+v", events)
	}
	entry, ok := events[0].Data.(history.Entry)
	if !ok || entry.SessionID != 3 || entry.ID == "" {
		t.Errorf("event data = %#v", events[0].Data)
	}
}

func TestAIActionRunsAssistant(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		err       error
		wantRuns  int
		wantTitle string
	}{
		{"rewrite", "ai_action:rewrite_clipboard", nil, 1, "Clipboard updated"},
		{"failure", "ai_action:generate_code", errors.New("quota"), 1, "Assistant error"},
		{"plain command", "Volume up", nil, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asst := &mockAssistant{err: tt.err}
			notifier := &mockNotifier{}
			m := New(notifier, history.NewStore(10), WithAssistant(asst))

			m.ResultReady(session.Outcome{Result: transcribe.Result{Type: transcribe.ResultCommand}, Output: tt.output})
			m.Stop()

			if len(asst.actions) != tt.wantRuns {
				t.Errorf("assistant runs = %d, want %d", len(asst.actions), tt.wantRuns)
			}
			if tt.wantTitle == "" {
				if len(notifier.titles) != 0 {
					t.Errorf("notifications = %v, want none", notifier.titles)
				}
				return
			}
			if len(notifier.titles) != 1 || notifier.titles[0] != tt.wantTitle {
				t.Errorf("notifications = %v, want [%s]", notifier.titles, tt.wantTitle)
			}
		})
	}
}

func TestNotifyEmitsNotice(t *testing.T) {
	notifier := &mockNotifier{}
	m := New(notifier, history.NewStore(10))

	m.Notify("Recording", "Speak now")

	if len(notifier.titles) != 1 {
		t.Errorf("notifications = %v", notifier.titles)
	}
	events := drain(m.Events())
	if len(events) != 1 || events[0].Type != EventNotice {
		t.Fatalf("events = %+v", events)
	}
	if n := events[0].Data.(Notice); n.Title != "Recording" || n.Message != "Speak now" {
		t.Errorf("notice = %+v", n)
	}
}

func TestEmitNonBlocking(t *testing.T) {
	m := New(nil, history.NewStore(10))

	done := make(chan struct{})
	go func() {
		for i := 0; i < EventBuffer+10; i++ {
			m.Notify("n", "m")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("emit blocked when channel was full")
	}
}
