package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := New("whisper", cfg)
	b.SetClock(c.now)
	return b, c
}

func TestBreakerTransitions(t *testing.T) {
	cfg := Config{Threshold: 2, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 2}

	tests := []struct {
		name string
		run  func(b *Breaker, c *clock)
		want State
	}{
		{"starts closed", func(*Breaker, *clock) {}, Closed},
		{"below threshold", func(b *Breaker, _ *clock) { b.Failure() }, Closed},
		{"opens at threshold", func(b *Breaker, _ *clock) { b.Failure(); b.Failure() }, Open},
		{"success resets the count", func(b *Breaker, _ *clock) {
			b.Failure()
			b.Success()
			b.Failure()
		}, Closed},
		{"half-open after reset timeout", func(b *Breaker, c *clock) {
			b.Failure()
			b.Failure()
			c.advance(11 * time.Second)
			_ = b.Allow()
		}, HalfOpen},
		{"closes after enough half-open successes", func(b *Breaker, c *clock) {
			b.Failure()
			b.Failure()
			c.advance(11 * time.Second)
			_ = b.Allow()
			b.Success()
			b.Success()
		}, Closed},
		{"half-open failure reopens", func(b *Breaker, c *clock) {
			b.Failure()
			b.Failure()
			c.advance(11 * time.Second)
			_ = b.Allow()
			b.Failure()
		}, Open},
		{"reset closes", func(b *Breaker, _ *clock) {
			b.Failure()
			b.Failure()
			b.Reset()
		}, Closed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c := newTestBreaker(cfg)
			tt.run(b, c)
			if got := b.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreakerOpenFailsFast(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Minute, HalfOpenSuccesses: 1})
	b.Failure()

	err := b.Allow()
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
	if !apperrors.IsCode(err, apperrors.Unavailable) {
		t.Errorf("Allow() code = %v, want Unavailable", apperrors.CodeOf(err))
	}

	c.advance(30 * time.Second)
	if err := b.Allow(); err == nil {
		t.Error("Allow() before reset timeout should fail")
	}
}

func TestBreakerHook(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	var got []string
	b.OnTransition(func(name string, from, to State) {
		got = append(got, name+":"+from.String()+"->"+to.String())
	})

	b.Failure()
	c.advance(2 * time.Second)
	_ = b.Allow()
	b.Success()

	want := []string{"whisper:closed->open", "whisper:open->half-open", "whisper:half-open->closed"}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDo(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Minute, HalfOpenSuccesses: 1})

	v, err := Do(b, func() (string, error) { return "merhaba", nil })
	if err != nil || v != "merhaba" {
		t.Errorf("Do() = (%q, %v), want (merhaba, nil)", v, err)
	}

	boom := errors.New("502 from upstream")
	if _, err := Do(b, func() (string, error) { return "", boom }); err != boom {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}

	called := false
	_, err = Do(b, func() (string, error) { called = true; return "", nil })
	if called || !errors.Is(err, ErrOpen) {
		t.Errorf("Do() on open breaker: called = %v, err = %v", called, err)
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := New("gemini", Config{Threshold: 100, ResetTimeout: time.Second, HalfOpenSuccesses: 10})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}()
	}
	wg.Wait()

	if s := b.State(); s.String() == "unknown" {
		t.Errorf("State() = %v", s)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg != DefaultConfig() {
		t.Errorf("withDefaults() = %+v, want %+v", cfg, DefaultConfig())
	}

	p := ProviderConfig()
	if p.Threshold != ProviderThreshold || p.HalfOpenSuccesses != ProviderHalfOpenSuccesses {
		t.Errorf("ProviderConfig() = %+v", p)
	}
}
