package history

import (
	"testing"

	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

func outcome(text string) session.Outcome {
	return session.Outcome{Kind: session.KindFinal, Result: transcribe.Result{Type: transcribe.ResultDictation, Text: text}}
}

func TestStoreAdd(t *testing.T) {
	s := NewStore(30)
	e := s.Add(outcome("Hello"))

	if e.ID == "" {
		t.Error("entry should get an ID")
	}
	if e.At.IsZero() {
		t.Error("entry should be timestamped")
	}
	recent := s.Recent(0)
	if len(recent) != 1 || recent[0].Result.Text != "Hello" {
		t.Fatalf("Recent() = %+v", recent)
	}
}

func TestStoreMaxSize(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 10; i++ {
		s.Add(outcome("msg"))
	}

	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
}

func TestRecent(t *testing.T) {
	s := NewStore(30)
	for _, text := range []string{"one", "two", "three"} {
		s.Add(outcome(text))
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"three", "two", "one"}},
		{2, []string{"three", "two"}},
		{10, []string{"three", "two", "one"}},
	}
	for _, tt := range tests {
		got := s.Recent(tt.limit)
		if len(got) != len(tt.want) {
			t.Errorf("Recent(%d) returned %d entries, want %d", tt.limit, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Result.Text != tt.want[i] {
				t.Errorf("Recent(%d)[%d] = %q, want %q", tt.limit, i, got[i].Result.Text, tt.want[i])
			}
		}
	}
}
