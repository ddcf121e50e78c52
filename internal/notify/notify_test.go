package notify

import (
	"errors"
	"testing"
)

func TestNotify(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		err     error
		want    int
	}{
		{"enabled", true, nil, 1},
		{"disabled", false, nil, 0},
		{"send error is swallowed", true, errors.New("no dbus"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(tt.enabled)
			var got []string
			n.send = func(title, message string) error {
				got = append(got, title+"|"+message)
				return tt.err
			}

			n.Notify("Recording", "Speak now")

			if len(got) != tt.want {
				t.Fatalf("sent %d notifications, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0] != "pushtalk · Recording|Speak now" {
				t.Errorf("sent %q", got[0])
			}
		})
	}
}
