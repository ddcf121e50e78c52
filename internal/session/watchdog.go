package session

import (
	"context"
	"time"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

type watchAction int

const (
	watchContinue watchAction = iota
	watchFlush
	watchStop
)

// silenceTimers are the per-session counters owned by the watchdog goroutine.
type silenceTimers struct {
	cumulative     time.Duration
	hadVoice       bool
	segmentFlushed bool
}

// step advances the timers by one tick given the current silence length.
func (t *silenceTimers) step(silence float64, cfg Config) watchAction {
	if silence < cfg.VoiceWindow.Seconds() {
		t.hadVoice = true
		t.segmentFlushed = false
		t.cumulative = 0
	} else {
		t.cumulative += cfg.Tick
	}

	if t.cumulative >= cfg.MaxSilence {
		return watchStop
	}
	if t.hadVoice && !t.segmentFlushed && silence >= cfg.SegmentSilence.Seconds() {
		return watchFlush
	}
	return watchContinue
}

// flushed records a completed segment flush.
func (t *silenceTimers) flushed() {
	t.segmentFlushed = true
	t.hadVoice = false
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// watch runs for the lifetime of one Recording session.
func (e *Engine) watch(ctx context.Context, id uint64) {
	defer e.jobs.Done()

	tick, stop := e.newTicker(e.cfg.Tick)
	defer stop()

	log := trace.Logger(ctx)
	var timers silenceTimers
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}

		if e.sessionID.Load() != id || e.State() != Recording {
			return
		}

		silence := e.capture.SecondsSinceVoice()
		switch timers.step(silence, e.cfg) {
		case watchFlush:
			if e.flushSegment(id) {
				timers.flushed()
			}
		case watchStop:
			log.Info("silence limit reached, stopping", "silence_s", timers.cumulative.Seconds())
			err := e.stopSession(ctx, id, "silence")
			if apperrors.IsCode(err, apperrors.Busy) {
				// a segment is still in flight; try again next tick
				continue
			}
			if err == nil {
				e.notifier.Notify("Silence", "No speech for a while, recording stopped")
			}
			return
		}
	}
}
