package session

import (
	"time"

	"github.com/GriffinCanCode/pushtalk/internal/transcribe"
)

// Timing and signal defaults
const (
	DefaultTick              = 500 * time.Millisecond
	DefaultVoiceWindow       = time.Second
	DefaultSegmentSilence    = 1500 * time.Millisecond
	DefaultMaxSilence        = 30 * time.Second
	DefaultHoldDebounce      = 500 * time.Millisecond
	DefaultTranscribeTimeout = 30 * time.Second

	// Buffers below both floors are near-silence; speech services tend to
	// hallucinate text for them.
	DefaultRMSFloor  = 200.0
	DefaultPeakFloor = 400
)

// Config tunes the session engine.
type Config struct {
	Tick              time.Duration // watchdog period
	VoiceWindow       time.Duration // silence shorter than this counts as speaking
	SegmentSilence    time.Duration // pause that triggers a segment flush
	MaxSilence        time.Duration // cumulative silence that ends the session
	HoldDebounce      time.Duration
	TranscribeTimeout time.Duration
	RMSFloor          float64
	PeakFloor         int

	CommandsEnabled bool
	Mode            transcribe.Mode
	Preferences     transcribe.Context
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		Tick:              DefaultTick,
		VoiceWindow:       DefaultVoiceWindow,
		SegmentSilence:    DefaultSegmentSilence,
		MaxSilence:        DefaultMaxSilence,
		HoldDebounce:      DefaultHoldDebounce,
		TranscribeTimeout: DefaultTranscribeTimeout,
		RMSFloor:          DefaultRMSFloor,
		PeakFloor:         DefaultPeakFloor,
		CommandsEnabled:   true,
		Mode:              transcribe.Dictation{},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.VoiceWindow <= 0 {
		c.VoiceWindow = d.VoiceWindow
	}
	if c.SegmentSilence <= 0 {
		c.SegmentSilence = d.SegmentSilence
	}
	if c.MaxSilence <= 0 {
		c.MaxSilence = d.MaxSilence
	}
	if c.HoldDebounce <= 0 {
		c.HoldDebounce = d.HoldDebounce
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = d.TranscribeTimeout
	}
	if c.RMSFloor <= 0 {
		c.RMSFloor = d.RMSFloor
	}
	if c.PeakFloor <= 0 {
		c.PeakFloor = d.PeakFloor
	}
	if c.Mode == nil {
		c.Mode = d.Mode
	}
	return c
}
