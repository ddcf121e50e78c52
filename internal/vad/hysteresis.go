package vad

// Hysteresis defaults.
const (
	DefaultEnergyThreshold = 0.01
	DefaultElevatedFrames  = 15
	DefaultLowFrames       = 40
)

// HysteresisConfig tunes the debounced detector.
type HysteresisConfig struct {
	EnergyThreshold float64 // mean-square energy above which a frame is elevated
	ElevatedFrames  int     // detection flips on after more than this many consecutive elevated frames
	LowFrames       int     // detection flips off after more than this many consecutive low frames
}

// DefaultHysteresisConfig returns the standard wake-listener tuning.
func DefaultHysteresisConfig() HysteresisConfig {
	return HysteresisConfig{
		EnergyThreshold: DefaultEnergyThreshold,
		ElevatedFrames:  DefaultElevatedFrames,
		LowFrames:       DefaultLowFrames,
	}
}

func (c HysteresisConfig) withDefaults() HysteresisConfig {
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = DefaultEnergyThreshold
	}
	if c.ElevatedFrames <= 0 {
		c.ElevatedFrames = DefaultElevatedFrames
	}
	if c.LowFrames <= 0 {
		c.LowFrames = DefaultLowFrames
	}
	return c
}

// Hysteresis debounces per-frame energy into a sustained voiceDetected flag.
// A single loud transient never flips it. Not safe for concurrent use; callers
// serialize Update with their own lock.
type Hysteresis struct {
	cfg      HysteresisConfig
	elevated int
	low      int
	detected bool
}

// NewHysteresis creates a detector with cfg, filling zero fields with defaults.
func NewHysteresis(cfg HysteresisConfig) *Hysteresis {
	return &Hysteresis{cfg: cfg.withDefaults()}
}

// Update feeds one frame's energy and returns the detection flag afterwards.
func (h *Hysteresis) Update(energy float64) bool {
	if energy > h.cfg.EnergyThreshold {
		h.low = 0
		h.elevated++
		if h.elevated > h.cfg.ElevatedFrames {
			h.detected = true
		}
		return h.detected
	}

	h.elevated = 0
	h.low++
	if h.detected && h.low > h.cfg.LowFrames {
		h.detected = false
		h.low = 0
	}
	return h.detected
}

// Detected returns the current flag.
func (h *Hysteresis) Detected() bool { return h.detected }

// Clear drops the flag without touching the run counters.
func (h *Hysteresis) Clear() { h.detected = false }

// Reset clears the flag and both counters.
func (h *Hysteresis) Reset() {
	h.elevated = 0
	h.low = 0
	h.detected = false
}
