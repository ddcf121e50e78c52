// Package vad classifies audio frames as voiced or silent using energy thresholds.
package vad

import "math"

// Immediate-mode thresholds per sample format.
const (
	Int16Threshold   int16   = 500
	Float32Threshold float32 = 0.015
)

// VoicedInt16 reports whether one sample's magnitude exceeds Int16Threshold.
// A frame is voiced when any of its samples is.
func VoicedInt16(s int16) bool {
	v := int32(s)
	return v > int32(Int16Threshold) || -v > int32(Int16Threshold)
}

// VoicedFloat32 is VoicedInt16 for float samples and Float32Threshold.
func VoicedFloat32(s float32) bool {
	return s > Float32Threshold || -s > Float32Threshold
}

// EnergyFloat32 returns the mean of squared samples.
func EnergyFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}

// EnergyInt16 returns the mean of squared samples on the [-1, 1] scale.
func EnergyInt16(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return sum / float64(len(samples))
}

// RMS returns the root-mean-square amplitude on the 16-bit scale.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the maximum sample magnitude on the 16-bit scale.
func Peak(samples []int16) int {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// BelowSignalFloor reports whether a buffer is too quiet to be worth transcribing:
// both RMS and peak fall under their floors.
func BelowSignalFloor(samples []int16, rmsFloor float64, peakFloor int) bool {
	return RMS(samples) < rmsFloor && Peak(samples) < peakFloor
}
