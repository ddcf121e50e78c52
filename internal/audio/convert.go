package audio

import (
	"encoding/binary"
	"math"

	"github.com/GriffinCanCode/pushtalk/internal/vad"
)

// FloatToInt16 scales a [-1, 1] sample by 32767 and clamps to the int16 range.
func FloatToInt16(v float32) int16 {
	x := float64(v) * 32767.0
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}

// Downmix appends the mono 16-bit rendition of f to dst, keeping only the first
// channel of each interleaved frame. It also reports whether any kept sample
// crossed the format's immediate-mode voice threshold.
func Downmix(dst []int16, f Frame) ([]int16, bool) {
	ch := f.Channels
	if ch < 1 {
		ch = 1
	}
	voiced := false

	if f.Float32 != nil {
		for i := 0; i < len(f.Float32); i += ch {
			v := f.Float32[i]
			voiced = voiced || vad.VoicedFloat32(v)
			dst = append(dst, FloatToInt16(v))
		}
		return dst, voiced
	}

	for i := 0; i < len(f.Int16); i += ch {
		s := f.Int16[i]
		voiced = voiced || vad.VoicedInt16(s)
		dst = append(dst, s)
	}
	return dst, voiced
}

// FrameEnergy returns the mean squared amplitude of every interleaved sample in
// f on the [-1, 1] scale.
func FrameEnergy(f Frame) float64 {
	if f.Float32 != nil {
		return vad.EnergyFloat32(f.Float32)
	}
	return vad.EnergyInt16(f.Int16)
}

// DecodeInt16LE decodes little-endian 16-bit PCM into dst, reusing its capacity.
func DecodeInt16LE(dst []int16, b []byte) []int16 {
	n := len(b) / 2
	dst = dst[:0]
	for i := 0; i < n; i++ {
		dst = append(dst, int16(binary.LittleEndian.Uint16(b[i*2:])))
	}
	return dst
}

// DecodeFloat32LE decodes little-endian IEEE float PCM into dst, reusing its capacity.
func DecodeFloat32LE(dst []float32, b []byte) []float32 {
	n := len(b) / 4
	dst = dst[:0]
	for i := 0; i < n; i++ {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return dst
}
