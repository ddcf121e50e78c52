package audio

import (
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Resample converts mono samples from sourceRate to targetRate by linear
// interpolation. Equal rates return a copy of the input.
func Resample(samples []int16, sourceRate, targetRate int) []int16 {
	if sourceRate == targetRate || sourceRate <= 0 || targetRate <= 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(sourceRate) / float64(targetRate)
	n := int(float64(len(samples)) / ratio)
	out := make([]int16, n)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		switch {
		case idx+1 < len(samples):
			v := float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac
			out[i] = clampInt16(math.Round(v))
		case idx < len(samples):
			out[i] = samples[idx]
		}
	}
	return out
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// EncodeWAV normalizes samples to 16 kHz and serializes them as a mono 16-bit
// PCM WAV container. The input slice is never modified.
func EncodeWAV(samples []int16, sourceRate int) ([]byte, error) {
	mono := Resample(samples, sourceRate, TargetSampleRate)

	data := make([]int, len(mono))
	for i, s := range mono {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}

	// The encoder seeks back to patch chunk sizes once the data is written.
	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, TargetSampleRate, BitDepth, 1, wavPCMFormat)
	if err := enc.Write(buf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.EncodingError, "write wav samples")
	}
	if err := enc.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.EncodingError, "finalize wav header")
	}
	out, err := io.ReadAll(ws.Reader())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.EncodingError, "read wav buffer")
	}
	return out, nil
}
