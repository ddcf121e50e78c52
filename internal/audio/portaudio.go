package audio

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// PortAudio opens input streams through PortAudio's blocking read API and
// pumps each buffer to the frame handler from a dedicated goroutine.
type PortAudio struct {
	framesPerBuf int
	format       Format
	preferred    string
	excluded     []string
}

// PortAudioOption configures the PortAudio backend.
type PortAudioOption func(*PortAudio)

// WithFramesPerBuffer sets the device read size.
func WithFramesPerBuffer(n int) PortAudioOption {
	return func(p *PortAudio) {
		if n > 0 {
			p.framesPerBuf = n
		}
	}
}

// WithSampleFormat selects the buffer representation PortAudio converts into.
func WithSampleFormat(f Format) PortAudioOption {
	return func(p *PortAudio) { p.format = f }
}

// WithDevice prefers the first input device whose name contains name, falling
// back to the system default input. Devices whose names contain an entry of
// excluded are never chosen, including the default.
func WithDevice(name string, excluded []string) PortAudioOption {
	return func(p *PortAudio) {
		p.preferred = name
		p.excluded = excluded
	}
}

// NewPortAudio initializes the PortAudio library.
func NewPortAudio(opts ...PortAudioOption) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigurationError, "initialize portaudio")
	}
	p := &PortAudio{framesPerBuf: DefaultFramesPerBuffer, format: FormatFloat32}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Terminate releases the PortAudio library.
func (p *PortAudio) Terminate() error {
	return portaudio.Terminate()
}

// Open negotiates the device's native rate and channel count.
func (p *PortAudio) Open(handler FrameHandler) (Stream, error) {
	dev, err := p.selectDevice()
	if err != nil {
		return nil, err
	}
	if dev.MaxInputChannels < 1 {
		return nil, apperrors.Newf(apperrors.ConfigurationError, "device %q has no input channels", dev.Name)
	}
	if dev.DefaultSampleRate <= 0 {
		return nil, apperrors.Newf(apperrors.ConfigurationError, "device %q reports no sample rate", dev.Name)
	}

	cfg := StreamConfig{
		SampleRate: int(dev.DefaultSampleRate),
		Channels:   min(dev.MaxInputChannels, MaxCaptureChannels),
		Format:     p.format,
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: cfg.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      dev.DefaultSampleRate,
		FramesPerBuffer: p.framesPerBuf,
	}

	s := &paStream{cfg: cfg, handler: handler, device: dev.Name}
	n := p.framesPerBuf * cfg.Channels
	switch p.format {
	case FormatFloat32:
		s.f32 = make([]float32, n)
		s.stream, err = portaudio.OpenStream(params, s.f32)
	case FormatInt16:
		s.i16 = make([]int16, n)
		s.stream, err = portaudio.OpenStream(params, s.i16)
	default:
		return nil, apperrors.Newf(apperrors.UnsupportedFormat, "sample format %s", p.format)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigurationError, "open stream on %q", dev.Name)
	}
	return s, nil
}

func (p *PortAudio) selectDevice() (*portaudio.DeviceInfo, error) {
	def, _ := portaudio.DefaultInputDevice()
	if p.preferred == "" && usable(def, p.excluded) {
		return def, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "enumerate devices")
	}
	dev := chooseDevice(devices, def, p.preferred, p.excluded)
	if dev == nil {
		return nil, apperrors.New(apperrors.DeviceNotFound, "no usable input device")
	}
	return dev, nil
}

// chooseDevice picks the preferred input, then the default input, then the
// first remaining input.
func chooseDevice(devices []*portaudio.DeviceInfo, def *portaudio.DeviceInfo, preferred string, excluded []string) *portaudio.DeviceInfo {
	if preferred != "" {
		if dev := pickDevice(devices, preferred, excluded); dev != nil {
			return dev
		}
		slog.Warn("preferred input device not found", "device", preferred)
	}
	if usable(def, excluded) {
		return def
	}
	return pickDevice(devices, "", excluded)
}

func usable(dev *portaudio.DeviceInfo, excluded []string) bool {
	return dev != nil && dev.MaxInputChannels > 0 && !isExcluded(dev.Name, excluded)
}

// pickDevice returns the first input-capable device whose name contains
// preferred, skipping excluded names. Matching ignores case.
func pickDevice(devices []*portaudio.DeviceInfo, preferred string, excluded []string) *portaudio.DeviceInfo {
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 || isExcluded(dev.Name, excluded) {
			continue
		}
		if containsFold(dev.Name, preferred) {
			return dev
		}
	}
	return nil
}

func isExcluded(name string, excluded []string) bool {
	for _, ex := range excluded {
		if containsFold(name, ex) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type paStream struct {
	cfg     StreamConfig
	handler FrameHandler
	device  string
	stream  *portaudio.Stream
	f32     []float32
	i16     []int16

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *paStream) Config() StreamConfig { return s.cfg }

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := s.stream.Read(); err != nil {
				// Overflow drops samples but the stream keeps running.
				if err == portaudio.InputOverflowed {
					slog.Debug("audio input overflowed", "device", s.device)
					continue
				}
				if ctx.Err() == nil {
					slog.Warn("audio read error", "device", s.device, "error", err)
				}
				return
			}

			s.handler(Frame{Channels: s.cfg.Channels, Float32: s.f32, Int16: s.i16})
		}
	}()
	return nil
}

func (s *paStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.stream.Stop()
		if s.done != nil {
			<-s.done
		}
		err = s.stream.Close()
	})
	return err
}
