package audio

import (
	"sync"

	"github.com/gen2brain/malgo"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

// Malgo opens capture devices through miniaudio. The device keeps its native
// rate, channel count, and sample format; the data callback runs on
// miniaudio's real-time thread.
type Malgo struct {
	ctx      *malgo.AllocatedContext
	periodMs uint32
}

// NewMalgo initializes a miniaudio context with real-time thread priority.
func NewMalgo(periodMs int) (*Malgo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{ThreadPriority: malgo.ThreadPriorityRealtime}, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigurationError, "initialize miniaudio context")
	}
	if periodMs <= 0 {
		periodMs = 20
	}
	return &Malgo{ctx: ctx, periodMs: uint32(periodMs)}, nil
}

// Terminate releases the miniaudio context.
func (m *Malgo) Terminate() error {
	if err := m.ctx.Uninit(); err != nil {
		return err
	}
	m.ctx.Free()
	return nil
}

// Open initializes the default capture device in its native format.
func (m *Malgo) Open(handler FrameHandler) (Stream, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "enumerate capture devices")
	}
	if len(infos) == 0 {
		return nil, apperrors.New(apperrors.DeviceNotFound, "no capture device available")
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatUnknown
	devCfg.Capture.Channels = 0
	devCfg.SampleRate = 0
	devCfg.PeriodSizeInMilliseconds = m.periodMs

	s := &malgoStream{handler: handler}
	callbacks := malgo.DeviceCallbacks{Data: s.onData}

	device, err := malgo.InitDevice(m.ctx.Context, devCfg, callbacks)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigurationError, "initialize capture device")
	}

	var format Format
	switch device.CaptureFormat() {
	case malgo.FormatS16:
		format = FormatInt16
	case malgo.FormatF32:
		format = FormatFloat32
	default:
		device.Uninit()
		return nil, apperrors.Newf(apperrors.UnsupportedFormat, "native capture format %d", device.CaptureFormat())
	}

	s.device = device
	s.cfg = StreamConfig{
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.CaptureChannels()),
		Format:     format,
	}
	return s, nil
}

type malgoStream struct {
	cfg     StreamConfig
	handler FrameHandler
	device  *malgo.Device

	// Scratch buffers reused across callbacks.
	i16 []int16
	f32 []float32

	closeOnce sync.Once
}

func (s *malgoStream) Config() StreamConfig { return s.cfg }

func (s *malgoStream) Start() error {
	return s.device.Start()
}

func (s *malgoStream) onData(_, input []byte, _ uint32) {
	switch s.cfg.Format {
	case FormatInt16:
		s.i16 = DecodeInt16LE(s.i16, input)
		s.handler(Frame{Channels: s.cfg.Channels, Int16: s.i16})
	case FormatFloat32:
		s.f32 = DecodeFloat32LE(s.f32, input)
		s.handler(Frame{Channels: s.cfg.Channels, Float32: s.f32})
	}
}

func (s *malgoStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.device.Stop()
		s.device.Uninit()
	})
	return err
}
