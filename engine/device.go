package engine

import (
	"go-looper/looper"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	pa "github.com/gordonklaus/portaudio"
)

// DeviceConfig selects the stream shape
type DeviceConfig struct {
	InputChannels  int
	OutputChannels int
	BufferFrames   int
}

// Device drives an Engine from the default portaudio stream
type Device struct {
	stream *pa.Stream
	engine *Engine
	cfg    DeviceConfig

	// InputErr is set when the stream opened without a microphone
	InputErr error
}

// Open starts a duplex stream on the default devices. When no input can
// be opened the stream falls back to output only and InputErr explains
// why; transport, metronome and drums keep working.
func Open(e *Engine, cfg DeviceConfig) (*Device, error) {
	if cfg.OutputChannels < 1 {
		cfg.OutputChannels = 2
	}
	if err := pa.Initialize(); err != nil {
		return nil, fault.Wrap(err, ftag.With(looper.KindDevice), fmsg.With("init portaudio"))
	}

	d := &Device{engine: e, cfg: cfg}
	rate := float64(e.SampleRate())

	var err error
	if cfg.InputChannels > 0 {
		d.stream, err = pa.OpenDefaultStream(cfg.InputChannels, cfg.OutputChannels, rate, cfg.BufferFrames, d.duplex)
		if err != nil {
			d.InputErr = err
			e.log.Warn("no input stream, output only", "err", err)
		}
	}
	if d.stream == nil {
		d.cfg.InputChannels = 0
		d.stream, err = pa.OpenDefaultStream(0, cfg.OutputChannels, rate, cfg.BufferFrames, d.outputOnly)
		if err != nil {
			pa.Terminate()
			return nil, fault.Wrap(err, ftag.With(looper.KindDevice), fmsg.With("open output stream"))
		}
		if d.InputErr == nil && cfg.InputChannels == 0 {
			d.InputErr = looper.ErrNoInput
		}
	}

	if err := d.stream.Start(); err != nil {
		d.stream.Close()
		pa.Terminate()
		return nil, fault.Wrap(err, ftag.With(looper.KindDevice), fmsg.With("start stream"))
	}

	info := d.stream.Info()
	e.log.Info("audio stream open",
		"in", d.cfg.InputChannels,
		"out", cfg.OutputChannels,
		"rate", info.SampleRate,
		"latency", info.OutputLatency,
	)
	return d, nil
}

func (d *Device) duplex(in, out []float32) {
	d.engine.Render(in, d.cfg.InputChannels, out, d.cfg.OutputChannels)
}

func (d *Device) outputOnly(out []float32) {
	d.engine.Render(nil, 0, out, d.cfg.OutputChannels)
}

// Close stops the stream and releases portaudio
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	d.stream.Stop()
	err := d.stream.Close()
	d.stream = nil
	pa.Terminate()
	return err
}
