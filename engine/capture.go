package engine

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"go-looper/looper"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const captureBitDepth = 16

type capture struct {
	start int64
	stop  int64 // -1 while open
	data  []float64
	done  chan looper.Encoded
}

// StartCapture records the post-gain microphone signal from at
func (e *Engine) StartCapture(at float64) (looper.CaptureID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.nodes[e.input]; !ok {
		return 0, looper.ErrNoInput
	}
	id := looper.CaptureID(e.id())
	e.captures[id] = &capture{
		start: e.frameOf(at),
		stop:  -1,
		done:  make(chan looper.Encoded, 1),
	}
	return id, nil
}

// StopCapture ends a capture at the given time. The channel yields the
// WAV-encoded take once the clock has passed at.
func (e *Engine) StopCapture(id looper.CaptureID, at float64) <-chan looper.Encoded {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.captures[id]
	if !ok {
		ch := make(chan looper.Encoded, 1)
		ch <- looper.Encoded{Err: fmt.Errorf("capture %d not running", id)}
		return ch
	}

	stop := e.frameOf(at)
	if now := e.frames.Load(); stop <= now {
		stop = now
	}
	c.stop = stop
	if stop <= e.frames.Load() {
		e.finalize(id, c)
	}
	return c.done
}

// feedCaptures appends this block's microphone samples to every open
// capture. Caller holds the lock.
func (e *Engine) feedCaptures(start int64, n int) {
	mic, ok := e.nodes[e.input]
	if !ok {
		return
	}
	end := start + int64(n)
	for id, c := range e.captures {
		from := max(c.start, start)
		to := end
		if c.stop >= 0 {
			to = min(c.stop, end)
		}
		if from < to {
			c.data = append(c.data, mic.buf[from-start:to-start]...)
		}
		if c.stop >= 0 && c.stop <= end {
			e.finalize(id, c)
		}
	}
}

// finalize encodes off the audio path. Caller holds the lock.
func (e *Engine) finalize(id looper.CaptureID, c *capture) {
	delete(e.captures, id)
	data, rate := c.data, e.rate
	go func() {
		blob, err := Encode(data, rate)
		c.done <- looper.Encoded{Blob: blob, Err: err}
	}()
}

// Encode writes mono samples as a 16-bit WAV file. The encoder needs a
// seekable writer, so the file goes through a temp file.
func Encode(samples []float64, sampleRate int) ([]byte, error) {
	f, err := os.CreateTemp("", "looper-take-*.wav")
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("create take file"))
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, captureBitDepth, 1, 1)
	scale := math.Pow(2, captureBitDepth-1) - 1
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: captureBitDepth,
	}
	for i, s := range samples {
		buf.Data[i] = int(clampSample(s) * scale)
	}
	if err := enc.Write(buf); err != nil {
		return nil, fault.Wrap(err, fmsg.With("encode take"))
	}
	if err := enc.Close(); err != nil {
		return nil, fault.Wrap(err, fmsg.With("finish take"))
	}
	return os.ReadFile(f.Name())
}

// Decode reads a WAV blob into float samples in [-1, 1]
func (e *Engine) Decode(blob []byte) (*audio.FloatBuffer, error) {
	return Decode(blob)
}

func Decode(blob []byte) (*audio.FloatBuffer, error) {
	d := wav.NewDecoder(bytes.NewReader(blob))
	if !d.IsValidFile() {
		return nil, fault.New("not a wav stream")
	}
	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("read pcm"))
	}

	depth := int(d.SampleBitDepth())
	if depth == 0 {
		depth = captureBitDepth
	}
	fb := ib.AsFloatBuffer()
	factor := math.Pow(2, float64(depth-1))
	for i := range fb.Data {
		fb.Data[i] /= factor
	}
	return fb, nil
}
