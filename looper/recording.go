package looper

import (
	"math"

	"github.com/go-audio/audio"
)

// ExpectedFrames is the exact frame count of a loop of d seconds
func ExpectedFrames(d float64, sampleRate int) int {
	return int(math.Round(d * float64(sampleRate)))
}

// Normalize returns a buffer of exactly frames frames per channel. Source
// frames are copied index for index, a short tail is zero-filled and any
// excess is dropped.
func Normalize(src *audio.FloatBuffer, frames int) *audio.FloatBuffer {
	format := &audio.Format{NumChannels: 1}
	if src != nil && src.Format != nil {
		f := *src.Format
		format = &f
	}
	if format.NumChannels < 1 {
		format.NumChannels = 1
	}
	if frames < 0 {
		frames = 0
	}

	out := &audio.FloatBuffer{
		Format: format,
		Data:   make([]float64, frames*format.NumChannels),
	}
	if src != nil {
		copy(out.Data, src.Data)
	}
	return out
}

// Take is the future result of one finished capture. The buffer is
// already normalized when Done closes.
type Take struct {
	TrackID int
	gen     uint64

	done chan struct{}
	buf  *audio.FloatBuffer
	err  error
}

// Done closes once the take is decoded or has failed
func (t *Take) Done() <-chan struct{} {
	return t.done
}

// Result is valid after Done has closed
func (t *Take) Result() (*audio.FloatBuffer, error) {
	return t.buf, t.err
}

func (t *Take) ready() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

type capture struct {
	id      CaptureID
	trackID int
	gen     uint64
}

// Recorder runs at most one capture at a time and queues finished takes
// until the next tick collects them
type Recorder struct {
	io      AudioIO
	active  *capture
	pending []*Take
}

func NewRecorder(io AudioIO) *Recorder {
	return &Recorder{io: io}
}

// Start begins capturing for a track at the given boundary time
func (r *Recorder) Start(trackID int, gen uint64, at float64) error {
	id, err := r.io.StartCapture(at)
	if err != nil {
		return err
	}
	r.active = &capture{id: id, trackID: trackID, gen: gen}
	return nil
}

// Active returns the track currently being captured
func (r *Recorder) Active() (int, bool) {
	if r.active == nil {
		return 0, false
	}
	return r.active.trackID, true
}

// Finish stops the active capture at the given time and returns a take
// that resolves to a buffer of exactly round(loopDuration*sampleRate)
// frames. The capture length itself is whatever the boundaries made it.
func (r *Recorder) Finish(at, loopDuration float64) *Take {
	c := r.active
	if c == nil {
		return nil
	}
	r.active = nil

	t := &Take{TrackID: c.trackID, gen: c.gen, done: make(chan struct{})}
	frames := ExpectedFrames(loopDuration, r.io.SampleRate())
	encoded := r.io.StopCapture(c.id, at)

	go func() {
		defer close(t.done)
		enc := <-encoded
		if enc.Err != nil {
			t.err = decodeErr(enc.Err, "capture failed")
			return
		}
		buf, err := r.io.Decode(enc.Blob)
		if err != nil {
			t.err = decodeErr(err, "decode capture")
			return
		}
		t.buf = Normalize(buf, frames)
	}()

	r.pending = append(r.pending, t)
	return t
}

// Discard stops the active capture and throws the audio away
func (r *Recorder) Discard(at float64) {
	c := r.active
	if c == nil {
		return
	}
	r.active = nil
	encoded := r.io.StopCapture(c.id, at)
	go func() { <-encoded }()
}

// Ready removes and returns the finished takes, oldest first. A take
// still decoding holds back everything queued after it.
func (r *Recorder) Ready() []*Take {
	n := 0
	for n < len(r.pending) && r.pending[n].ready() {
		n++
	}
	if n == 0 {
		return nil
	}
	out := r.pending[:n:n]
	r.pending = r.pending[n:]
	return out
}

// Pending returns the takes not yet collected
func (r *Recorder) Pending() []*Take {
	return append([]*Take(nil), r.pending...)
}
