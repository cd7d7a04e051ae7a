package looper

import (
	"errors"
	"math"
	"strconv"
	"sync"

	"github.com/go-audio/audio"
)

type fakePlay struct {
	id     SourceID
	at     float64
	loop   bool
	dest   NodeID
	frames int
}

type fakeHit struct {
	inst Instrument
	at   float64
	dest NodeID
}

type fakeClick struct {
	at       float64
	accented bool
	dest     NodeID
}

type fakeCapture struct {
	start, stop float64
	stopped     bool
}

// fakeIO is an in-memory audio layer with a hand-driven clock. Captures
// "record" round((stop-start)*rate)+extraFrames frames of constant 0.5.
type fakeIO struct {
	mu   sync.Mutex
	now  float64
	rate int
	next int

	gains    map[NodeID]float64
	links    map[NodeID]NodeID
	released map[NodeID]bool

	plays   []fakePlay
	stops   map[SourceID]float64
	looping map[SourceID]bool
	hits    []fakeHit
	clicks  []fakeClick

	captures    map[CaptureID]*fakeCapture
	extraFrames int
	captureErr  error
	decodeErr   error
}

const (
	fakeOutput NodeID = 1000
	fakeInput  NodeID = 1001
)

func newFakeIO() *fakeIO {
	return &fakeIO{
		rate:     1000,
		gains:    make(map[NodeID]float64),
		links:    make(map[NodeID]NodeID),
		released: make(map[NodeID]bool),
		stops:    make(map[SourceID]float64),
		looping:  make(map[SourceID]bool),
		captures: make(map[CaptureID]*fakeCapture),
	}
}

func (f *fakeIO) set(now float64) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

func (f *fakeIO) id() int {
	f.next++
	return f.next
}

func (f *fakeIO) Now() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeIO) SampleRate() int { return f.rate }
func (f *fakeIO) Output() NodeID  { return fakeOutput }
func (f *fakeIO) Input() NodeID   { return fakeInput }

func (f *fakeIO) CreateGain() NodeID {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := NodeID(f.id())
	f.gains[n] = 1
	return n
}

func (f *fakeIO) CreateAnalysisTap() NodeID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return NodeID(f.id())
}

func (f *fakeIO) Connect(src, dst NodeID) {
	f.mu.Lock()
	f.links[src] = dst
	f.mu.Unlock()
}

func (f *fakeIO) Disconnect(n NodeID) {
	f.mu.Lock()
	delete(f.links, n)
	f.released[n] = true
	f.mu.Unlock()
}

func (f *fakeIO) SetGain(n NodeID, value, at float64) {
	f.mu.Lock()
	f.gains[n] = value
	f.mu.Unlock()
}

func (f *fakeIO) Analyser(n NodeID) Analyser { return fakeAnalyser{} }

func (f *fakeIO) SchedulePlayback(buf *audio.FloatBuffer, at float64, loop bool, dest NodeID) SourceID {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := SourceID(f.id())
	f.plays = append(f.plays, fakePlay{id: s, at: at, loop: loop, dest: dest, frames: buf.NumFrames()})
	f.looping[s] = loop
	return s
}

func (f *fakeIO) SetLooping(s SourceID, loop bool) {
	f.mu.Lock()
	f.looping[s] = loop
	f.mu.Unlock()
}

func (f *fakeIO) Stop(s SourceID, at float64) {
	f.mu.Lock()
	f.stops[s] = at
	f.mu.Unlock()
}

func (f *fakeIO) Synthesize(inst Instrument, at float64, dest NodeID) {
	f.mu.Lock()
	f.hits = append(f.hits, fakeHit{inst, at, dest})
	f.mu.Unlock()
}

func (f *fakeIO) PlayClick(at float64, accented bool, dest NodeID) {
	f.mu.Lock()
	f.clicks = append(f.clicks, fakeClick{at, accented, dest})
	f.mu.Unlock()
}

func (f *fakeIO) StartCapture(at float64) (CaptureID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return 0, f.captureErr
	}
	c := CaptureID(f.id())
	f.captures[c] = &fakeCapture{start: at}
	return c, nil
}

func (f *fakeIO) StopCapture(c CaptureID, at float64) <-chan Encoded {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Encoded, 1)
	fc, ok := f.captures[c]
	if !ok {
		ch <- Encoded{Err: errors.New("no such capture")}
		return ch
	}
	fc.stop = at
	fc.stopped = true
	frames := int(math.Round((fc.stop-fc.start)*float64(f.rate))) + f.extraFrames
	if frames < 0 {
		frames = 0
	}
	ch <- Encoded{Blob: []byte(strconv.Itoa(frames))}
	return ch
}

func (f *fakeIO) Decode(blob []byte) (*audio.FloatBuffer, error) {
	f.mu.Lock()
	err := f.decodeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(string(blob))
	if err != nil {
		return nil, err
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = 0.5
	}
	return &audio.FloatBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: f.rate}, Data: data}, nil
}

func (f *fakeIO) playsTo(dest NodeID) []fakePlay {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakePlay
	for _, p := range f.plays {
		if p.dest == dest {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeIO) stoppedAt(s SourceID) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.stops[s]
	return at, ok
}

func (f *fakeIO) gain(n NodeID) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gains[n]
}

type fakeAnalyser struct{}

func (fakeAnalyser) Samples(n int) []float64 { return make([]float64, n) }
func (fakeAnalyser) Level() float64          { return 0 }

// eventLog collects scheduler output
type eventLog struct {
	beats      []float64
	accents    []bool
	steps      []float64
	stepIdx    []int
	boundaries []float64
}

func (l *eventLog) Beat(at float64, accented bool) {
	l.beats = append(l.beats, at)
	l.accents = append(l.accents, accented)
}

func (l *eventLog) Step(at float64, index int) {
	l.steps = append(l.steps, at)
	l.stepIdx = append(l.stepIdx, index)
}

func (l *eventLog) Boundary(at float64) {
	l.boundaries = append(l.boundaries, at)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
