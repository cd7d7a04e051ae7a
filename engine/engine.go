// Package engine is a small software audio graph: gain and analysis
// nodes, scheduled buffer sources, synthesized one-shot voices and
// microphone capture, all advanced by Render on the device callback.
package engine

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"go-looper/debug"
	"go-looper/looper"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
)

const (
	tapSize     = 4096
	levelWindow = 1024
)

type nodeKind int

const (
	kindGain nodeKind = iota
	kindTap
)

type gainEvent struct {
	frame int64
	value float64
}

type node struct {
	id     looper.NodeID
	kind   nodeKind
	to     looper.NodeID
	gain   float64
	events []gainEvent // pending changes, sorted by frame
	tap    *Tap
	buf    []float64
	depth  int
}

type source struct {
	data  []float64
	start int64
	stop  int64 // -1 until Stop
	loop  bool
	dest  looper.NodeID
}

type voice struct {
	data  []float64
	start int64
	dest  looper.NodeID
}

// Engine implements looper.AudioIO in software. The clock is the number
// of frames rendered so far.
type Engine struct {
	mu     sync.Mutex
	rate   int
	frames atomic.Int64
	nextID int

	nodes   map[looper.NodeID]*node
	order   []*node
	sources map[looper.SourceID]*source
	voices  []*voice

	captures map[looper.CaptureID]*capture

	output looper.NodeID
	input  looper.NodeID

	drums  [looper.NumInstruments][]float64
	clicks [2][]float64

	log *log.Logger
}

var _ looper.AudioIO = (*Engine)(nil)

// New creates an engine with an output bus and a microphone gain node
func New(sampleRate int) *Engine {
	e := &Engine{
		rate:     sampleRate,
		nodes:    make(map[looper.NodeID]*node),
		sources:  make(map[looper.SourceID]*source),
		captures: make(map[looper.CaptureID]*capture),
		log:      debug.For("engine"),
	}
	e.output = e.addNode(kindGain)
	e.input = e.addNode(kindGain)

	for _, inst := range looper.Instruments() {
		e.drums[inst] = renderVoice(inst, sampleRate)
	}
	e.clicks[0] = renderClick(false, sampleRate)
	e.clicks[1] = renderClick(true, sampleRate)

	e.log.Info("engine ready", "rate", sampleRate)
	return e
}

func (e *Engine) id() int {
	e.nextID++
	return e.nextID
}

func (e *Engine) addNode(kind nodeKind) looper.NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := &node{id: looper.NodeID(e.id()), kind: kind, to: looper.NoNode, gain: 1}
	if kind == kindTap {
		n.tap = NewTap(tapSize)
	}
	e.nodes[n.id] = n
	e.reorder()
	return n.id
}

// reorder sorts nodes so every node renders before the one it feeds.
// Caller holds the lock.
func (e *Engine) reorder() {
	e.order = e.order[:0]
	for _, n := range e.nodes {
		n.depth = 0
		for cur := n; cur.to != looper.NoNode && n.depth <= len(e.nodes); n.depth++ {
			next, ok := e.nodes[cur.to]
			if !ok {
				break
			}
			cur = next
		}
		e.order = append(e.order, n)
	}
	sort.Slice(e.order, func(i, j int) bool {
		if e.order[i].depth != e.order[j].depth {
			return e.order[i].depth > e.order[j].depth
		}
		return e.order[i].id < e.order[j].id
	})
}

func (e *Engine) frameOf(at float64) int64 {
	return int64(math.Round(at * float64(e.rate)))
}

// Now is the audio clock in seconds
func (e *Engine) Now() float64 {
	return float64(e.frames.Load()) / float64(e.rate)
}

func (e *Engine) SampleRate() int {
	return e.rate
}

func (e *Engine) Output() looper.NodeID { return e.output }
func (e *Engine) Input() looper.NodeID  { return e.input }

func (e *Engine) CreateGain() looper.NodeID {
	return e.addNode(kindGain)
}

func (e *Engine) CreateAnalysisTap() looper.NodeID {
	return e.addNode(kindTap)
}

// Connect routes src into dst. A node feeds at most one other node.
func (e *Engine) Connect(src, dst looper.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[src]
	if !ok {
		return
	}
	if _, ok := e.nodes[dst]; !ok {
		return
	}
	n.to = dst
	e.reorder()
}

// Disconnect detaches and releases a node. Anything routed into it goes
// silent.
func (e *Engine) Disconnect(id looper.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == e.output || id == e.input {
		return
	}
	delete(e.nodes, id)
	for _, n := range e.nodes {
		if n.to == id {
			n.to = looper.NoNode
		}
	}
	e.reorder()
}

// SetGain changes a node's gain at the given time, or now if it is
// already past
func (e *Engine) SetGain(id looper.NodeID, value, at float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[id]
	if !ok {
		return
	}
	frame := e.frameOf(at)
	if frame <= e.frames.Load() {
		n.gain = value
		n.events = n.events[:0]
		return
	}
	n.events = append(n.events, gainEvent{frame, value})
	sort.SliceStable(n.events, func(i, j int) bool { return n.events[i].frame < n.events[j].frame })
}

func (e *Engine) Analyser(id looper.NodeID) looper.Analyser {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n, ok := e.nodes[id]; ok && n.tap != nil {
		return n.tap
	}
	return nil
}

// SchedulePlayback plays buf into dest from at. Multi-channel buffers
// are mixed down to mono.
func (e *Engine) SchedulePlayback(buf *audio.FloatBuffer, at float64, loop bool, dest looper.NodeID) looper.SourceID {
	data := mono(buf)

	e.mu.Lock()
	defer e.mu.Unlock()

	id := looper.SourceID(e.id())
	e.sources[id] = &source{data: data, start: e.frameOf(at), stop: -1, loop: loop, dest: dest}
	return id
}

func mono(buf *audio.FloatBuffer) []float64 {
	if buf == nil {
		return nil
	}
	ch := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		ch = buf.Format.NumChannels
	}
	if ch == 1 {
		return buf.Data
	}
	out := make([]float64, len(buf.Data)/ch)
	for i := range out {
		sum := 0.0
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = sum / float64(ch)
	}
	return out
}

func (e *Engine) SetLooping(id looper.SourceID, loop bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sources[id]; ok {
		s.loop = loop
	}
}

// Stop silences a source from at, or immediately if at is past
func (e *Engine) Stop(id looper.SourceID, at float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sources[id]
	if !ok {
		return
	}
	frame := e.frameOf(at)
	if now := e.frames.Load(); frame < now {
		frame = now
	}
	if s.stop < 0 || frame < s.stop {
		s.stop = frame
	}
}

func (e *Engine) Synthesize(inst looper.Instrument, at float64, dest looper.NodeID) {
	if !inst.Valid() {
		return
	}
	e.addVoice(e.drums[inst], at, dest)
}

func (e *Engine) PlayClick(at float64, accented bool, dest looper.NodeID) {
	i := 0
	if accented {
		i = 1
	}
	e.addVoice(e.clicks[i], at, dest)
}

func (e *Engine) addVoice(data []float64, at float64, dest looper.NodeID) {
	e.mu.Lock()
	e.voices = append(e.voices, &voice{data: data, start: e.frameOf(at), dest: dest})
	e.mu.Unlock()
}

// Render advances the graph by one block. in is interleaved microphone
// input (nil when there is none), out is interleaved output that gets
// overwritten.
func (e *Engine) Render(in []float32, inChannels int, out []float32, outChannels int) {
	if outChannels < 1 {
		outChannels = 1
	}
	n := len(out) / outChannels

	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.frames.Load()
	for _, nd := range e.nodes {
		if cap(nd.buf) < n {
			nd.buf = make([]float64, n)
		}
		nd.buf = nd.buf[:n]
		clear(nd.buf)
	}

	if mic := e.nodes[e.input]; mic != nil && inChannels > 0 {
		for i := 0; i < n && (i+1)*inChannels <= len(in); i++ {
			sum := 0.0
			for c := 0; c < inChannels; c++ {
				sum += float64(in[i*inChannels+c])
			}
			mic.buf[i] = sum / float64(inChannels)
		}
	}

	for id, s := range e.sources {
		if e.mixSource(s, start, n) {
			delete(e.sources, id)
		}
	}

	live := e.voices[:0]
	for _, v := range e.voices {
		if e.mixVoice(v, start, n) {
			live = append(live, v)
		}
	}
	clear(e.voices[len(live):])
	e.voices = live

	for _, nd := range e.order {
		e.process(nd, start)
	}

	e.feedCaptures(start, n)

	master := e.nodes[e.output].buf
	for i := 0; i < n; i++ {
		v := float32(clampSample(master[i]))
		for c := 0; c < outChannels; c++ {
			out[i*outChannels+c] = v
		}
	}

	e.frames.Add(int64(n))
}

// mixSource adds a source's samples for this block and reports whether
// it has finished
func (e *Engine) mixSource(s *source, start int64, n int) bool {
	end := start + int64(n)
	if s.stop >= 0 && s.stop <= start {
		return true
	}
	size := int64(len(s.data))
	if size == 0 {
		return true
	}
	dest, ok := e.nodes[s.dest]
	if !ok {
		return true
	}

	for i := 0; i < n; i++ {
		f := start + int64(i)
		if f < s.start {
			continue
		}
		if s.stop >= 0 && f >= s.stop {
			return true
		}
		pos := f - s.start
		if pos >= size {
			if !s.loop {
				return true
			}
			pos %= size
		}
		dest.buf[i] += s.data[pos]
	}
	return !s.loop && end-s.start >= size
}

// mixVoice adds a voice's samples and reports whether it is still
// sounding
func (e *Engine) mixVoice(v *voice, start int64, n int) bool {
	dest, ok := e.nodes[v.dest]
	if !ok {
		return false
	}
	size := int64(len(v.data))
	for i := 0; i < n; i++ {
		pos := start + int64(i) - v.start
		if pos < 0 {
			continue
		}
		if pos >= size {
			return false
		}
		dest.buf[i] += v.data[pos]
	}
	return start+int64(n)-v.start < size
}

// process applies gain, feeds the tap and passes the block downstream
func (e *Engine) process(nd *node, start int64) {
	if nd.kind == kindGain {
		for i := range nd.buf {
			f := start + int64(i)
			for len(nd.events) > 0 && nd.events[0].frame <= f {
				nd.gain = nd.events[0].value
				nd.events = nd.events[1:]
			}
			nd.buf[i] *= nd.gain
		}
	}
	if nd.tap != nil {
		nd.tap.write(nd.buf)
	}
	if next, ok := e.nodes[nd.to]; ok {
		for i, v := range nd.buf {
			next.buf[i] += v
		}
	}
}

func clampSample(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
