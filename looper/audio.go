package looper

import (
	"github.com/go-audio/audio"
)

// NodeID identifies a node (gain or analysis tap) in the audio graph
type NodeID int

// SourceID identifies one scheduled buffer playback
type SourceID int

// CaptureID identifies one microphone capture
type CaptureID int

// NoNode is the zero-connection marker
const NoNode NodeID = -1

// Encoded is the result of finishing a capture: the encoded take or the
// reason it could not be produced.
type Encoded struct {
	Blob []byte
	Err  error
}

// Analyser is a read-only view of an analysis tap
type Analyser interface {
	Samples(n int) []float64 // most recent n samples, oldest first
	Level() float64          // RMS of the recent window, 0-1
}

// AudioIO is the audio rendering subsystem the looper drives. All times
// are seconds on the monotonic audio clock returned by Now.
type AudioIO interface {
	// Clock
	Now() float64
	SampleRate() int

	// Graph wiring. Only the Mixer calls these.
	Output() NodeID // master bus
	Input() NodeID  // microphone gain, feeds captures
	CreateGain() NodeID
	CreateAnalysisTap() NodeID
	Connect(src, dst NodeID)
	Disconnect(n NodeID) // detaches and releases the node
	SetGain(n NodeID, value, at float64)
	Analyser(n NodeID) Analyser

	// Playback
	SchedulePlayback(buf *audio.FloatBuffer, at float64, loop bool, dest NodeID) SourceID
	SetLooping(s SourceID, loop bool)
	Stop(s SourceID, at float64)
	Synthesize(inst Instrument, at float64, dest NodeID)
	PlayClick(at float64, accented bool, dest NodeID)

	// Capture. StopCapture resolves once the clock has passed at.
	StartCapture(at float64) (CaptureID, error)
	StopCapture(c CaptureID, at float64) <-chan Encoded
	Decode(blob []byte) (*audio.FloatBuffer, error)
}
