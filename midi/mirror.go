package midi

import (
	"time"

	"go-looper/looper"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// gate is how long mirrored notes are held
const gate = 100 * time.Millisecond

// Mirror wraps an audio layer and repeats every drum hit and metronome
// click as a note on a MIDI port, so an external drum machine can follow
// the looper. Everything else passes straight through.
type Mirror struct {
	looper.AudioIO

	send    func(gomidi.Message) error
	channel uint8
	kit     DrumKit

	// after runs f once d has passed; time.AfterFunc outside tests
	after func(d time.Duration, f func())
}

// NewMirror mirrors onto send using the given kit and channel (1-16)
func NewMirror(io looper.AudioIO, send func(gomidi.Message) error, kit DrumKit, channel int) *Mirror {
	if channel < 1 || channel > 16 {
		channel = 10
	}
	return &Mirror{
		AudioIO: io,
		send:    send,
		channel: uint8(channel - 1),
		kit:     kit,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func (m *Mirror) Synthesize(inst looper.Instrument, at float64, dest looper.NodeID) {
	m.AudioIO.Synthesize(inst, at, dest)
	m.note(at, m.kit.Note(inst), 100)
}

func (m *Mirror) PlayClick(at float64, accented bool, dest looper.NodeID) {
	m.AudioIO.PlayClick(at, accented, dest)
	if accented {
		m.note(at, m.kit.Accent, 127)
	} else {
		m.note(at, m.kit.Click, 80)
	}
}

// note sends note-on when the audio clock reaches at, note-off a gate
// later
func (m *Mirror) note(at float64, note, velocity uint8) {
	if m.send == nil {
		return
	}
	delay := time.Duration((at - m.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	on := Event{Type: NoteOn, Channel: m.channel, Note: note, Velocity: velocity}
	off := Event{Type: NoteOff, Channel: m.channel, Note: note}

	m.after(delay, func() {
		m.send(on.Message())
		m.after(gate, func() {
			m.send(off.Message())
		})
	})
}
