package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is one outgoing or incoming MIDI event
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8 // 0-15
	Note     uint8 // note or controller number
	Velocity uint8 // velocity or controller value
}

// Message converts the event to a wire message
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Note)
	case CC:
		return gomidi.ControlChange(e.Channel, e.Note, e.Velocity)
	}
	return nil
}

// ParseEvent reads note and control messages. Note-on with velocity 0 is
// reported as note-off.
func ParseEvent(msg gomidi.Message) (Event, bool) {
	var ch, key, val uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &val):
		if val == 0 {
			return Event{Type: NoteOff, Channel: ch, Note: key}, true
		}
		return Event{Type: NoteOn, Channel: ch, Note: key, Velocity: val}, true
	case msg.GetNoteOff(&ch, &key, &val):
		return Event{Type: NoteOff, Channel: ch, Note: key, Velocity: val}, true
	case msg.GetControlChange(&ch, &key, &val):
		return Event{Type: CC, Channel: ch, Note: key, Velocity: val}, true
	}
	return Event{}, false
}
