package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerFootswitch
)

func (t ControllerType) String() string {
	switch t {
	case ControllerFootswitch:
		return "footswitch"
	}
	return "unknown"
}

// NoteEvent is sent when a bound control fires
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	Command  Command
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Bound controls as they fire
	NoteEvents() <-chan NoteEvent

	// Lifecycle
	Close() error
}

// Commander is the looper surface a controller drives
type Commander interface {
	ToggleTransport()
	RequestRecord(id int) error
	RequestPlayStop(id int) error
	RequestClear(id int) error
	ToggleMute(id int) error
}
