package midi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go-looper/debug"
	"go-looper/looper"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Action is what a bound control does
type Action int

const (
	ActionTransport Action = iota
	ActionRecord
	ActionPlayStop
	ActionClear
	ActionMute
)

var actionNames = map[string]Action{
	"transport": ActionTransport,
	"record":    ActionRecord,
	"playstop":  ActionPlayStop,
	"clear":     ActionClear,
	"mute":      ActionMute,
}

func (a Action) String() string {
	for name, act := range actionNames {
		if act == a {
			return name
		}
	}
	return "unknown"
}

// Command is an action, with a 1-based track number for per-track actions
type Command struct {
	Action Action
	Track  int
}

func (c Command) String() string {
	if c.Action == ActionTransport {
		return c.Action.String()
	}
	return fmt.Sprintf("%s %d", c.Action, c.Track)
}

// ParseCommand reads "transport", "record 2", "playstop 1", ...
func ParseCommand(s string) (Command, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return Command{}, fault.New("empty command", ftag.With(ftag.InvalidArgument))
	}
	act, ok := actionNames[fields[0]]
	if !ok {
		return Command{}, fault.New(fmt.Sprintf("unknown command %q", s))
	}
	if act == ActionTransport {
		if len(fields) != 1 {
			return Command{}, fault.New(fmt.Sprintf("transport takes no track: %q", s))
		}
		return Command{Action: act}, nil
	}
	if len(fields) != 2 {
		return Command{}, fault.New(fmt.Sprintf("%s needs a track number: %q", fields[0], s))
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return Command{}, fault.New(fmt.Sprintf("bad track number in %q", s))
	}
	return Command{Action: act, Track: n}, nil
}

// ParseBindings turns the config control map (command -> note or CC
// number) into a lookup by number
func ParseBindings(controls map[string]uint8) (map[uint8]Command, error) {
	names := make([]string, 0, len(controls))
	for name := range controls {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[uint8]Command, len(controls))
	for _, name := range names {
		cmd, err := ParseCommand(name)
		if err != nil {
			return nil, fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With("parse midi controls"))
		}
		n := controls[name]
		if prev, dup := out[n]; dup {
			return nil, fault.New(fmt.Sprintf("note %d bound to both %q and %q", n, prev, cmd))
		}
		out[n] = cmd
	}
	return out, nil
}

// Footswitch drives the looper from a MIDI pedal board or pad controller.
// Note-on (velocity > 0) and control change (value >= 64) messages whose
// number is bound fire the bound command.
type Footswitch struct {
	id       string
	inPort   drivers.In
	stopFunc func()

	bindings map[uint8]Command
	target   Commander
	log      *log.Logger

	mu       sync.Mutex
	closed   bool
	noteChan chan NoteEvent
}

// NewFootswitch creates a footswitch controller. A nil inPort gives a
// controller that only responds to Handle.
func NewFootswitch(id string, inPort drivers.In, bindings map[uint8]Command, target Commander) (*Footswitch, error) {
	fs := &Footswitch{
		id:       id,
		inPort:   inPort,
		bindings: bindings,
		target:   target,
		log:      debug.For("footswitch"),
		noteChan: make(chan NoteEvent, 32),
	}

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			if ev, ok := ParseEvent(msg); ok {
				if err := fs.Handle(ev); err != nil {
					fs.log.Warn("command failed", "err", err)
				}
			}
		})
		if err != nil {
			return nil, fault.Wrap(err, ftag.With(looper.KindDevice), fmsg.With("open input"))
		}
		fs.stopFunc = stop
	}

	return fs, nil
}

// Handle runs the command bound to ev, if any
func (fs *Footswitch) Handle(ev Event) error {
	switch ev.Type {
	case NoteOn:
		if ev.Velocity == 0 {
			return nil
		}
	case CC:
		if ev.Velocity < 64 {
			return nil
		}
	default:
		return nil
	}

	cmd, ok := fs.bindings[ev.Note]
	if !ok {
		return nil
	}

	// A callback can still arrive after Close
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	select {
	case fs.noteChan <- NoteEvent{Note: ev.Note, Velocity: ev.Velocity, Channel: ev.Channel, Command: cmd}:
	default:
	}
	fs.mu.Unlock()
	fs.log.Debug("control", "note", ev.Note, "cmd", cmd.String())

	id := cmd.Track - 1 // track ids are 0-based
	switch cmd.Action {
	case ActionTransport:
		fs.target.ToggleTransport()
		return nil
	case ActionRecord:
		return fs.target.RequestRecord(id)
	case ActionPlayStop:
		return fs.target.RequestPlayStop(id)
	case ActionClear:
		return fs.target.RequestClear(id)
	case ActionMute:
		return fs.target.ToggleMute(id)
	}
	return nil
}

func (fs *Footswitch) ID() string {
	return fs.id
}

func (fs *Footswitch) Type() ControllerType {
	return ControllerFootswitch
}

func (fs *Footswitch) NoteEvents() <-chan NoteEvent {
	return fs.noteChan
}

// Close stops listening. Safe to call more than once.
func (fs *Footswitch) Close() error {
	if fs.stopFunc != nil {
		fs.stopFunc()
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if !fs.closed {
		fs.closed = true
		close(fs.noteChan)
	}
	return nil
}
