package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-looper/debug"
	"go-looper/looper"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// scanTimeout bounds a port listing; CoreMIDI can hang
const scanTimeout = 3 * time.Second

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// OpenFunc builds a controller for a newly seen input port
type OpenFunc func(id string, in drivers.In) (Controller, error)

// DeviceManager handles hot-plug detection of MIDI controllers. Input
// ports whose name contains match are opened with open; ports that
// disappear are closed.
type DeviceManager struct {
	match string
	open  OpenFunc
	ports func() []drivers.In

	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	log         *log.Logger
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(match string, open OpenFunc) *DeviceManager {
	return &DeviceManager{
		match: strings.ToLower(match),
		open:  open,
		ports: func() []drivers.In {
			return gomidi.GetInPorts()
		},
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		log:         debug.For("midi"),
	}
}

// FootswitchOpener opens every matched port as a footswitch driving target
func FootswitchOpener(bindings map[uint8]Command, target Commander) OpenFunc {
	return func(id string, in drivers.In) (Controller, error) {
		return NewFootswitch(id, in, bindings, target)
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	copy := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		copy[k] = v
	}
	return copy
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- dm.ports()
	}()

	var inPorts []drivers.In
	select {
	case inPorts = <-ch:
	case <-time.After(scanTimeout):
		// User needs to run: sudo killall coreaudiod midiserver
		dm.log.Warn("midi port scan timed out")
		return
	}

	seenIDs := make(map[string]bool)

	for _, inPort := range inPorts {
		id := inPort.String()
		if !dm.matches(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		c, err := dm.open(id, inPort)
		if err != nil {
			dm.log.Warn("open controller", "port", id, "err", err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = c
		dm.mu.Unlock()

		dm.log.Info("controller connected", "port", id)
		dm.emit(DeviceEvent{Type: DeviceConnected, Controller: c, ID: id})
	}

	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		dm.log.Info("controller disconnected", "port", id)
		dm.emit(DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	dm.mu.Unlock()
}

func (dm *DeviceManager) matches(name string) bool {
	return dm.match != "" && strings.Contains(strings.ToLower(name), dm.match)
}

// emit drops the event if nobody is listening
func (dm *DeviceManager) emit(ev DeviceEvent) {
	select {
	case dm.events <- ev:
	default:
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// OpenOutput finds an output port whose name contains name and returns a
// sender for it, plus a func that closes the port
func OpenOutput(name string) (func(gomidi.Message) error, func(), error) {
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, nil, fault.Wrap(err,
			ftag.With(looper.KindDevice),
			fmsg.WithDesc("find midi output", "MIDI output port "+name+" not found"))
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, nil, fault.Wrap(err,
			ftag.With(looper.KindDevice),
			fmsg.WithDesc("open midi output", "Could not open MIDI output "+name))
	}
	return send, func() { out.Close() }, nil
}

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}
