package looper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-looper/debug"

	"github.com/charmbracelet/log"
)

// Tick rate of the runtime loop, roughly one call per display frame
const tickInterval = time.Second / 60

// Options configures a new Manager
type Options struct {
	Settings  Settings
	Tracks    int     // number of audio tracks, DefaultTrackCount when zero
	InputGain float64 // microphone gain, DefaultInputGain when zero
	InputErr  error   // microphone setup failure; recording is disabled
}

// Manager owns the looper state and drives the scheduler. Commands and
// ticks are serialized by one lock; readers only see published
// snapshots.
type Manager struct {
	mu    sync.Mutex
	io    AudioIO
	mixer *Mixer
	sched *Scheduler
	rec   *Recorder
	state *State

	snap atomic.Pointer[Snapshot]

	inputErr error
	lastErr  error
	log      *log.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager builds the state, allocates mixer channels for every track
// and publishes the first snapshot
func NewManager(io AudioIO, opts Options) *Manager {
	if opts.Tracks <= 0 {
		opts.Tracks = DefaultTrackCount
	}

	m := &Manager{
		io:         io,
		sched:      NewScheduler(),
		rec:        NewRecorder(io),
		state:      NewState(opts.Settings, opts.Tracks),
		log:        debug.For("looper"),
		UpdateChan: make(chan struct{}, 1),
	}
	if opts.InputGain > 0 {
		m.state.InputGain = opts.InputGain
	}

	m.mixer = NewMixer(io)
	for _, t := range m.state.Tracks {
		m.mixer.AddTrack(t.ID, t.Volume, t.Muted)
	}
	for _, dt := range m.state.DrumTracks {
		m.mixer.AddDrum(dt.ID, dt.Volume, dt.Muted)
	}
	m.mixer.SetMetronomeVolume(m.state.Settings.MetronomeVolume)
	m.mixer.SetInputGain(m.state.InputGain)

	if opts.InputErr != nil {
		m.inputErr = deviceErr(opts.InputErr, "open microphone")
		m.lastErr = m.inputErr
		m.log.Warn("recording disabled", "err", opts.InputErr)
	}

	m.publish()
	return m
}

// StartRuntime starts the tick goroutine (called once at startup)
func (m *Manager) StartRuntime() {
	m.stopChan = make(chan struct{})
	m.wg.Add(1)
	go m.tickLoop()
}

// Close stops the transport and the tick goroutine
func (m *Manager) Close() {
	m.mu.Lock()
	if m.sched.Running() {
		m.stopTransport()
	}
	m.mu.Unlock()

	if m.stopChan != nil {
		close(m.stopChan)
		m.wg.Wait()
		m.stopChan = nil
	}
}

func (m *Manager) tickLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick applies finished recordings, runs one scheduler pass and
// publishes the result. Safe to call while stopped.
func (m *Manager) Tick() {
	m.mu.Lock()
	m.applyTakes()
	now := m.io.Now()
	m.state.Playback = m.sched.Tick(now, m.state.Settings, tickEmitter{m})
	if pb := m.state.Playback; pb.Playing {
		debug.LogEvery(600, "tick", "now=%.3f bar=%d beat=%d step=%d", now, pb.Bar, pb.Beat, pb.Step)
	}
	m.publish()
	m.mu.Unlock()

	m.notify()
}

// tickEmitter turns scheduler events into audio calls. It runs with the
// manager lock held.
type tickEmitter struct {
	m *Manager
}

func (e tickEmitter) Beat(at float64, accented bool) {
	if e.m.state.Settings.MetronomeActive {
		e.m.io.PlayClick(at, accented, e.m.mixer.Metronome())
	}
}

func (e tickEmitter) Step(at float64, index int) {
	for _, dt := range e.m.state.DrumTracks {
		if dt.Muted {
			continue
		}
		dest := e.m.mixer.DrumEntry(dt.ID)
		if dest == NoNode {
			continue
		}
		for _, inst := range Instruments() {
			if dt.Pattern.Active(inst, index) {
				e.m.io.Synthesize(inst, at, dest)
			}
		}
	}
}

func (e tickEmitter) Boundary(at float64) {
	debug.Log("boundary", "loop starts at %.3f", at)
	e.m.boundary(at)
}

// Wait blocks until every finished capture has decoded, then applies
// them. Called after Close at shutdown so no decode outlives the device.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	pending := m.rec.Pending()
	m.mu.Unlock()

	for _, t := range pending {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.applyTakes()
	m.publish()
	m.mu.Unlock()
	m.notify()
	return nil
}

// Snapshot returns the latest published state. Never nil.
func (m *Manager) Snapshot() *Snapshot {
	return m.snap.Load()
}

// ClearError dismisses the last error
func (m *Manager) ClearError() {
	m.mu.Lock()
	m.lastErr = nil
	m.publish()
	m.mu.Unlock()
	m.notify()
}

// TrackAnalyser returns the analysis tap of an audio track
func (m *Manager) TrackAnalyser(id int) Analyser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.TrackAnalyser(id)
}

// DrumAnalyser returns the analysis tap of a drum track
func (m *Manager) DrumAnalyser(id int) Analyser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.DrumAnalyser(id)
}

// InputAnalyser returns the microphone meter
func (m *Manager) InputAnalyser() Analyser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.InputAnalyser()
}

// fail records a non-fatal error for the UI. Caller holds the lock.
func (m *Manager) fail(err error, msg string) {
	m.lastErr = err
	m.log.Error(msg, "err", err)
}

// publish stores a fresh snapshot. Caller holds the lock.
func (m *Manager) publish() {
	snap := m.state.snapshot()
	snap.InputReady = m.inputErr == nil
	snap.Err = m.lastErr
	m.snap.Store(snap)
}

func (m *Manager) notify() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// update runs a command under the lock, then publishes
func (m *Manager) update(fn func() error) error {
	m.mu.Lock()
	err := fn()
	m.publish()
	m.mu.Unlock()
	m.notify()
	return err
}
