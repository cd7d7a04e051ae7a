package looper

import (
	"fmt"

	"github.com/go-audio/audio"
)

// Defaults for newly created tracks
const (
	DefaultTrackCount = 4
	DefaultVolume     = 0.8
	DefaultInputGain  = 1.0
)

// Status is where a track sits in the record/playback cycle
type Status int

const (
	StatusEmpty     Status = iota
	StatusArmed            // waiting for the next loop boundary to record
	StatusRecording        // capturing the current loop cycle
	StatusPlaying
	StatusStopped // has audio but is silent
)

var statusNames = [...]string{"EMPTY", "ARMED", "RECORDING", "PLAYING", "STOPPED"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Track holds all state for a single audio loop track
type Track struct {
	ID      int
	Status  Status
	Volume  float64
	Muted   bool
	Looping bool
	Buffer  *audio.FloatBuffer

	// runtime only
	source    SourceID
	sourcing  bool
	takes     uint64 // bumped on clear so in-flight takes are dropped
	awaitTake bool
}

// DrumTrack holds all state for a single percussion track
type DrumTrack struct {
	ID      int
	Name    string
	Pattern Pattern
	Volume  float64
	Muted   bool
}

// PlaybackState is the published position within the loop
type PlaybackState struct {
	Playing  bool
	Bar      int     // 1..bars
	Beat     int     // 1..beatsPerBar
	Step     int     // 0..stepsPerBar-1, highlighted drum step
	Progress float64 // 0..1 across the whole loop
	Time     float64 // audio clock at publish time
}

// State is the single authoritative looper state. Only the Manager
// touches it, under its lock.
type State struct {
	Settings   Settings
	Tracks     []*Track
	DrumTracks []*DrumTrack
	InputGain  float64
	Playback   PlaybackState
}

// NewState creates a state with the given number of empty tracks and
// one default drum track
func NewState(settings Settings, trackCount int) *State {
	s := &State{
		Settings:  settings.Clamp(),
		InputGain: DefaultInputGain,
		Playback:  PlaybackState{Bar: 1, Beat: 1},
	}

	for i := 0; i < trackCount; i++ {
		s.Tracks = append(s.Tracks, &Track{
			ID:      i,
			Status:  StatusEmpty,
			Volume:  DefaultVolume,
			Looping: true,
		})
	}

	s.DrumTracks = append(s.DrumTracks, NewDrumTrack(1, "Main Drums", s.Settings.StepsPerBar()))
	return s
}

// NewDrumTrack creates a drum track with an empty pattern
func NewDrumTrack(id int, name string, steps int) *DrumTrack {
	return &DrumTrack{
		ID:      id,
		Name:    name,
		Pattern: NewPattern(steps),
		Volume:  DefaultVolume,
	}
}

// Track returns the track with the given id
func (s *State) Track(id int) *Track {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// DrumTrack returns the drum track with the given id
func (s *State) DrumTrack(id int) *DrumTrack {
	for _, dt := range s.DrumTracks {
		if dt.ID == id {
			return dt
		}
	}
	return nil
}

// nextDrumID is one past the highest drum track id in use
func (s *State) nextDrumID() int {
	max := 0
	for _, dt := range s.DrumTracks {
		if dt.ID > max {
			max = dt.ID
		}
	}
	return max + 1
}

// TrackView is the published, read-only copy of a track
type TrackView struct {
	ID        int
	Status    Status
	Volume    float64
	Muted     bool
	Looping   bool
	HasBuffer bool
	Frames    int
	Pending   bool // a finished recording is still being decoded
}

// Snapshot is everything a UI needs to render one frame
type Snapshot struct {
	Settings   Settings
	Playback   PlaybackState
	Tracks     []TrackView
	DrumTracks []DrumTrack
	InputGain  float64
	InputReady bool
	Err        error
}

func (s *State) snapshot() *Snapshot {
	snap := &Snapshot{
		Settings:  s.Settings,
		Playback:  s.Playback,
		InputGain: s.InputGain,
	}
	for _, t := range s.Tracks {
		snap.Tracks = append(snap.Tracks, TrackView{
			ID:        t.ID,
			Status:    t.Status,
			Volume:    t.Volume,
			Muted:     t.Muted,
			Looping:   t.Looping,
			HasBuffer: t.Buffer != nil,
			Frames:    t.Buffer.NumFrames(),
			Pending:   t.awaitTake,
		})
	}
	for _, dt := range s.DrumTracks {
		snap.DrumTracks = append(snap.DrumTracks, *dt)
	}
	return snap
}
