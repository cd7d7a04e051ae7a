package looper

import "math"

// Scheduling windows, in seconds of audio clock
const (
	Lookahead  = 0.1  // how far ahead events are committed
	resyncLead = 0.1  // cursor offset after a bootstrap resync
	startLead  = 0.05 // cursor offset when transport starts

	positionEpsilon = 1e-9
)

// Emitter receives the events a tick finds due. Times are absolute audio
// clock seconds. They are normally ahead of the tick's now, but a stall
// shorter than one loop replays the backlog with times already past.
type Emitter interface {
	Beat(at float64, accented bool)
	Step(at float64, index int)
	Boundary(at float64)
}

// Scheduler is the loop clock. It owns its cursors and counters and only
// changes them inside Start and Tick.
type Scheduler struct {
	running bool
	started bool // cursors have been set at least once

	loopStart     float64 // start of the cycle now is in
	nextLoopStart float64
	nextBeatTime  float64
	nextStepTime  float64
	beatCount     int64
	stepCount     int64
	loopDuration  float64
}

// NewScheduler returns a stopped scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start puts every cursor just ahead of now so the first downbeat is
// never already in the past
func (s *Scheduler) Start(now float64) {
	s.running = true
	s.started = true
	s.reset(now + startLead)
}

// Stop halts the clock. The cursors are re-seeded on the next Start.
func (s *Scheduler) Stop() {
	s.running = false
}

// Running reports whether ticks do anything
func (s *Scheduler) Running() bool {
	return s.running
}

// NextLoopStart is the time of the next loop boundary not yet emitted
func (s *Scheduler) NextLoopStart() float64 {
	return s.nextLoopStart
}

func (s *Scheduler) reset(at float64) {
	s.loopStart = at
	s.nextLoopStart = at
	s.nextBeatTime = at
	s.nextStepTime = at
	s.beatCount = 0
	s.stepCount = 0
}

// Tick emits every beat and step due before now+Lookahead, then at most
// one loop boundary, and returns the position within the loop. Settings
// are read fresh every call so a tempo change shows up in the next
// increment, never retroactively.
func (s *Scheduler) Tick(now float64, set Settings, e Emitter) PlaybackState {
	if !s.running {
		return PlaybackState{Bar: 1, Beat: 1, Time: now}
	}

	s.loopDuration = set.LoopDuration()

	// A cursor a whole loop behind means the clock was suspended; skip
	// the backlog instead of firing it.
	if !s.started || now-s.nextLoopStart > s.loopDuration {
		s.started = true
		s.reset(now + resyncLead)
	}

	ps := s.position(now, set)

	horizon := now + Lookahead
	spb := set.SecondsPerBeat()
	for s.nextBeatTime < horizon {
		e.Beat(s.nextBeatTime, s.beatCount%int64(set.BeatsPerBar) == 0)
		s.nextBeatTime += spb
		s.beatCount++
	}

	sps := set.SecondsPerStep()
	stepsPerBar := int64(set.StepsPerBar())
	for s.nextStepTime < horizon {
		e.Step(s.nextStepTime, int(s.stepCount%stepsPerBar))
		s.nextStepTime += sps
		s.stepCount++
	}

	if s.nextLoopStart < horizon {
		e.Boundary(s.nextLoopStart)
		s.loopStart = s.nextLoopStart
		s.nextLoopStart += s.loopDuration
	}

	return ps
}

// position derives bar, beat, highlighted step and progress from the
// start of the current loop cycle
func (s *Scheduler) position(now float64, set Settings) PlaybackState {
	// Before the first boundary of a cycle is emitted the cursor still
	// points at it, so measure from one loop earlier.
	loopStart := s.loopStart
	if loopStart > now+positionEpsilon {
		loopStart -= s.loopDuration
	}
	elapsed := math.Mod(now-loopStart, s.loopDuration)
	if elapsed < 0 {
		elapsed += s.loopDuration
	}
	// Rounding on a downbeat must not read as the last step of the loop
	if elapsed < positionEpsilon || s.loopDuration-elapsed < positionEpsilon {
		elapsed = 0
	}
	progress := elapsed / s.loopDuration

	totalBeats := set.Bars * set.BeatsPerBar
	beatIdx := int(math.Floor(progress * float64(totalBeats)))
	if beatIdx >= totalBeats {
		beatIdx = totalBeats - 1
	}

	stepsPerBar := set.StepsPerBar()
	stepIdx := int(math.Floor(progress*float64(set.Bars*stepsPerBar))) % stepsPerBar

	return PlaybackState{
		Playing:  true,
		Bar:      beatIdx/set.BeatsPerBar + 1,
		Beat:     beatIdx%set.BeatsPerBar + 1,
		Step:     stepIdx,
		Progress: progress,
		Time:     now,
	}
}
