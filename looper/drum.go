package looper

import (
	"encoding/json"
	"fmt"
)

// Drum tracks only edit patterns here. Sound is produced by the step
// pass reading the pattern when a step comes due.

// ToggleStep flips one step of one instrument
func (m *Manager) ToggleStep(trackID int, inst Instrument, step int) error {
	return m.update(func() error {
		dt := m.state.DrumTrack(trackID)
		if dt == nil {
			return notFound(ErrUnknownDrumTrack, "toggle step")
		}
		if !dt.Pattern.Toggle(inst, step) {
			return invalid(ErrStepRange, fmt.Sprintf("%s step %d of %d", inst, step, dt.Pattern.Length))
		}
		return nil
	})
}

// ClearPattern turns every step of a drum track off
func (m *Manager) ClearPattern(trackID int) error {
	return m.update(func() error {
		dt := m.state.DrumTrack(trackID)
		if dt == nil {
			return notFound(ErrUnknownDrumTrack, "clear pattern")
		}
		dt.Pattern.Clear()
		return nil
	})
}

// AddDrumTrack appends an empty "Percussion N" track and returns its id
func (m *Manager) AddDrumTrack() int {
	var id int
	m.update(func() error {
		id = m.state.nextDrumID()
		dt := NewDrumTrack(id, fmt.Sprintf("Percussion %d", id), m.state.Settings.StepsPerBar())
		m.state.DrumTracks = append(m.state.DrumTracks, dt)
		m.mixer.AddDrum(dt.ID, dt.Volume, dt.Muted)
		return nil
	})
	return id
}

// RemoveDrumTrack deletes a drum track and releases its channel
func (m *Manager) RemoveDrumTrack(trackID int) error {
	return m.update(func() error {
		for i, dt := range m.state.DrumTracks {
			if dt.ID == trackID {
				m.state.DrumTracks = append(m.state.DrumTracks[:i], m.state.DrumTracks[i+1:]...)
				m.mixer.RemoveDrum(trackID)
				return nil
			}
		}
		return notFound(ErrUnknownDrumTrack, "remove drum track")
	})
}

func (m *Manager) SetDrumVolume(trackID int, volume float64) error {
	return m.update(func() error {
		dt := m.state.DrumTrack(trackID)
		if dt == nil {
			return notFound(ErrUnknownDrumTrack, "drum volume")
		}
		dt.Volume = clamp01(volume)
		m.mixer.SetDrumGain(dt.ID, dt.Volume, dt.Muted)
		return nil
	})
}

func (m *Manager) ToggleDrumMute(trackID int) error {
	return m.update(func() error {
		dt := m.state.DrumTrack(trackID)
		if dt == nil {
			return notFound(ErrUnknownDrumTrack, "drum mute")
		}
		dt.Muted = !dt.Muted
		m.mixer.SetDrumGain(dt.ID, dt.Volume, dt.Muted)
		return nil
	})
}

// ExportPattern serializes a drum track's pattern as JSON
func (m *Manager) ExportPattern(trackID int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dt := m.state.DrumTrack(trackID)
	if dt == nil {
		return nil, notFound(ErrUnknownDrumTrack, "export pattern")
	}
	return json.Marshal(dt.Pattern)
}

// ImportPattern replaces a drum track's pattern. The imported rows are
// fitted to the current time signature.
func (m *Manager) ImportPattern(trackID int, data []byte) error {
	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return invalid(err, "import pattern")
	}

	return m.update(func() error {
		dt := m.state.DrumTrack(trackID)
		if dt == nil {
			return notFound(ErrUnknownDrumTrack, "import pattern")
		}
		p.Resize(m.state.Settings.StepsPerBar())
		dt.Pattern = p
		return nil
	})
}

// Settings changes. Every one goes through applySettings so pattern
// lengths and loop timing change together.

func (m *Manager) SetTempo(bpm int) {
	m.editSettings(func(s *Settings) { s.BPM = bpm })
}

func (m *Manager) SetBeatsPerBar(beats int) {
	m.editSettings(func(s *Settings) { s.BeatsPerBar = beats })
}

func (m *Manager) SetBars(bars int) {
	m.editSettings(func(s *Settings) { s.Bars = bars })
}

func (m *Manager) SetMetronome(active bool) {
	m.editSettings(func(s *Settings) { s.MetronomeActive = active })
}

func (m *Manager) SetMetronomeVolume(v float64) {
	m.editSettings(func(s *Settings) { s.MetronomeVolume = v })
}

func (m *Manager) editSettings(fn func(*Settings)) {
	m.update(func() error {
		next := m.state.Settings
		fn(&next)
		m.applySettings(next.Clamp())
		return nil
	})
}

// applySettings swaps in new settings and resizes every pattern in the
// same critical section, so no tick sees a stale row length
func (m *Manager) applySettings(next Settings) {
	prev := m.state.Settings
	m.state.Settings = next

	if next.StepsPerBar() != prev.StepsPerBar() {
		for _, dt := range m.state.DrumTracks {
			dt.Pattern.Resize(next.StepsPerBar())
		}
	}
	if next.MetronomeVolume != prev.MetronomeVolume {
		m.mixer.SetMetronomeVolume(next.MetronomeVolume)
	}
	if next != prev {
		m.log.Debug("settings", "bpm", next.BPM, "beats", next.BeatsPerBar, "bars", next.Bars, "loop", next.LoopDuration())
	}
}

// SetInputGain sets the microphone gain ahead of capture and metering
func (m *Manager) SetInputGain(gain float64) {
	m.update(func() error {
		if gain < 0 {
			gain = 0
		}
		m.state.InputGain = gain
		m.mixer.SetInputGain(gain)
		return nil
	})
}
