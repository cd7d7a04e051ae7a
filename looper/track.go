package looper

// Track state machine. Every status change happens here, either from a
// user command or from the loop boundary pass, always under the manager
// lock.

// ToggleTransport starts or stops global playback
func (m *Manager) ToggleTransport() {
	m.update(func() error {
		if m.sched.Running() {
			m.stopTransport()
		} else {
			m.startTransport()
		}
		return nil
	})
}

func (m *Manager) startTransport() {
	m.sched.Start(m.io.Now())
	m.state.Playback.Playing = true
	m.log.Info("transport started", "bpm", m.state.Settings.BPM, "loop", m.state.Settings.LoopDuration())
}

// stopTransport silences every source now and cuts any recording short.
// The short take is still decoded and padded to a full loop.
func (m *Manager) stopTransport() {
	now := m.io.Now()
	m.sched.Stop()

	for _, t := range m.state.Tracks {
		m.stopSource(t, now)
	}
	m.finishRecording(now)

	m.state.Playback.Playing = false
	m.log.Info("transport stopped")
}

// RequestRecord arms a track to record from the next loop boundary.
// Only one track is ever armed; a previously armed track falls back.
func (m *Manager) RequestRecord(id int) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "record")
		}
		if m.inputErr != nil {
			m.lastErr = m.inputErr
			return m.inputErr
		}

		if !m.sched.Running() {
			m.startTransport()
		}
		for _, other := range m.state.Tracks {
			if other != t && other.Status == StatusArmed {
				m.disarm(other)
			}
		}
		if t.Status != StatusRecording {
			t.Status = StatusArmed
		}
		m.log.Debug("armed", "track", id)
		return nil
	})
}

// disarm resolves an armed track to Playing if it has audio, else Empty
func (m *Manager) disarm(t *Track) {
	if t.Buffer != nil {
		t.Status = StatusPlaying
	} else {
		t.Status = StatusEmpty
	}
}

// RequestPlayStop toggles a track between playing and stopped. Stopping
// is immediate; resuming waits for the next loop boundary to stay in
// phase.
func (m *Manager) RequestPlayStop(id int) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "play/stop")
		}

		switch t.Status {
		case StatusPlaying:
			m.stopSource(t, m.io.Now())
			t.Status = StatusStopped
		case StatusStopped:
			t.Status = StatusPlaying
		case StatusArmed:
			m.disarm(t)
		case StatusRecording:
			m.finishRecording(m.io.Now())
		}
		return nil
	})
}

// RequestClear empties a track from any state
func (m *Manager) RequestClear(id int) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "clear")
		}

		now := m.io.Now()
		m.stopSource(t, now)
		if active, ok := m.rec.Active(); ok && active == id {
			m.rec.Discard(now)
		}
		t.takes++
		t.awaitTake = false
		t.Buffer = nil
		t.Status = StatusEmpty
		return nil
	})
}

// ToggleMute flips mute and pushes the gain right away
func (m *Manager) ToggleMute(id int) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "mute")
		}
		t.Muted = !t.Muted
		m.mixer.SetTrackGain(t.ID, t.Volume, t.Muted)
		return nil
	})
}

// SetVolume stores the volume; a muted track stays silent
func (m *Manager) SetVolume(id int, volume float64) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "volume")
		}
		t.Volume = clamp01(volume)
		m.mixer.SetTrackGain(t.ID, t.Volume, t.Muted)
		return nil
	})
}

// ToggleLoop flips looping, including on the source already playing
func (m *Manager) ToggleLoop(id int) error {
	return m.update(func() error {
		t := m.state.Track(id)
		if t == nil {
			return notFound(ErrUnknownTrack, "loop")
		}
		t.Looping = !t.Looping
		if t.sourcing {
			m.io.SetLooping(t.source, t.Looping)
		}
		return nil
	})
}

// boundary is the loop-start pass: restart playing tracks exactly at
// the boundary, then finish the recording that just completed a cycle,
// then start the armed one.
func (m *Manager) boundary(at float64) {
	for _, t := range m.state.Tracks {
		if t.Status == StatusPlaying && t.Buffer != nil {
			m.play(t, at)
		}
	}

	m.finishRecording(at)

	for _, t := range m.state.Tracks {
		if t.Status != StatusArmed {
			continue
		}
		if err := m.rec.Start(t.ID, t.takes, at); err != nil {
			m.fail(deviceErr(err, "start capture"), "capture failed")
			m.disarm(t)
			break
		}
		// the previous take stops where the new one begins
		m.stopSource(t, at)
		t.Status = StatusRecording
		m.log.Debug("recording", "track", t.ID, "at", at)
		break
	}
}

// finishRecording stops the active capture and marks its track playing
// while the take decodes
func (m *Manager) finishRecording(at float64) {
	trackID, ok := m.rec.Active()
	if !ok {
		return
	}
	m.rec.Finish(at, m.state.Settings.LoopDuration())

	if t := m.state.Track(trackID); t != nil {
		t.Status = StatusPlaying
		t.awaitTake = true
	}
	m.log.Debug("capture finished", "track", trackID, "at", at)
}

// applyTakes installs decoded recordings. A failed take leaves the old
// buffer in place.
func (m *Manager) applyTakes() {
	for _, take := range m.rec.Ready() {
		t := m.state.Track(take.TrackID)
		if t == nil || t.takes != take.gen {
			continue // cleared while decoding
		}
		t.awaitTake = false

		buf, err := take.Result()
		if err != nil {
			m.fail(err, "recording dropped")
			if t.Buffer == nil && t.Status == StatusPlaying {
				t.Status = StatusEmpty
			}
			continue
		}

		m.stopSource(t, m.io.Now())
		t.Buffer = buf
		m.log.Debug("take applied", "track", t.ID, "frames", buf.NumFrames())
	}
}

func (m *Manager) play(t *Track, at float64) {
	dest := m.mixer.TrackEntry(t.ID)
	if dest == NoNode {
		return
	}
	m.stopSource(t, at)
	t.source = m.io.SchedulePlayback(t.Buffer, at, t.Looping, dest)
	t.sourcing = true
}

func (m *Manager) stopSource(t *Track, at float64) {
	if !t.sourcing {
		return
	}
	m.io.Stop(t.source, at)
	t.sourcing = false
}
