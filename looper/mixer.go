package looper

// channel is the graph resources owned by one track or drum track
type channel struct {
	gain  NodeID
	tap   NodeID
	entry NodeID // where sources and voices connect
}

// Mixer is the only place graph nodes are created or released. Each live
// track and drum track id maps to exactly one channel.
//
//	audio track: source -> tap -> gain -> output
//	drum track:  voice -> gain -> tap -> output
//	metronome:   click -> gain -> output
//	input:       mic gain -> tap
type Mixer struct {
	io        AudioIO
	tracks    map[int]channel
	drums     map[int]channel
	metronome NodeID
	inputTap  NodeID
}

// NewMixer wires the metronome bus and the input meter
func NewMixer(io AudioIO) *Mixer {
	m := &Mixer{
		io:     io,
		tracks: make(map[int]channel),
		drums:  make(map[int]channel),
	}

	m.metronome = io.CreateGain()
	io.Connect(m.metronome, io.Output())

	m.inputTap = io.CreateAnalysisTap()
	io.Connect(io.Input(), m.inputTap)

	return m
}

func gainFor(volume float64, muted bool) float64 {
	if muted {
		return 0
	}
	return clamp01(volume)
}

// AddTrack allocates the channel for an audio track
func (m *Mixer) AddTrack(id int, volume float64, muted bool) {
	if _, ok := m.tracks[id]; ok {
		return
	}
	ch := channel{gain: m.io.CreateGain(), tap: m.io.CreateAnalysisTap()}
	ch.entry = ch.tap
	m.io.Connect(ch.tap, ch.gain)
	m.io.Connect(ch.gain, m.io.Output())
	m.io.SetGain(ch.gain, gainFor(volume, muted), m.io.Now())
	m.tracks[id] = ch
}

// AddDrum allocates the channel for a drum track
func (m *Mixer) AddDrum(id int, volume float64, muted bool) {
	if _, ok := m.drums[id]; ok {
		return
	}
	ch := channel{gain: m.io.CreateGain(), tap: m.io.CreateAnalysisTap()}
	ch.entry = ch.gain
	m.io.Connect(ch.gain, ch.tap)
	m.io.Connect(ch.tap, m.io.Output())
	m.io.SetGain(ch.gain, gainFor(volume, muted), m.io.Now())
	m.drums[id] = ch
}

func (m *Mixer) release(ch channel) {
	m.io.Disconnect(ch.gain)
	m.io.Disconnect(ch.tap)
}

// RemoveDrum releases a drum track's channel
func (m *Mixer) RemoveDrum(id int) {
	if ch, ok := m.drums[id]; ok {
		m.release(ch)
		delete(m.drums, id)
	}
}

// SetTrackGain pushes volume/mute for an audio track immediately
func (m *Mixer) SetTrackGain(id int, volume float64, muted bool) {
	if ch, ok := m.tracks[id]; ok {
		m.io.SetGain(ch.gain, gainFor(volume, muted), m.io.Now())
	}
}

// SetDrumGain pushes volume/mute for a drum track immediately
func (m *Mixer) SetDrumGain(id int, volume float64, muted bool) {
	if ch, ok := m.drums[id]; ok {
		m.io.SetGain(ch.gain, gainFor(volume, muted), m.io.Now())
	}
}

func (m *Mixer) SetMetronomeVolume(v float64) {
	m.io.SetGain(m.metronome, clamp01(v), m.io.Now())
}

// SetInputGain scales the microphone before capture and metering
func (m *Mixer) SetInputGain(v float64) {
	if v < 0 {
		v = 0
	}
	m.io.SetGain(m.io.Input(), v, m.io.Now())
}

// TrackEntry is where a track's playback sources connect
func (m *Mixer) TrackEntry(id int) NodeID {
	if ch, ok := m.tracks[id]; ok {
		return ch.entry
	}
	return NoNode
}

// DrumEntry is where a drum track's voices connect
func (m *Mixer) DrumEntry(id int) NodeID {
	if ch, ok := m.drums[id]; ok {
		return ch.entry
	}
	return NoNode
}

func (m *Mixer) Metronome() NodeID {
	return m.metronome
}

func (m *Mixer) TrackAnalyser(id int) Analyser {
	if ch, ok := m.tracks[id]; ok {
		return m.io.Analyser(ch.tap)
	}
	return nil
}

func (m *Mixer) DrumAnalyser(id int) Analyser {
	if ch, ok := m.drums[id]; ok {
		return m.io.Analyser(ch.tap)
	}
	return nil
}

func (m *Mixer) InputAnalyser() Analyser {
	return m.io.Analyser(m.inputTap)
}
