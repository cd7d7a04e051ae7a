package looper

import (
	"errors"
	"testing"
)

func TestTimeSignatureResizesEveryPattern(t *testing.T) {
	m, _ := newTestManager(t)
	second := m.AddDrumTrack()

	m.ToggleStep(1, Kick, 3)
	m.ToggleStep(1, Kick, 15)
	m.ToggleStep(second, Snare, 2)

	m.SetBeatsPerBar(3)
	snap := m.Snapshot()
	if snap.Settings.LoopDuration() != 6 {
		t.Errorf("loop duration = %v, want 6", snap.Settings.LoopDuration())
	}
	for _, dt := range snap.DrumTracks {
		if dt.Pattern.Length != 12 {
			t.Fatalf("drum %d length = %d, want 12", dt.ID, dt.Pattern.Length)
		}
		for _, inst := range Instruments() {
			if n := len(dt.Pattern.Row(inst)); n != 12 {
				t.Fatalf("drum %d %s row = %d", dt.ID, inst, n)
			}
		}
	}
	if !snap.DrumTracks[0].Pattern.Active(Kick, 3) || !snap.DrumTracks[1].Pattern.Active(Snare, 2) {
		t.Error("steps below the new length were lost")
	}

	m.SetBeatsPerBar(7)
	snap = m.Snapshot()
	if snap.DrumTracks[0].Pattern.Length != 28 || snap.DrumTracks[0].Pattern.Active(Kick, 15) {
		t.Errorf("regrown pattern: length %d, step 15 %v", snap.DrumTracks[0].Pattern.Length,
			snap.DrumTracks[0].Pattern.Active(Kick, 15))
	}

	// new tracks pick up the current length
	third := m.AddDrumTrack()
	for _, dt := range m.Snapshot().DrumTracks {
		if dt.ID == third && dt.Pattern.Length != 28 {
			t.Errorf("new drum length = %d, want 28", dt.Pattern.Length)
		}
	}
}

func TestStepPassPlaysActiveSteps(t *testing.T) {
	m, io := newTestManager(t)
	second := m.AddDrumTrack()

	m.ToggleStep(1, Kick, 0)
	m.ToggleStep(1, HiHat, 0)
	m.ToggleStep(1, Snare, 4)
	m.ToggleStep(second, Crash, 0)
	m.ToggleDrumMute(second)

	io.set(0)
	m.ToggleTransport()
	for now := 0.0; now < 0.7; now += 1.0 / 60 {
		io.set(now)
		m.Tick()
	}

	dest := m.mixer.DrumEntry(1)
	var kicks, hats, snares int
	for _, h := range io.hits {
		if h.dest != dest {
			t.Fatalf("hit %s routed to %d, want %d", h.inst, h.dest, dest)
		}
		switch h.inst {
		case Kick:
			kicks++
			if !approx(h.at, 0.05) {
				t.Errorf("kick at %v", h.at)
			}
		case HiHat:
			hats++
		case Snare:
			snares++
			if !approx(h.at, 0.55) {
				t.Errorf("snare at %v, want 0.55", h.at)
			}
		default:
			t.Errorf("unexpected %s (muted track?)", h.inst)
		}
	}
	if kicks != 1 || hats != 1 || snares != 1 {
		t.Errorf("kicks %d hats %d snares %d", kicks, hats, snares)
	}
}

func TestMetronomeClicks(t *testing.T) {
	m, io := newTestManager(t)
	m.SetMetronome(true)
	m.SetMetronomeVolume(0.7)
	if io.gain(m.mixer.Metronome()) != 0.7 {
		t.Errorf("metronome gain = %v", io.gain(m.mixer.Metronome()))
	}

	io.set(0)
	m.ToggleTransport()
	for now := 0.0; now < 2.3; now += 1.0 / 60 {
		io.set(now)
		m.Tick()
	}
	if len(io.clicks) != 5 {
		t.Fatalf("clicks = %d, want 5", len(io.clicks))
	}
	for i, c := range io.clicks {
		if c.accented != (i%4 == 0) || c.dest != m.mixer.Metronome() {
			t.Errorf("click %d: %+v", i, c)
		}
	}

	m.SetMetronome(false)
	n := len(io.clicks)
	io.set(3)
	m.Tick()
	if len(io.clicks) != n {
		t.Error("click while metronome off")
	}
}

func TestToggleThenClearPattern(t *testing.T) {
	m, _ := newTestManager(t)
	m.ToggleStep(1, Clap, 5)
	m.ToggleStep(1, Tom, 7)

	if err := m.ClearPattern(1); err != nil {
		t.Fatal(err)
	}
	once := m.Snapshot().DrumTracks[0].Pattern
	m.ClearPattern(1)
	twice := m.Snapshot().DrumTracks[0].Pattern

	if !once.Empty() || once != twice {
		t.Error("clear is not idempotent")
	}
	if err := m.ClearPattern(7); !errors.Is(err, ErrUnknownDrumTrack) {
		t.Errorf("clear unknown: %v", err)
	}
}

func TestAddRemoveDrumTracks(t *testing.T) {
	m, io := newTestManager(t)

	a := m.AddDrumTrack()
	b := m.AddDrumTrack()
	if a != 2 || b != 3 {
		t.Fatalf("ids %d %d, want 2 3", a, b)
	}
	snap := m.Snapshot()
	if snap.DrumTracks[1].Name != "Percussion 2" || snap.DrumTracks[2].Name != "Percussion 3" {
		t.Errorf("names %q %q", snap.DrumTracks[1].Name, snap.DrumTracks[2].Name)
	}

	ch := m.mixer.drums[a]
	if err := m.RemoveDrumTrack(a); err != nil {
		t.Fatal(err)
	}
	if !io.released[ch.gain] || !io.released[ch.tap] {
		t.Error("channel nodes not released")
	}
	if m.mixer.DrumEntry(a) != NoNode || m.DrumAnalyser(a) != nil {
		t.Error("removed drum still routed")
	}
	if err := m.RemoveDrumTrack(a); !errors.Is(err, ErrUnknownDrumTrack) {
		t.Errorf("double remove: %v", err)
	}

	// ids keep climbing from the highest in use
	if c := m.AddDrumTrack(); c != 4 {
		t.Errorf("next id = %d, want 4", c)
	}
}

func TestDrumVolumeAndMute(t *testing.T) {
	m, io := newTestManager(t)
	gain := m.mixer.drums[1].gain

	m.SetDrumVolume(1, 0.25)
	if io.gain(gain) != 0.25 {
		t.Errorf("gain = %v", io.gain(gain))
	}
	m.ToggleDrumMute(1)
	if io.gain(gain) != 0 || !m.Snapshot().DrumTracks[0].Muted {
		t.Error("mute not applied")
	}
	m.ToggleDrumMute(1)
	if io.gain(gain) != 0.25 {
		t.Errorf("unmute gain = %v", io.gain(gain))
	}
}

func TestExportImportPattern(t *testing.T) {
	m, _ := newTestManager(t)
	m.ToggleStep(1, Kick, 0)
	m.ToggleStep(1, Cowbell, 13)

	data, err := m.ExportPattern(1)
	if err != nil {
		t.Fatal(err)
	}
	other := m.AddDrumTrack()
	if err := m.ImportPattern(other, data); err != nil {
		t.Fatal(err)
	}
	snap := m.Snapshot()
	if snap.DrumTracks[0].Pattern != snap.DrumTracks[1].Pattern {
		t.Error("imported pattern differs from export")
	}

	// a 3/4 pattern imported into 4/4 is padded
	m.SetBeatsPerBar(3)
	short, _ := m.ExportPattern(1)
	m.SetBeatsPerBar(4)
	if err := m.ImportPattern(other, short); err != nil {
		t.Fatal(err)
	}
	if got := m.Snapshot().DrumTracks[1].Pattern.Length; got != 16 {
		t.Errorf("imported length = %d, want 16", got)
	}

	if err := m.ImportPattern(other, []byte(`{"KICK":[true],"SNARE":[]}`)); err == nil {
		t.Error("ragged import accepted")
	}
}

func TestSetInputGain(t *testing.T) {
	m, io := newTestManager(t)
	if io.gain(fakeInput) != DefaultInputGain {
		t.Errorf("initial input gain = %v", io.gain(fakeInput))
	}
	m.SetInputGain(1.8)
	if io.gain(fakeInput) != 1.8 || m.Snapshot().InputGain != 1.8 {
		t.Errorf("input gain = %v", io.gain(fakeInput))
	}
	m.SetInputGain(-1)
	if io.gain(fakeInput) != 0 {
		t.Errorf("negative gain = %v", io.gain(fakeInput))
	}
}

func TestSettingsClampedOnSet(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetTempo(999)
	m.SetBars(5)
	s := m.Snapshot().Settings
	if s.BPM != MaxBPM || s.Bars != 4 {
		t.Errorf("settings = %+v", s)
	}
	m.SetTempo(90)
	m.SetBeatsPerBar(5)
	m.SetBars(2)
	s = m.Snapshot().Settings
	if s.BPM != 90 || s.BeatsPerBar != 5 || s.Bars != 2 || m.Snapshot().DrumTracks[0].Pattern.Length != 20 {
		t.Errorf("settings = %+v", s)
	}
}
