package tui

import (
	"errors"
	"strings"
	"testing"

	"go-looper/engine"
	"go-looper/looper"
	"go-looper/theme"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := looper.NewManager(engine.New(1000), looper.Options{Settings: looper.DefaultSettings()})
	t.Cleanup(m.Close)
	return NewModel(m, nil, theme.New(nil))
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestTrackKeys(t *testing.T) {
	m := press(newTestModel(t), "2", "r")

	snap := m.Manager.Snapshot()
	if !snap.Playback.Playing {
		t.Error("record did not start the transport")
	}
	if snap.Tracks[1].Status != looper.StatusArmed {
		t.Errorf("track 2 = %s, want ARMED", snap.Tracks[1].Status)
	}

	m = press(m, "m", "]")
	tv := m.Manager.Snapshot().Tracks[1]
	if !tv.Muted || tv.Volume <= looper.DefaultVolume {
		t.Errorf("track 2 = %+v", tv)
	}
}

func TestDrumKeys(t *testing.T) {
	m := press(newTestModel(t), "tab", "down", "right", "enter")

	p := m.Manager.Snapshot().DrumTracks[0].Pattern
	if !p.Active(looper.Snare, 1) {
		t.Error("step not toggled under cursor")
	}

	m = press(m, "n")
	if n := len(m.Manager.Snapshot().DrumTracks); n != 2 || m.drum != 1 {
		t.Errorf("drum tracks = %d, selected %d", n, m.drum)
	}
	m = press(m, "c")
	if !m.Manager.Snapshot().DrumTracks[1].Pattern.Empty() {
		t.Error("clear pattern")
	}
}

func TestCopyPastePattern(t *testing.T) {
	m := press(newTestModel(t), "tab", "down", "right", "enter", "y")
	if m.clipboard == nil {
		t.Fatal("nothing copied")
	}

	m = press(m, "n", "p")
	drums := m.Manager.Snapshot().DrumTracks
	if len(drums) != 2 || m.drum != 1 {
		t.Fatalf("drum tracks = %d, selected %d", len(drums), m.drum)
	}
	if !drums[1].Pattern.Active(looper.Snare, 1) {
		t.Error("pattern not pasted into the new track")
	}
}

func TestDismissError(t *testing.T) {
	mgr := looper.NewManager(engine.New(1000), looper.Options{
		Settings: looper.DefaultSettings(),
		InputErr: errors.New("no microphone"),
	})
	t.Cleanup(mgr.Close)
	m := NewModel(mgr, nil, theme.New(nil))
	if mgr.Snapshot().Err == nil {
		t.Fatal("input error not reported")
	}

	m = press(m, "e")
	if err := m.Manager.Snapshot().Err; err != nil {
		t.Errorf("error still shown: %v", err)
	}
	if m.Manager.Snapshot().InputReady {
		t.Error("dismissing the error re-enabled recording")
	}
}

func TestSettingsKeys(t *testing.T) {
	m := press(newTestModel(t), "+", "b", "B", "t")
	set := m.Manager.Snapshot().Settings
	if set.BPM != looper.DefaultBPM+tempoStep || set.BeatsPerBar != 5 || set.Bars != 8 || !set.MetronomeActive {
		t.Errorf("settings = %+v", set)
	}
	if got := len(m.Manager.Snapshot().DrumTracks[0].Pattern.Row(looper.Kick)); got != 20 {
		t.Errorf("row length = %d, want 20", got)
	}
	if nextBars(8) != 1 {
		t.Error("bars should wrap")
	}
}

func TestViewRendersState(t *testing.T) {
	m := press(newTestModel(t), "1", "r")
	out := m.View()
	for _, want := range []string{"go-looper", "Track 1", "ARMED", "Main Drums", "KICK"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || next.(Model).View() != "" {
		t.Error("ctrl+c did not quit")
	}
}
