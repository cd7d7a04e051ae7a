package widgets

import (
	"strings"
	"testing"

	"go-looper/looper"
	"go-looper/theme"

	"github.com/charmbracelet/lipgloss"
)

func TestStepRow(t *testing.T) {
	th := theme.New(nil)
	row := []bool{true, false, false, false, true, false, false, false}
	out := StepRow(th, row, 1, -1, 4)

	if got := strings.Count(out, string(th.Symbols.StepActive)); got != 2 {
		t.Errorf("active steps = %d, want 2", got)
	}
	if !strings.Contains(out, string(th.Symbols.StepPlayhead)) {
		t.Error("playhead missing")
	}
	// eight steps plus one beat gap
	if w := lipgloss.Width(out); w != 9 {
		t.Errorf("width = %d, want 9", w)
	}

	out = StepRow(th, row, -1, 0, 4)
	if !strings.Contains(out, string(th.Symbols.CursorActive)) {
		t.Error("cursor on active step missing")
	}
}

func TestPatternHasEveryInstrument(t *testing.T) {
	th := theme.New(nil)
	p := looper.NewPattern(16)
	out := Pattern(th, p, -1, -1, -1)
	if n := len(strings.Split(out, "\n")); n != int(looper.NumInstruments) {
		t.Errorf("rows = %d", n)
	}
	for _, inst := range looper.Instruments() {
		if !strings.Contains(out, inst.String()) {
			t.Errorf("%s row missing", inst)
		}
	}
}

func TestMeterAndProgressWidth(t *testing.T) {
	th := theme.New(nil)
	for _, lvl := range []float64{-1, 0, 0.5, 1, 3} {
		if w := lipgloss.Width(Meter(th, lvl, 10)); w != 10 {
			t.Errorf("meter(%v) width = %d", lvl, w)
		}
	}
	m := Meter(th, 0.5, 10)
	if strings.Count(m, string(th.Symbols.MeterFull)) != 5 {
		t.Errorf("meter 0.5 = %q", m)
	}
	for _, p := range []float64{0, 0.5, 1} {
		if w := lipgloss.Width(Progress(th, p, 4, 32)); w != 32 {
			t.Errorf("progress(%v) width = %d", p, w)
		}
	}
}

func TestWave(t *testing.T) {
	th := theme.New(nil)
	out := Wave(th, []float64{0, 0, 1, -1}, 2)
	if !strings.Contains(out, " █") {
		t.Errorf("wave = %q", out)
	}
	if w := lipgloss.Width(Wave(th, nil, 5)); w != 5 {
		t.Errorf("empty wave width = %d", w)
	}
}

func TestBeats(t *testing.T) {
	th := theme.New(nil)
	out := Beats(th, 2, 4, true)
	if strings.Count(out, string(th.Symbols.Beat)) != 1 || strings.Count(out, string(th.Symbols.BeatRest)) != 3 {
		t.Errorf("beats = %q", out)
	}
}
