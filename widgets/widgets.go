package widgets

import (
	"fmt"
	"math"
	"strings"

	"go-looper/looper"
	"go-looper/theme"

	"github.com/charmbracelet/lipgloss"
)

// StepRow renders one instrument row of a pattern. playhead and cursor
// are step indices, -1 for none.
func StepRow(th *theme.Theme, row []bool, playhead, cursor int, stepsPerBeat int) string {
	sym := th.Symbols
	dim := lipgloss.NewStyle().Foreground(th.Muted())
	hit := lipgloss.NewStyle().Foreground(th.Accent())
	head := lipgloss.NewStyle().Foreground(th.Success())
	cur := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)

	var out strings.Builder
	for i, on := range row {
		if i > 0 && stepsPerBeat > 0 && i%stepsPerBeat == 0 {
			out.WriteString(" ")
		}
		switch {
		case i == cursor && i == playhead:
			out.WriteString(cur.Render(string(sym.CursorPlayhead)))
		case i == cursor && on:
			out.WriteString(cur.Render(string(sym.CursorActive)))
		case i == cursor:
			out.WriteString(cur.Render(string(sym.CursorEmpty)))
		case i == playhead:
			out.WriteString(head.Render(string(sym.StepPlayhead)))
		case on:
			out.WriteString(hit.Render(string(sym.StepActive)))
		default:
			out.WriteString(dim.Render(string(sym.StepEmpty)))
		}
	}
	return out.String()
}

// Pattern renders every instrument row with its name. cursorRow and
// cursorStep select the edit cursor, -1 to hide it.
func Pattern(th *theme.Theme, p looper.Pattern, playhead, cursorRow, cursorStep int) string {
	label := lipgloss.NewStyle().Foreground(th.FG()).Width(8)
	var lines []string
	for _, inst := range looper.Instruments() {
		c := -1
		if int(inst) == cursorRow {
			c = cursorStep
		}
		lines = append(lines, label.Render(inst.String())+" "+
			StepRow(th, p.Row(inst), playhead, c, looper.StepsPerBeat))
	}
	return strings.Join(lines, "\n")
}

// Meter renders a level 0-1 as a horizontal bar
func Meter(th *theme.Theme, level float64, width int) string {
	if width <= 0 {
		return ""
	}
	level = math.Max(0, math.Min(1, level))
	n := int(math.Round(level * float64(width)))

	// each lit cell takes the colour of the level it stands for, and a
	// clipping meter lights up whole
	var out strings.Builder
	for i := 0; i < n; i++ {
		cell := float64(i+1) / float64(width)
		if level > theme.LevelClip {
			cell = level
		}
		out.WriteString(lipgloss.NewStyle().Foreground(th.Level(cell)).Render(string(th.Symbols.MeterFull)))
	}
	out.WriteString(lipgloss.NewStyle().Foreground(th.Muted()).Render(strings.Repeat(string(th.Symbols.MeterEmpty), width-n)))
	return out.String()
}

// Progress renders loop progress 0-1 with bar markers
func Progress(th *theme.Theme, progress float64, bars, width int) string {
	if width <= 0 {
		return ""
	}
	progress = math.Max(0, math.Min(1, progress))
	pos := int(progress * float64(width))
	if pos >= width {
		pos = width - 1
	}

	done := lipgloss.NewStyle().Foreground(th.Accent())
	rest := lipgloss.NewStyle().Foreground(th.Muted())

	var out strings.Builder
	for i := 0; i < width; i++ {
		ch := "─"
		if bars > 0 && i > 0 && (i*bars)%width < bars {
			ch = "┼" // bar line
		}
		switch {
		case i == pos:
			out.WriteString(done.Bold(true).Render("●"))
		case i < pos:
			out.WriteString(done.Render(ch))
		default:
			out.WriteString(rest.Render(ch))
		}
	}
	return out.String()
}

// Beats renders the beat position within the bar, 1-based beat
func Beats(th *theme.Theme, beat, beatsPerBar int, playing bool) string {
	on := lipgloss.NewStyle().Foreground(th.Success())
	off := lipgloss.NewStyle().Foreground(th.Muted())
	var parts []string
	for i := 1; i <= beatsPerBar; i++ {
		if playing && i == beat {
			parts = append(parts, on.Render(string(th.Symbols.Beat)))
		} else {
			parts = append(parts, off.Render(string(th.Symbols.BeatRest)))
		}
	}
	return strings.Join(parts, " ")
}

var waveRunes = []rune(" ▁▂▃▄▅▆▇█")

// Wave renders the peak of each of width slices of samples, oscilloscope
// style
func Wave(th *theme.Theme, samples []float64, width int) string {
	if width <= 0 {
		return ""
	}
	out := make([]rune, width)
	for i := range out {
		lo := i * len(samples) / width
		hi := (i + 1) * len(samples) / width
		peak := 0.0
		for _, s := range samples[lo:hi] {
			peak = math.Max(peak, math.Abs(s))
		}
		idx := int(math.Round(math.Min(peak, 1) * float64(len(waveRunes)-1)))
		out[i] = waveRunes[idx]
	}
	return lipgloss.NewStyle().Foreground(th.Accent()).Render(string(out))
}

// Volume renders a volume as a percentage
func Volume(v float64, muted bool) string {
	if muted {
		return "muted"
	}
	return fmt.Sprintf("%3.0f%%", v*100)
}
