package tui

import (
	"fmt"
	"strings"

	"go-looper/looper"
	"go-looper/midi"
	"go-looper/theme"
	"go-looper/widgets"

	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focus int

const (
	focusTracks focus = iota
	focusDrums
)

const (
	volumeStep = 0.05
	tempoStep  = 5
	gainStep   = 0.1
	meterWidth = 16
	waveWidth  = 32
)

type Model struct {
	Manager   *looper.Manager
	DeviceMgr *midi.DeviceManager // nil when no footswitch is configured
	Theme     *theme.Theme

	keys keyMap
	help help.Model

	focus      focus
	track      int // selected track index
	drum       int // selected drum track index
	cursorRow  int
	cursorStep int
	clipboard  []byte // copied drum pattern, JSON

	controller  string // connected footswitch port, if any
	lastControl string
	err         error
	width       int
	quitting    bool
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type ControlMsg midi.NoteEvent

func NewModel(manager *looper.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	return Model{
		Manager:   manager,
		DeviceMgr: deviceMgr,
		Theme:     th,
		keys:      keys,
		help:      help.New(),
	}
}

func ListenForUpdates(manager *looper.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func ListenForControls(c midi.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.NoteEvents()
		if !ok {
			return nil
		}
		return ControlMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.Manager)}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		m.err = m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		cmds := []tea.Cmd{ListenForDevices(m.DeviceMgr)}
		switch event.Type {
		case midi.DeviceConnected:
			m.controller = event.ID
			cmds = append(cmds, ListenForControls(event.Controller))
		case midi.DeviceDisconnected:
			if m.controller == event.ID {
				m.controller = ""
			}
		}
		return m, tea.Batch(cmds...)

	case ControlMsg:
		m.lastControl = msg.Command.String()
		if m.DeviceMgr == nil {
			return m, nil
		}
		if c, ok := m.DeviceMgr.Controllers()[m.controller]; ok {
			return m, ListenForControls(c)
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) error {
	snap := m.Manager.Snapshot()
	set := snap.Settings

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Dismiss):
		m.Manager.ClearError()
	case key.Matches(msg, m.keys.Transport):
		m.Manager.ToggleTransport()
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusTracks {
			m.focus = focusDrums
		} else {
			m.focus = focusTracks
		}

	case key.Matches(msg, m.keys.TempoUp):
		m.Manager.SetTempo(set.BPM + tempoStep)
	case key.Matches(msg, m.keys.TempoDown):
		m.Manager.SetTempo(set.BPM - tempoStep)
	case key.Matches(msg, m.keys.Beats):
		next := set.BeatsPerBar + 1
		if next > looper.MaxBeatsPerBar {
			next = looper.MinBeatsPerBar
		}
		m.Manager.SetBeatsPerBar(next)
	case key.Matches(msg, m.keys.Bars):
		m.Manager.SetBars(nextBars(set.Bars))
	case key.Matches(msg, m.keys.Click):
		m.Manager.SetMetronome(!set.MetronomeActive)
	case key.Matches(msg, m.keys.GainUp):
		m.Manager.SetInputGain(snap.InputGain + gainStep)
	case key.Matches(msg, m.keys.GainDown):
		m.Manager.SetInputGain(snap.InputGain - gainStep)

	case m.focus == focusTracks:
		return m.handleTrackKey(msg, snap)
	default:
		return m.handleDrumKey(msg, snap)
	}
	return nil
}

func (m *Model) handleTrackKey(msg tea.KeyMsg, snap *looper.Snapshot) error {
	if key.Matches(msg, m.keys.Select) {
		idx := int(msg.String()[0] - '1')
		if idx < len(snap.Tracks) {
			m.track = idx
		}
		return nil
	}
	if m.track >= len(snap.Tracks) {
		return nil
	}
	t := snap.Tracks[m.track]

	switch {
	case key.Matches(msg, m.keys.Record):
		return m.Manager.RequestRecord(t.ID)
	case key.Matches(msg, m.keys.PlayStop):
		return m.Manager.RequestPlayStop(t.ID)
	case key.Matches(msg, m.keys.Clear):
		return m.Manager.RequestClear(t.ID)
	case key.Matches(msg, m.keys.Mute):
		return m.Manager.ToggleMute(t.ID)
	case key.Matches(msg, m.keys.Loop):
		return m.Manager.ToggleLoop(t.ID)
	case key.Matches(msg, m.keys.VolUp):
		return m.Manager.SetVolume(t.ID, t.Volume+volumeStep)
	case key.Matches(msg, m.keys.VolDown):
		return m.Manager.SetVolume(t.ID, t.Volume-volumeStep)
	case key.Matches(msg, m.keys.Up):
		m.track = max(0, m.track-1)
	case key.Matches(msg, m.keys.Down):
		m.track = min(len(snap.Tracks)-1, m.track+1)
	}
	return nil
}

func (m *Model) handleDrumKey(msg tea.KeyMsg, snap *looper.Snapshot) error {
	if key.Matches(msg, m.keys.NewDrum) {
		m.Manager.AddDrumTrack()
		m.drum = len(snap.DrumTracks) // the new one, appended last
		return nil
	}
	if len(snap.DrumTracks) == 0 {
		return nil
	}
	if m.drum >= len(snap.DrumTracks) {
		m.drum = len(snap.DrumTracks) - 1
	}
	dt := snap.DrumTracks[m.drum]
	steps := snap.Settings.StepsPerBar()
	m.cursorStep %= steps // the time signature may have shrunk

	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursorRow = max(0, m.cursorRow-1)
	case key.Matches(msg, m.keys.Down):
		m.cursorRow = min(int(looper.NumInstruments)-1, m.cursorRow+1)
	case key.Matches(msg, m.keys.Left):
		m.cursorStep = (m.cursorStep + steps - 1) % steps
	case key.Matches(msg, m.keys.Right):
		m.cursorStep = (m.cursorStep + 1) % steps
	case key.Matches(msg, m.keys.Toggle):
		return m.Manager.ToggleStep(dt.ID, looper.Instrument(m.cursorRow), m.cursorStep)
	case key.Matches(msg, m.keys.ClearDrums):
		return m.Manager.ClearPattern(dt.ID)
	case key.Matches(msg, m.keys.Copy):
		data, err := m.Manager.ExportPattern(dt.ID)
		if err != nil {
			return err
		}
		m.clipboard = data
	case key.Matches(msg, m.keys.Paste):
		if m.clipboard == nil {
			return nil
		}
		return m.Manager.ImportPattern(dt.ID, m.clipboard)
	case key.Matches(msg, m.keys.DelDrum):
		if m.drum > 0 {
			m.drum--
		}
		return m.Manager.RemoveDrumTrack(dt.ID)
	case key.Matches(msg, m.keys.PrevDrum):
		m.drum = max(0, m.drum-1)
	case key.Matches(msg, m.keys.NextDrum):
		m.drum = min(len(snap.DrumTracks)-1, m.drum+1)
	case key.Matches(msg, m.keys.Mute):
		return m.Manager.ToggleDrumMute(dt.ID)
	case key.Matches(msg, m.keys.VolUp):
		return m.Manager.SetDrumVolume(dt.ID, dt.Volume+volumeStep)
	case key.Matches(msg, m.keys.VolDown):
		return m.Manager.SetDrumVolume(dt.ID, dt.Volume-volumeStep)
	}
	return nil
}

func nextBars(bars int) int {
	for i, b := range looper.BarChoices {
		if b == bars {
			return looper.BarChoices[(i+1)%len(looper.BarChoices)]
		}
	}
	return looper.DefaultBars
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.Manager.Snapshot()
	th := m.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	errStyle := lipgloss.NewStyle().Foreground(th.Active())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.header(snap)))
	out.WriteString("\n\n")
	out.WriteString(m.transportView(snap))
	out.WriteString("\n\n")
	out.WriteString(m.tracksView(snap))
	out.WriteString("\n\n")
	out.WriteString(m.drumsView(snap))
	out.WriteString("\n\n")
	out.WriteString(m.inputView(snap))

	if err := m.err; err != nil {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(issue(err)))
	} else if snap.Err != nil {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(issue(snap.Err)))
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return out.String()
}

func (m Model) header(snap *looper.Snapshot) string {
	set := snap.Settings
	playState := "STOP"
	if snap.Playback.Playing {
		playState = "PLAY"
	}
	click := "off"
	if set.MetronomeActive {
		click = "on"
	}
	deviceStatus := ""
	if m.controller != "" {
		deviceStatus = "  FS:" + m.controller
		if m.lastControl != "" {
			deviceStatus += " (" + m.lastControl + ")"
		}
	}
	return fmt.Sprintf("go-looper  %s  %3dbpm  %d/4  %d bars  click:%s%s",
		playState, set.BPM, set.BeatsPerBar, set.Bars, click, deviceStatus)
}

func (m Model) transportView(snap *looper.Snapshot) string {
	pb := snap.Playback
	pos := fmt.Sprintf("bar %d beat %d", pb.Bar, pb.Beat)
	return widgets.Beats(m.Theme, pb.Beat, snap.Settings.BeatsPerBar, pb.Playing) + "  " +
		pos + "\n" +
		widgets.Progress(m.Theme, pb.Progress, snap.Settings.Bars, 48)
}

func (m Model) tracksView(snap *looper.Snapshot) string {
	th := m.Theme
	selected := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)
	plain := lipgloss.NewStyle().Foreground(th.FG())

	var lines []string
	for i, t := range snap.Tracks {
		marker := "  "
		name := plain
		if m.focus == focusTracks && i == m.track {
			marker = "> "
			name = selected
		}

		status := lipgloss.NewStyle().Foreground(th.Status(t.Status)).Width(10).Render(t.Status.String())
		if t.Pending {
			status = lipgloss.NewStyle().Foreground(th.Warning()).Width(10).Render("DECODING")
		}
		loop := "loop"
		if !t.Looping {
			loop = "once"
		}

		level := 0.0
		if a := m.Manager.TrackAnalyser(t.ID); a != nil {
			level = a.Level()
		}
		lines = append(lines, fmt.Sprintf("%s%s %s %s %-5s %s",
			marker,
			name.Render(fmt.Sprintf("Track %d", i+1)),
			status,
			widgets.Meter(th, level, meterWidth),
			widgets.Volume(t.Volume, t.Muted),
			loop))
	}
	return strings.Join(lines, "\n")
}

func (m Model) drumsView(snap *looper.Snapshot) string {
	th := m.Theme
	if len(snap.DrumTracks) == 0 {
		return lipgloss.NewStyle().Foreground(th.Muted()).Render("no drum tracks (n to add)")
	}
	idx := min(m.drum, len(snap.DrumTracks)-1)
	dt := snap.DrumTracks[idx]

	level := 0.0
	if a := m.Manager.DrumAnalyser(dt.ID); a != nil {
		level = a.Level()
	}
	title := fmt.Sprintf("%s  [%d/%d]  %s %s", dt.Name, idx+1, len(snap.DrumTracks),
		widgets.Meter(th, level, meterWidth), widgets.Volume(dt.Volume, dt.Muted))
	titleStyle := lipgloss.NewStyle().Foreground(th.FG())
	if m.focus == focusDrums {
		titleStyle = titleStyle.Foreground(th.Cursor()).Bold(true)
	}

	playhead := -1
	if snap.Playback.Playing {
		playhead = snap.Playback.Step
	}
	row, step := -1, -1
	if m.focus == focusDrums {
		row, step = m.cursorRow, m.cursorStep%snap.Settings.StepsPerBar()
	}
	return titleStyle.Render(title) + "\n" + widgets.Pattern(th, dt.Pattern, playhead, row, step)
}

func (m Model) inputView(snap *looper.Snapshot) string {
	th := m.Theme
	if !snap.InputReady {
		return lipgloss.NewStyle().Foreground(th.Warning()).Render("mic: unavailable, recording disabled")
	}
	var samples []float64
	level := 0.0
	if a := m.Manager.InputAnalyser(); a != nil {
		samples = a.Samples(1024)
		level = a.Level()
	}
	return fmt.Sprintf("mic  %s %s gain %.1f",
		widgets.Wave(th, samples, waveWidth),
		widgets.Meter(th, level, meterWidth),
		snap.InputGain)
}

// issue is the user-facing part of an error
func issue(err error) string {
	if s := fmsg.GetIssue(err); s != "" {
		return s
	}
	return err.Error()
}
