package tui

import "github.com/charmbracelet/bubbles/key"

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Transport key.Binding
	Select    key.Binding
	Record    key.Binding
	PlayStop  key.Binding
	Clear     key.Binding
	Mute      key.Binding
	Loop      key.Binding
	VolDown   key.Binding
	VolUp     key.Binding

	Focus      key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Toggle     key.Binding
	ClearDrums key.Binding
	NewDrum    key.Binding
	DelDrum    key.Binding
	PrevDrum   key.Binding
	NextDrum   key.Binding
	Copy       key.Binding
	Paste      key.Binding

	TempoUp   key.Binding
	TempoDown key.Binding
	Beats     key.Binding
	Bars      key.Binding
	Click     key.Binding
	GainUp    key.Binding
	GainDown  key.Binding

	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Transport: Key("play/stop all", "space", " "),
	Select:    Key("select track", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
	Record:    Key("record", "r"),
	PlayStop:  Key("play/stop track", "s"),
	Clear:     Key("clear track", "x"),
	Mute:      Key("mute", "m"),
	Loop:      Key("loop on/off", "l"),
	VolDown:   Key("volume -", "["),
	VolUp:     Key("volume +", "]"),

	Focus:      Key("tracks/drums", "tab"),
	Up:         Key("up", "up", "k"),
	Down:       Key("down", "down", "j"),
	Left:       Key("left", "left", "h"),
	Right:      Key("right", "right"),
	Toggle:     Key("toggle step", "enter"),
	ClearDrums: Key("clear pattern", "c"),
	NewDrum:    Key("new drum track", "n"),
	DelDrum:    Key("delete drum track", "delete"),
	PrevDrum:   Key("prev drum track", "<", ","),
	NextDrum:   Key("next drum track", ">", "."),
	Copy:       Key("copy pattern", "y"),
	Paste:      Key("paste pattern", "p"),

	TempoUp:   Key("tempo +", "+", "="),
	TempoDown: Key("tempo -", "-", "_"),
	Beats:     Key("beats per bar", "b"),
	Bars:      Key("bars", "B"),
	Click:     Key("metronome", "t"),
	GainUp:    Key("input gain +", "}"),
	GainDown:  Key("input gain -", "{"),

	Dismiss: Key("dismiss error", "e"),
	Help:    Key("help", "?"),
	Quit:    Key("quit", "q", "ctrl+c"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Transport, k.Select, k.Record, k.PlayStop, k.Focus, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Transport, k.Select, k.Record, k.PlayStop, k.Clear, k.Mute, k.Loop, k.VolDown, k.VolUp},
		{k.Focus, k.Up, k.Down, k.Left, k.Right, k.Toggle, k.ClearDrums, k.NewDrum, k.DelDrum, k.PrevDrum, k.NextDrum, k.Copy, k.Paste},
		{k.TempoUp, k.TempoDown, k.Beats, k.Bars, k.Click, k.GainUp, k.GainDown, k.Dismiss, k.Help, k.Quit},
	}
}
