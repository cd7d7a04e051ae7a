package midi

import "go-looper/looper"

// DrumKit maps each looper instrument, plus the metronome, to MIDI notes
type DrumKit struct {
	Name   string
	Notes  [looper.NumInstruments]uint8
	Click  uint8 // off-beat metronome note
	Accent uint8 // downbeat metronome note
}

// Note returns the note for an instrument
func (k DrumKit) Note(inst looper.Instrument) uint8 {
	if !inst.Valid() {
		return 0
	}
	return k.Notes[inst]
}

// Kits contains all available drum kit mappings, in instrument order
// KICK SNARE HIHAT CLAP TOM SHAKER COWBELL CRASH
var Kits = map[string]DrumKit{
	"gm": {
		Name:   "General MIDI",
		Notes:  [looper.NumInstruments]uint8{36, 38, 42, 39, 45, 70, 56, 49},
		Click:  77, // low wood block
		Accent: 76, // hi wood block
	},
	"rd8": {
		Name: "Behringer RD-8",
		// RD-8 snare is 40, not 38
		Notes:  [looper.NumInstruments]uint8{36, 40, 42, 39, 45, 70, 56, 49},
		Click:  37,
		Accent: 75,
	},
	"tr8s": {
		Name:   "Roland TR-8S",
		Notes:  [looper.NumInstruments]uint8{36, 38, 42, 39, 43, 70, 56, 49},
		Click:  37,
		Accent: 75,
	},
	"er1": {
		Name: "Korg ER-1",
		// perc synths 1-4 for kick, snare, tom, cowbell; PCM for the rest
		Notes:  [looper.NumInstruments]uint8{36, 38, 42, 39, 40, 46, 41, 49},
		Click:  45,
		Accent: 43,
	},
}

// KitNames returns the list of available kit names
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) DrumKit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// DefaultKit is the default kit name
const DefaultKit = "gm"
