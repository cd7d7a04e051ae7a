package looper

// Tempo and time-signature ranges
const (
	MinBPM     = 40
	MaxBPM     = 240
	DefaultBPM = 120

	MinBeatsPerBar     = 2
	MaxBeatsPerBar     = 7
	DefaultBeatsPerBar = 4

	DefaultBars = 4

	DefaultMetronomeVolume = 0.5

	// StepsPerBeat is the drum grid resolution (16th notes)
	StepsPerBeat = 4
	// MaxSteps is the longest pattern row any time signature can need
	MaxSteps = MaxBeatsPerBar * StepsPerBeat
)

// BarChoices are the loop lengths a loop can be set to
var BarChoices = []int{1, 2, 4, 8}

// Settings is the shared tempo/time-signature clock configuration.
// Loop timing is always derived from the current field values.
type Settings struct {
	BPM             int     `json:"bpm" yaml:"bpm"`
	BeatsPerBar     int     `json:"beatsPerBar" yaml:"beats_per_bar"`
	Bars            int     `json:"bars" yaml:"bars"`
	MetronomeActive bool    `json:"metronomeActive" yaml:"metronome"`
	MetronomeVolume float64 `json:"metronomeVolume" yaml:"metronome_volume"`
}

// DefaultSettings returns 120bpm 4/4 over four bars, metronome off
func DefaultSettings() Settings {
	return Settings{
		BPM:             DefaultBPM,
		BeatsPerBar:     DefaultBeatsPerBar,
		Bars:            DefaultBars,
		MetronomeVolume: DefaultMetronomeVolume,
	}
}

// SecondsPerBeat is the length of one beat in seconds
func (s Settings) SecondsPerBeat() float64 {
	return 60 / float64(s.BPM)
}

// SecondsPerStep is the length of one 16th-note step
func (s Settings) SecondsPerStep() float64 {
	return s.SecondsPerBeat() / StepsPerBeat
}

// LoopDuration is the length of a full loop cycle in seconds
func (s Settings) LoopDuration() float64 {
	return (60 / float64(s.BPM)) * float64(s.BeatsPerBar) * float64(s.Bars)
}

// StepsPerBar is the drum pattern length for the current time signature
func (s Settings) StepsPerBar() int {
	return s.BeatsPerBar * StepsPerBeat
}

// Clamp forces every field into its valid range. Bars snaps down to the
// nearest allowed choice.
func (s Settings) Clamp() Settings {
	s.BPM = clampInt(s.BPM, MinBPM, MaxBPM)
	s.BeatsPerBar = clampInt(s.BeatsPerBar, MinBeatsPerBar, MaxBeatsPerBar)
	s.Bars = snapBars(s.Bars)
	s.MetronomeVolume = clamp01(s.MetronomeVolume)
	return s
}

func snapBars(bars int) int {
	best := BarChoices[0]
	for _, b := range BarChoices {
		if b <= bars {
			best = b
		}
	}
	return best
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
