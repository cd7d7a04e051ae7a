package looper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Instrument is one of the fixed drum voices
type Instrument int

const (
	Kick Instrument = iota
	Snare
	HiHat
	Clap
	Tom
	Shaker
	Cowbell
	Crash

	NumInstruments = 8
)

var instrumentNames = [NumInstruments]string{
	"KICK", "SNARE", "HIHAT", "CLAP", "TOM", "SHAKER", "COWBELL", "CRASH",
}

// Instruments lists every instrument in grid order
func Instruments() []Instrument {
	out := make([]Instrument, NumInstruments)
	for i := range out {
		out[i] = Instrument(i)
	}
	return out
}

func (i Instrument) String() string {
	if i < 0 || i >= NumInstruments {
		return fmt.Sprintf("Instrument(%d)", int(i))
	}
	return instrumentNames[i]
}

// Valid reports whether i names one of the fixed instruments
func (i Instrument) Valid() bool {
	return i >= 0 && i < NumInstruments
}

// ParseInstrument looks an instrument up by name (case-insensitive)
func ParseInstrument(name string) (Instrument, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range instrumentNames {
		if n == name {
			return Instrument(i), true
		}
	}
	return 0, false
}

func (i Instrument) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("invalid instrument %d", int(i))
	}
	return []byte(i.String()), nil
}

func (i *Instrument) UnmarshalText(b []byte) error {
	inst, ok := ParseInstrument(string(b))
	if !ok {
		return fmt.Errorf("unknown instrument %q", string(b))
	}
	*i = inst
	return nil
}

// Pattern is a drum grid: one row of steps per instrument. Every row
// shares Length; steps at or beyond Length are always false.
type Pattern struct {
	Steps  [NumInstruments][MaxSteps]bool
	Length int
}

// NewPattern returns an empty pattern with the given row length
func NewPattern(length int) Pattern {
	return Pattern{Length: clampInt(length, 0, MaxSteps)}
}

// Active reports whether inst fires on step
func (p *Pattern) Active(inst Instrument, step int) bool {
	if !inst.Valid() || step < 0 || step >= p.Length {
		return false
	}
	return p.Steps[inst][step]
}

// Toggle flips one step. Out of range requests are ignored and reported.
func (p *Pattern) Toggle(inst Instrument, step int) bool {
	if !inst.Valid() || step < 0 || step >= p.Length {
		return false
	}
	p.Steps[inst][step] = !p.Steps[inst][step]
	return true
}

// Clear turns every step off, keeping the length
func (p *Pattern) Clear() {
	p.Steps = [NumInstruments][MaxSteps]bool{}
}

// Resize changes the row length. Steps below the shorter of the old and
// new lengths keep their values; everything past the new length is off.
func (p *Pattern) Resize(length int) {
	length = clampInt(length, 0, MaxSteps)
	for inst := range p.Steps {
		for s := length; s < MaxSteps; s++ {
			p.Steps[inst][s] = false
		}
	}
	p.Length = length
}

// Row returns a copy of one instrument's steps up to Length
func (p *Pattern) Row(inst Instrument) []bool {
	if !inst.Valid() {
		return nil
	}
	row := make([]bool, p.Length)
	copy(row, p.Steps[inst][:p.Length])
	return row
}

// Empty reports whether no step is active
func (p *Pattern) Empty() bool {
	for inst := range p.Steps {
		for s := 0; s < p.Length; s++ {
			if p.Steps[inst][s] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON writes the pattern as instrument name -> step list
func (p Pattern) MarshalJSON() ([]byte, error) {
	rows := make(map[string][]bool, NumInstruments)
	for _, inst := range Instruments() {
		rows[inst.String()] = p.Row(inst)
	}
	return json.Marshal(rows)
}

// UnmarshalJSON reads the instrument name -> step list form. Every row
// present must have the same length; missing instruments are empty.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var rows map[string][]bool
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}

	out := Pattern{Length: -1}
	for name, steps := range rows {
		inst, ok := ParseInstrument(name)
		if !ok {
			return fmt.Errorf("unknown instrument %q", name)
		}
		if len(steps) > MaxSteps {
			return fmt.Errorf("%s: %d steps exceeds maximum %d", name, len(steps), MaxSteps)
		}
		if out.Length >= 0 && len(steps) != out.Length {
			return fmt.Errorf("%s: row length %d does not match %d", name, len(steps), out.Length)
		}
		out.Length = len(steps)
		copy(out.Steps[inst][:], steps)
	}
	if out.Length < 0 {
		out.Length = 0
	}
	*p = out
	return nil
}
