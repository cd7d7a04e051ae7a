package theme

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

type RGB [3]uint8

// Palette is an ordered colour ramp addressed by position 0-1
type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette, sampled from matplotlib's plasma map
func Plasma() *Palette {
	return &Palette{
		Name: "plasma",
		Colors: []RGB{
			{13, 8, 135},
			{65, 4, 157},
			{106, 0, 168},
			{143, 13, 164},
			{177, 42, 144},
			{204, 71, 120},
			{225, 100, 98},
			{242, 132, 75},
			{252, 166, 54},
			{252, 206, 37},
			{240, 249, 33},
		},
	}
}

// LoadGPL reads a GIMP palette file. An unnamed palette takes the file
// name.
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("open palette"))
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("load palette", "The palette file "+path+" is not a usable GIMP palette."))
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// ParseGPL reads GIMP palette text. Every line that is not a header or a
// comment must start with three 0-255 channel values.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", line[0] == '#', line == "GIMP Palette", strings.HasPrefix(line, "Columns:"):
			continue
		case strings.HasPrefix(line, "Name:"):
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		c, err := parseRGB(line)
		if err != nil {
			return nil, fault.Wrap(err, ftag.With(ftag.InvalidArgument), fmsg.With(fmt.Sprintf("line %d", n)))
		}
		p.Colors = append(p.Colors, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fault.Wrap(err, fmsg.With("read palette"))
	}

	if len(p.Colors) < 2 {
		return nil, fault.New("palette needs at least two colors", ftag.With(ftag.InvalidArgument))
	}
	return p, nil
}

func parseRGB(line string) (RGB, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RGB{}, fault.New(fmt.Sprintf("want R G B, got %q", line))
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(fields[i], 10, 8)
		if err != nil {
			return RGB{}, fault.Wrap(err, fmsg.With(fmt.Sprintf("channel %q", fields[i])))
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// Lookup blends the two entries either side of pos, clamped to 0-1
func (p *Palette) Lookup(pos float64) RGB {
	last := len(p.Colors) - 1
	if last < 1 {
		return p.Colors[0]
	}
	x := math.Max(0, math.Min(1, pos)) * float64(last)
	i := min(int(x), last-1)
	return blend(p.Colors[i], p.Colors[i+1], x-float64(i))
}

func blend(a, b RGB, t float64) RGB {
	var out RGB
	for i := range out {
		out[i] = uint8(math.Round(float64(a[i]) + (float64(b[i])-float64(a[i]))*t))
	}
	return out
}

// Ramp is the stretch of a palette between two positions, so a 0-1 value
// such as a meter level can be coloured within it
type Ramp struct {
	palette *Palette
	from    float64
	to      float64
}

// Ramp returns the stretch between from and to. from may exceed to for a
// reversed ramp.
func (p *Palette) Ramp(from, to float64) Ramp {
	return Ramp{palette: p, from: from, to: to}
}

// At colours v, clamped to 0-1
func (r Ramp) At(v float64) RGB {
	v = math.Max(0, math.Min(1, v))
	return r.palette.Lookup(r.from + (r.to-r.from)*v)
}
