package engine

import (
	"math"
	"math/rand"

	"go-looper/looper"
)

// Drum voices are rendered once per sample rate and replayed. Each recipe
// is an oscillator or noise burst with a fixed exponential decay.

func expRamp(from, to, dur, t float64) float64 {
	if t >= dur {
		return to
	}
	return from * math.Pow(to/from, t/dur)
}

type highpass struct{ a, prevIn, prevOut float64 }

func newHighpass(fc float64, rate int) *highpass {
	rc := 1 / (2 * math.Pi * fc)
	dt := 1 / float64(rate)
	return &highpass{a: rc / (rc + dt)}
}

func (f *highpass) next(x float64) float64 {
	y := f.a * (f.prevOut + x - f.prevIn)
	f.prevIn, f.prevOut = x, y
	return y
}

type lowpass struct{ a, y float64 }

func newLowpass(fc float64, rate int) *lowpass {
	rc := 1 / (2 * math.Pi * fc)
	dt := 1 / float64(rate)
	return &lowpass{a: dt / (rc + dt)}
}

func (f *lowpass) next(x float64) float64 {
	f.y += f.a * (x - f.y)
	return f.y
}

// bandpass is a highpass into a lowpass at the same corner
type bandpass struct {
	hp *highpass
	lp *lowpass
}

func newBandpass(fc float64, rate int) *bandpass {
	return &bandpass{hp: newHighpass(fc*0.7, rate), lp: newLowpass(fc*1.4, rate)}
}

func (f *bandpass) next(x float64) float64 {
	return f.lp.next(f.hp.next(x))
}

func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4*math.Abs(p-0.5) - 1
}

func square(phase float64) float64 {
	if phase-math.Floor(phase) < 0.5 {
		return 1
	}
	return -1
}

func samples(dur float64, rate int) []float64 {
	return make([]float64, int(dur*float64(rate)))
}

// noiseBurst is filtered white noise under a decaying gain
func noiseBurst(rate int, seed int64, dur, peak float64, filter func(float64) float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := samples(dur, rate)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = filter(rng.Float64()*2-1) * expRamp(peak, 0.01, dur, t)
	}
	return out
}

func renderKick(rate int) []float64 {
	const dur = 0.5
	out := samples(dur, rate)
	phase := 0.0
	for i := range out {
		t := float64(i) / float64(rate)
		phase += expRamp(150, 0.01, dur, t) / float64(rate)
		out[i] = math.Sin(2*math.Pi*phase) * expRamp(1, 0.01, dur, t)
	}
	return out
}

func renderSnare(rate int) []float64 {
	hp := newHighpass(1000, rate)
	out := noiseBurst(rate, 2, 0.2, 1, hp.next)
	for i := 0; i < int(0.1*float64(rate)); i++ {
		t := float64(i) / float64(rate)
		out[i] += triangle(250*t) * expRamp(0.5, 0.01, 0.1, t)
	}
	return out
}

func renderClap(rate int) []float64 {
	bp := newBandpass(1500, rate)
	out := noiseBurst(rate, 4, 0.2, 1, bp.next)
	// 5ms linear attack
	attack := int(0.005 * float64(rate))
	for i := 0; i < attack && i < len(out); i++ {
		out[i] *= float64(i) / float64(attack)
	}
	return out
}

func renderTom(rate int) []float64 {
	const dur = 0.3
	out := samples(dur, rate)
	phase := 0.0
	for i := range out {
		t := float64(i) / float64(rate)
		phase += expRamp(200, 80, dur, t) / float64(rate)
		out[i] = math.Sin(2*math.Pi*phase) * expRamp(0.8, 0.01, dur, t)
	}
	return out
}

func renderCowbell(rate int) []float64 {
	const dur = 0.1
	bp := newBandpass(1000, rate)
	out := samples(dur, rate)
	for i := range out {
		t := float64(i) / float64(rate)
		x := (square(800*t) + square(580*t)) * expRamp(0.6, 0.01, dur, t)
		out[i] = bp.next(x)
	}
	return out
}

func renderVoice(inst looper.Instrument, rate int) []float64 {
	switch inst {
	case looper.Kick:
		return renderKick(rate)
	case looper.Snare:
		return renderSnare(rate)
	case looper.HiHat:
		return noiseBurst(rate, 3, 0.05, 0.8, newHighpass(7000, rate).next)
	case looper.Clap:
		return renderClap(rate)
	case looper.Tom:
		return renderTom(rate)
	case looper.Shaker:
		return noiseBurst(rate, 6, 0.05, 0.5, newHighpass(5000, rate).next)
	case looper.Cowbell:
		return renderCowbell(rate)
	case looper.Crash:
		return noiseBurst(rate, 8, 1.5, 0.7, newHighpass(3000, rate).next)
	}
	return nil
}

// renderClick is the metronome tone: 1500Hz at full volume on the
// downbeat, 800Hz at 0.3 otherwise
func renderClick(accented bool, rate int) []float64 {
	const dur = 0.1
	freq, vol := 800.0, 0.3
	if accented {
		freq, vol = 1500, 1.0
	}
	out := samples(dur, rate)
	for i := range out {
		t := float64(i) / float64(rate)
		out[i] = math.Sin(2*math.Pi*freq*t) * expRamp(vol, 0.001, dur, t)
	}
	return out
}
