package engine

import (
	"math"
	"testing"

	"go-looper/looper"

	"github.com/go-audio/audio"
)

const testRate = 1000

func render(e *Engine, frames int, in []float32) []float32 {
	out := make([]float32, frames)
	e.Render(in, 1, out, 1)
	return out
}

func constBuffer(frames int, v float64) *audio.FloatBuffer {
	data := make([]float64, frames)
	for i := range data {
		data[i] = v
	}
	return &audio.FloatBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: testRate}, Data: data}
}

func TestClockAdvancesWithRender(t *testing.T) {
	e := New(testRate)
	if e.Now() != 0 {
		t.Fatalf("now = %v", e.Now())
	}
	render(e, 250, nil)
	render(e, 250, nil)
	if e.Now() != 0.5 {
		t.Errorf("now = %v, want 0.5", e.Now())
	}
}

func TestSourceStartsAtScheduledFrame(t *testing.T) {
	e := New(testRate)
	g := e.CreateGain()
	e.Connect(g, e.Output())
	e.SetGain(g, 0.5, 0)

	e.SchedulePlayback(constBuffer(10, 1), 0.005, false, g)
	out := render(e, 20, nil)

	for i, v := range out {
		want := float32(0)
		if i >= 5 && i < 15 {
			want = 0.5
		}
		if v != want {
			t.Fatalf("frame %d = %v, want %v", i, v, want)
		}
	}
	if len(e.sources) != 0 {
		t.Error("finished one-shot source not removed")
	}
}

func TestLoopingSourceUntilStopped(t *testing.T) {
	e := New(testRate)
	buf := &audio.FloatBuffer{Format: &audio.Format{NumChannels: 1}, Data: []float64{0.1, 0.2, 0.3, 0.4}}
	s := e.SchedulePlayback(buf, 0, true, e.Output())
	e.Stop(s, 0.010)

	out := render(e, 16, nil)
	for i := 0; i < 10; i++ {
		want := float32(buf.Data[i%4])
		if math.Abs(float64(out[i]-want)) > 1e-6 {
			t.Fatalf("frame %d = %v, want %v", i, out[i], want)
		}
	}
	for i := 10; i < 16; i++ {
		if out[i] != 0 {
			t.Fatalf("frame %d = %v after stop", i, out[i])
		}
	}
}

func TestSetLoopingOnLiveSource(t *testing.T) {
	e := New(testRate)
	s := e.SchedulePlayback(constBuffer(4, 0.25), 0, true, e.Output())
	render(e, 2, nil)
	e.SetLooping(s, false)
	out := render(e, 6, nil)
	if out[1] != 0.25 || out[2] != 0 {
		t.Errorf("one-shot after loop off: %v", out)
	}
}

func TestGainGraphAndMute(t *testing.T) {
	e := New(testRate)
	tap := e.CreateAnalysisTap()
	g := e.CreateGain()
	e.Connect(tap, g)
	e.Connect(g, e.Output())
	e.SetGain(g, 0, 0)

	e.SchedulePlayback(constBuffer(100, 0.5), 0, true, tap)
	out := render(e, 1100, nil)
	for _, v := range out {
		if v != 0 {
			t.Fatal("muted gain let audio through")
		}
	}
	// the tap sits before the gain and still sees the signal
	if lvl := e.Analyser(tap).Level(); math.Abs(lvl-0.5) > 1e-9 {
		t.Errorf("tap level = %v, want 0.5", lvl)
	}

	e.SetGain(g, 1, e.Now()+0.05) // 50 frames ahead
	out = render(e, 100, nil)
	if out[49] != 0 || out[50] != 0.5 {
		t.Errorf("scheduled gain change: %v %v", out[49], out[50])
	}
}

func TestDisconnectSilencesBranch(t *testing.T) {
	e := New(testRate)
	g := e.CreateGain()
	e.Connect(g, e.Output())
	e.SchedulePlayback(constBuffer(100, 0.5), 0, true, g)
	render(e, 10, nil)

	e.Disconnect(g)
	out := render(e, 10, nil)
	for _, v := range out {
		if v != 0 {
			t.Fatal("released node still audible")
		}
	}
	if e.Analyser(g) != nil {
		t.Error("analyser for released node")
	}
}

func TestVoicesAndClicks(t *testing.T) {
	e := New(48000)
	for _, inst := range looper.Instruments() {
		if len(e.drums[inst]) == 0 {
			t.Errorf("%s has no samples", inst)
		}
	}
	if got, want := len(e.drums[looper.Crash]), 72000; got != want {
		t.Errorf("crash length = %d, want %d", got, want)
	}

	g := e.CreateGain()
	e.Connect(g, e.Output())
	e.Synthesize(looper.Kick, 0, g)
	e.PlayClick(0, true, g)

	out := make([]float32, 4800)
	e.Render(nil, 0, out, 1)
	peak := 0.0
	for _, v := range out {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak == 0 {
		t.Error("voices rendered silence")
	}
	if len(e.voices) != 1 {
		t.Errorf("voices alive = %d, want kick only", len(e.voices))
	}
}

func TestStereoOutputDuplicatesMono(t *testing.T) {
	e := New(testRate)
	e.SchedulePlayback(constBuffer(4, 0.25), 0, false, e.Output())
	out := make([]float32, 8)
	e.Render(nil, 0, out, 2)
	for i := 0; i < 8; i += 2 {
		if out[i] != 0.25 || out[i+1] != 0.25 {
			t.Fatalf("frame %d = %v %v", i/2, out[i], out[i+1])
		}
	}
}

func TestTapSamplesChronological(t *testing.T) {
	tap := NewTap(4)
	tap.write([]float64{1, 2, 3, 4, 5, 6})
	got := tap.Samples(3)
	want := []float64{4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples = %v, want %v", got, want)
		}
	}
	if n := len(tap.Samples(10)); n != 4 {
		t.Errorf("oversized request returned %d", n)
	}
}
