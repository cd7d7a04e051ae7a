package engine

import (
	"math"
	"testing"
	"time"

	"go-looper/looper"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.25, -1, 0.999}
	blob, err := Encode(in, 44100)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	buf, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.NumFrames() != len(in) || buf.Format.SampleRate != 44100 {
		t.Fatalf("frames %d rate %d", buf.NumFrames(), buf.Format.SampleRate)
	}
	for i, want := range in {
		if math.Abs(buf.Data[i]-want) > 1.0/16384 {
			t.Errorf("sample %d = %v, want %v", i, buf.Data[i], want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not riff")); err == nil {
		t.Error("garbage decoded")
	}
}

func TestCaptureRecordsMicBetweenTimes(t *testing.T) {
	e := New(testRate)
	e.SetGain(e.Input(), 0.5, 0)

	c, err := e.StartCapture(0.010)
	if err != nil {
		t.Fatal(err)
	}
	done := e.StopCapture(c, 0.030)

	in := make([]float32, 50)
	for i := range in {
		in[i] = 0.8
	}
	render(e, 50, in)

	select {
	case enc := <-done:
		if enc.Err != nil {
			t.Fatal(enc.Err)
		}
		buf, err := e.Decode(enc.Blob)
		if err != nil {
			t.Fatal(err)
		}
		if buf.NumFrames() != 20 {
			t.Errorf("captured %d frames, want 20", buf.NumFrames())
		}
		if math.Abs(buf.Data[0]-0.4) > 1e-3 {
			t.Errorf("sample = %v, want input gain applied (0.4)", buf.Data[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("capture never finalized")
	}
}

func TestStopCaptureInPastFinalizesNow(t *testing.T) {
	e := New(testRate)
	c, _ := e.StartCapture(0)
	render(e, 10, make([]float32, 10))

	select {
	case enc := <-e.StopCapture(c, 0.001):
		buf, err := Decode(enc.Blob)
		if err != nil {
			t.Fatal(err)
		}
		if buf.NumFrames() != 10 {
			t.Errorf("frames = %d, want 10", buf.NumFrames())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	enc := <-e.StopCapture(looper.CaptureID(999), 1)
	if enc.Err == nil {
		t.Error("unknown capture stopped cleanly")
	}
}

func TestEngineDrivesLooper(t *testing.T) {
	e := New(testRate)
	m := looper.NewManager(e, looper.Options{Settings: looper.Settings{BPM: 240, BeatsPerBar: 2, Bars: 1}})

	m.ToggleStep(1, looper.Kick, 0)
	m.ToggleTransport()

	out := make([]float32, 100)
	heard := false
	for i := 0; i < 20; i++ {
		m.Tick()
		e.Render(nil, 0, out, 1)
		for _, v := range out {
			if v != 0 {
				heard = true
			}
		}
	}
	if !heard {
		t.Error("kick never reached the output")
	}
}
