package looper

import (
	"encoding/json"
	"testing"
)

func TestPatternResizePreservesSteps(t *testing.T) {
	p := NewPattern(16)
	p.Toggle(Kick, 0)
	p.Toggle(Snare, 4)
	p.Toggle(HiHat, 11)
	p.Toggle(Crash, 15)

	p.Resize(12) // 4/4 -> 3/4
	if p.Length != 12 {
		t.Fatalf("length = %d, want 12", p.Length)
	}
	for _, inst := range Instruments() {
		if got := len(p.Row(inst)); got != 12 {
			t.Errorf("%s row length = %d, want 12", inst, got)
		}
	}
	if !p.Active(Kick, 0) || !p.Active(Snare, 4) || !p.Active(HiHat, 11) {
		t.Error("steps inside the new length were lost")
	}

	p.Resize(16) // back to 4/4, tail comes back empty
	if p.Active(Crash, 15) {
		t.Error("step past a shrink survived a regrow")
	}
	if !p.Active(HiHat, 11) {
		t.Error("step lost on grow")
	}

	p.Resize(28)
	for s := 16; s < 28; s++ {
		for _, inst := range Instruments() {
			if p.Active(inst, s) {
				t.Fatalf("%s step %d set in zero-filled tail", inst, s)
			}
		}
	}
}

func TestPatternToggleOutOfRange(t *testing.T) {
	p := NewPattern(8)
	if p.Toggle(Kick, 8) {
		t.Error("toggle at length accepted")
	}
	if p.Toggle(Kick, -1) {
		t.Error("negative step accepted")
	}
	if p.Toggle(Instrument(NumInstruments), 0) {
		t.Error("unknown instrument accepted")
	}
	if !p.Empty() {
		t.Error("rejected toggles changed the pattern")
	}
}

func TestPatternToggleThenClearIdempotent(t *testing.T) {
	p := NewPattern(16)
	p.Toggle(Clap, 3)
	p.Toggle(Tom, 9)

	p.Clear()
	once := p
	p.Clear()

	if p != once {
		t.Error("clearing twice differs from clearing once")
	}
	if !p.Empty() || p.Length != 16 {
		t.Errorf("after clear: empty=%v length=%d", p.Empty(), p.Length)
	}
}

func TestPatternJSONRoundTrip(t *testing.T) {
	p := NewPattern(12)
	p.Toggle(Kick, 0)
	p.Toggle(Kick, 6)
	p.Toggle(Cowbell, 11)
	p.Toggle(Shaker, 1)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Pattern
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != p {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, p)
	}

	var rows map[string][]bool
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != NumInstruments || len(rows["KICK"]) != 12 || !rows["COWBELL"][11] {
		t.Errorf("unexpected wire form: %v", rows)
	}
}

func TestPatternUnmarshalRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown instrument", `{"GONG":[true]}`},
		{"ragged rows", `{"KICK":[true,false],"SNARE":[true]}`},
		{"too long", `{"KICK":[` + repeat("false,", MaxSteps) + `false]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Pattern
			if err := json.Unmarshal([]byte(tt.data), &p); err == nil {
				t.Errorf("expected error for %s", tt.data)
			}
		})
	}
}

func TestInstrumentNames(t *testing.T) {
	for _, inst := range Instruments() {
		got, ok := ParseInstrument(inst.String())
		if !ok || got != inst {
			t.Errorf("ParseInstrument(%q) = %v, %v", inst.String(), got, ok)
		}
	}
	if inst, ok := ParseInstrument(" hihat "); !ok || inst != HiHat {
		t.Errorf("case-insensitive parse failed: %v %v", inst, ok)
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
