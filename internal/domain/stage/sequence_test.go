package stage

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Stage
		wantErr bool
	}{
		{"valid stage", "WAITING", StageWaiting, false},
		{"valid terminal stage", "DELIVERED", StageDelivered, false},
		{"unknown stage", "SHIPPING", "", true},
		{"lowercase rejected", "waiting", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSequence_Next(t *testing.T) {
	seq := Default()

	tests := []struct {
		current Stage
		want    Stage
		ok      bool
	}{
		{StageWaiting, StageDesign, true},
		{StageDesign, StagePrintReady, true},
		{StagePrintReady, StagePrinting, true},
		{StagePrinting, StageCut, true},
		{StageCut, StageCompleted, true},
		{StageCompleted, StageDelivered, true},
		{StageDelivered, "", false},
		{Stage("UNKNOWN"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			got, ok := seq.Next(tt.current)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Next(%s) = (%v, %v), want (%v, %v)", tt.current, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSequence_NextSkipping(t *testing.T) {
	seq := Default()
	skipDesign := func(s Stage) bool { return s == StageDesign }

	got, ok := seq.NextSkipping(StageWaiting, skipDesign)
	if !ok || got != StagePrintReady {
		t.Errorf("NextSkipping(WAITING, skip DESIGN) = (%v, %v), want (PRINT_READY, true)", got, ok)
	}

	// Skipping a stage other than the successor changes nothing
	got, ok = seq.NextSkipping(StagePrinting, skipDesign)
	if !ok || got != StageCut {
		t.Errorf("NextSkipping(PRINTING, skip DESIGN) = (%v, %v), want (CUT, true)", got, ok)
	}

	// Skipping every remaining stage yields no successor
	got, ok = seq.NextSkipping(StageCompleted, func(Stage) bool { return true })
	if ok {
		t.Errorf("NextSkipping with all-skip = (%v, %v), want no successor", got, ok)
	}
}

func TestSequence_IsTerminal(t *testing.T) {
	seq := Default()

	if !seq.IsTerminal(StageDelivered) {
		t.Error("IsTerminal(DELIVERED) = false, want true")
	}
	if seq.IsTerminal(StageWaiting) {
		t.Error("IsTerminal(WAITING) = true, want false")
	}
	if seq.IsTerminal(Stage("UNKNOWN")) {
		t.Error("IsTerminal(UNKNOWN) = true, want false")
	}
}

func TestSequence_Contains(t *testing.T) {
	seq := NewSequence(StageWaiting, StagePrinting)

	if !seq.Contains(StagePrinting) {
		t.Error("Contains(PRINTING) = false, want true")
	}
	if seq.Contains(StageDesign) {
		t.Error("Contains(DESIGN) = true, want false")
	}
}

func TestNewSequence_AlternateOrder(t *testing.T) {
	// Sequences are injected, so callers may define shorter pipelines
	seq := NewSequence(StageWaiting, StagePrinting, StageDelivered)

	got, ok := seq.Next(StageWaiting)
	if !ok || got != StagePrinting {
		t.Errorf("Next(WAITING) = (%v, %v), want (PRINTING, true)", got, ok)
	}
	if !seq.IsTerminal(StageDelivered) {
		t.Error("IsTerminal(DELIVERED) = false, want true")
	}
	if seq.First() != StageWaiting {
		t.Errorf("First() = %v, want WAITING", seq.First())
	}
}

func TestNewSequence_PanicsOnDuplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewSequence() should panic on duplicate stage")
		}
	}()

	NewSequence(StageWaiting, StageWaiting)
}

func TestNewSequence_PanicsOnEmpty(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewSequence() should panic on empty sequence")
		}
	}()

	NewSequence()
}
