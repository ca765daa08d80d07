package transport

import "testing"

func TestFlowControlWatermarks(t *testing.T) {
	fc := NewFlowControl(100) // high=75, low=25

	if a := fc.Update(10); a != ActionNone {
		t.Fatalf("Update(10) = %v, want ActionNone", a)
	}
	if a := fc.Update(80); a != ActionSendXOFF {
		t.Fatalf("Update(80) = %v, want ActionSendXOFF", a)
	}
	if !fc.Paused() {
		t.Fatalf("expected Paused() true after crossing high watermark")
	}
	if a := fc.Update(60); a != ActionNone {
		t.Fatalf("Update(60) while paused = %v, want ActionNone", a)
	}
	if a := fc.Update(20); a != ActionSendXON {
		t.Fatalf("Update(20) = %v, want ActionSendXON", a)
	}
	if fc.Paused() {
		t.Fatalf("expected Paused() false after draining below low watermark")
	}
}
