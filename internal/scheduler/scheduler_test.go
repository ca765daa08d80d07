package scheduler

import "testing"

func TestOneShotFiresOnce(t *testing.T) {
	var b Bank
	fired := 0
	b.Start(TimerAckTimeout, 100, false, func() { fired++ })

	b.Tick(50)
	if fired != 0 {
		t.Fatalf("fired too early: %d", fired)
	}
	b.Tick(50)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if b.Active(TimerAckTimeout) {
		t.Fatalf("one-shot timer should be inactive after firing")
	}
	b.Tick(1000)
	if fired != 1 {
		t.Fatalf("one-shot timer fired again: %d", fired)
	}
}

func TestRepeatingFiresEachPeriod(t *testing.T) {
	var b Bank
	fired := 0
	b.Start(TimerRxDedupe, 10, true, func() { fired++ })

	b.Tick(35)
	if fired != 3 {
		t.Fatalf("fired = %d, want 3", fired)
	}
	if !b.Active(TimerRxDedupe) {
		t.Fatalf("repeating timer should remain active")
	}
}

func TestStopPreventsFiring(t *testing.T) {
	var b Bank
	fired := 0
	b.Start(TimerBaudrateChange, 20, false, func() { fired++ })
	b.Stop(TimerBaudrateChange)
	b.Tick(100)
	if fired != 0 {
		t.Fatalf("stopped timer fired")
	}
}

func TestRemainingMs(t *testing.T) {
	var b Bank
	b.Start(TimerStartupStabilization, 50, false, nil)
	if got := b.RemainingMs(TimerStartupStabilization); got != 50 {
		t.Fatalf("RemainingMs = %d, want 50", got)
	}
	b.Tick(30)
	if got := b.RemainingMs(TimerStartupStabilization); got != 20 {
		t.Fatalf("RemainingMs = %d, want 20", got)
	}
}

func TestSelfStoppingCallback(t *testing.T) {
	var b Bank
	fired := 0
	b.Start(TimerAckTimeout, 10, true, func() {
		fired++
		if fired == 2 {
			b.Stop(TimerAckTimeout)
		}
	})
	b.Tick(40)
	if fired != 2 {
		t.Fatalf("fired = %d, want 2 (callback stopped itself)", fired)
	}
}
