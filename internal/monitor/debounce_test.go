package monitor

import "testing"

type stepState struct {
	up, down int
	stable   Stability
}

func feed(t *testing.T, st stepState, samples []bool, upT, downT int) (stepState, []Stability) {
	t.Helper()
	var events []Stability
	for _, s := range samples {
		var changed bool
		st.up, st.down, st.stable, changed = debounceStep(st.up, st.down, st.stable, s, upT, downT)
		if changed {
			events = append(events, st.stable)
		}
	}
	return st, events
}

func TestDebounceTransitions(t *testing.T) {
	// threshold 2: down fires at sample 2, up fires at sample 4
	_, events := feed(t, stepState{}, []bool{false, false, true, true}, 2, 2)
	if len(events) != 2 || events[0] != StabilityDown || events[1] != StabilityUp {
		t.Fatalf("expected [down up], got %v", events)
	}
}

func TestDebounceNoFlapOnSingleBlip(t *testing.T) {
	st, events := feed(t, stepState{}, []bool{true, true, true, false, true, true}, 2, 2)
	for _, ev := range events {
		if ev == StabilityDown {
			t.Fatal("isolated false sample must not transition to down")
		}
	}
	if st.stable != StabilityUp {
		t.Fatalf("expected stable up, got %v", st.stable)
	}
}

func TestDebounceThresholdOneIsImmediate(t *testing.T) {
	_, events := feed(t, stepState{}, []bool{true, false, true}, 1, 1)
	want := []Stability{StabilityUp, StabilityDown, StabilityUp}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d: expected %v, got %v", i, want[i], events[i])
		}
	}
}

func TestDebounceCountersMutuallyExclusive(t *testing.T) {
	st, _ := feed(t, stepState{}, []bool{true, true, false}, 5, 5)
	if st.up != 0 || st.down != 1 {
		t.Fatalf("expected counters (0,1), got (%d,%d)", st.up, st.down)
	}

	st, _ = feed(t, st, []bool{true}, 5, 5)
	if st.up != 1 || st.down != 0 {
		t.Fatalf("expected counters (1,0), got (%d,%d)", st.up, st.down)
	}
}

func TestDebounceNoRepeatFire(t *testing.T) {
	// once stable up, further up samples past the threshold stay silent
	_, events := feed(t, stepState{}, []bool{true, true, true, true}, 2, 2)
	if len(events) != 1 {
		t.Fatalf("expected a single up event, got %d", len(events))
	}
}

func TestDebounceAsymmetricThresholds(t *testing.T) {
	_, events := feed(t, stepState{}, []bool{true, false, false, false}, 1, 3)
	want := []Stability{StabilityUp, StabilityDown}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("expected [up down], got %v", events)
	}
}
