package monitor

// debounceStep folds one raw sample into the run-length counters and
// decides whether the stable verdict moves. It is a pure function; the
// Store owns locking and record mutation.
//
// A threshold of 1 makes every sample authoritative. changed is true only
// when the verdict actually transitioned, so repeated up samples past the
// threshold do not re-fire.
func debounceStep(upCount, downCount int, stable Stability, sample bool, upThreshold, downThreshold int) (newUp, newDown int, newStable Stability, changed bool) {
	if sample {
		newUp, newDown = upCount+1, 0
	} else {
		newUp, newDown = 0, downCount+1
	}

	newStable = stable
	switch {
	case sample && newUp >= upThreshold && stable != StabilityUp:
		newStable = StabilityUp
		changed = true
	case !sample && newDown >= downThreshold && stable != StabilityDown:
		newStable = StabilityDown
		changed = true
	}
	return newUp, newDown, newStable, changed
}
