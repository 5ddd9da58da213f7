package monitor

import (
	"context"
	"os/exec"
	"testing"
)

// lookBin resolves a coreutils binary or skips the test on exotic systems.
func lookBin(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func TestPingStrategyExitZeroIsUp(t *testing.T) {
	// stand-in binary that ignores the ping args and exits 0
	s := NewPingStrategy(lookBin(t, "true"))
	res := s.Check(context.Background(), "host.invalid")
	if !res.Reachable {
		t.Fatalf("exit status 0 must mean reachable, got %+v", res)
	}
	if res.StatusCode != 0 {
		t.Fatalf("ICMP probes carry no status code, got %d", res.StatusCode)
	}
}

func TestPingStrategyNonZeroExitIsDown(t *testing.T) {
	s := NewPingStrategy(lookBin(t, "false"))
	res := s.Check(context.Background(), "host.invalid")
	if res.Reachable {
		t.Fatal("non-zero exit must mean unreachable")
	}
	if res.Err == "" {
		t.Fatal("expected a reason for the failure")
	}
}

func TestPingStrategySpawnFailureIsDown(t *testing.T) {
	s := NewPingStrategy("/nonexistent/ping-binary")
	res := s.Check(context.Background(), "host.invalid")
	if res.Reachable {
		t.Fatal("spawn failure must mean unreachable, not an error")
	}
}

func TestPingStrategyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPingStrategy(lookBin(t, "true"))
	res := s.Check(ctx, "host.invalid")
	if res.Reachable {
		t.Fatal("cancelled context must fold into a down sample")
	}
}
