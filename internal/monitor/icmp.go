package monitor

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-ping/ping"
)

// pingTimeout is the per-packet wait for both ICMP strategies.
const pingTimeout = time.Second

// DefaultPingPath returns the conventional ping binary location for the
// current platform.
func DefaultPingPath() string {
	if runtime.GOOS == "darwin" {
		return "/sbin/ping"
	}
	return "/bin/ping"
}

// PingStrategy shells out linux/darwin-style: one packet, quiet, no reverse
// DNS lookups, one second per-packet wait. Exit status 0 is the whole
// verdict; nothing is parsed from output. A spawn failure is just a down
// sample.
type PingStrategy struct {
	path string
}

func NewPingStrategy(path string) *PingStrategy {
	if path == "" {
		path = DefaultPingPath()
	}
	return &PingStrategy{path: path}
}

func (s *PingStrategy) Check(ctx context.Context, host string) Result {
	start := time.Now()

	cmd := exec.CommandContext(ctx, s.path, pingArgs(host)...)
	if err := cmd.Run(); err != nil {
		// Covers non-zero exit, kill on ctx cancel and spawn failure alike.
		return Result{Reachable: false, Latency: time.Since(start), Err: err.Error()}
	}
	return Result{Reachable: true, Latency: time.Since(start)}
}

// pingArgs builds the fixed argument list. The per-packet wait flag wants
// milliseconds on darwin and whole seconds elsewhere.
func pingArgs(host string) []string {
	wait := "1"
	if runtime.GOOS == "darwin" {
		wait = "1000"
	}
	return []string{"-n", "-q", "-c", "1", "-W", wait, host}
}

// PrivilegedPingStrategy sends the single ICMP echo in-process instead of
// shelling out. Needs a raw socket, so root or the right capability;
// deployments that have it skip one process spawn per probe per tick.
type PrivilegedPingStrategy struct{}

func NewPrivilegedPingStrategy() *PrivilegedPingStrategy {
	return &PrivilegedPingStrategy{}
}

func (s *PrivilegedPingStrategy) Check(ctx context.Context, host string) Result {
	start := time.Now()

	pinger, err := ping.NewPinger(host)
	if err != nil {
		return Result{Reachable: false, Latency: time.Since(start), Err: "create pinger: " + err.Error()}
	}
	pinger.Count = 1
	pinger.Timeout = pingTimeout
	pinger.SetPrivileged(true)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	err = pinger.Run()
	close(done)
	if err != nil {
		return Result{Reachable: false, Latency: time.Since(start), Err: "ping run: " + err.Error()}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return Result{Reachable: false, Latency: time.Since(start), Err: "no reply"}
	}
	return Result{Reachable: true, Latency: stats.AvgRtt}
}
