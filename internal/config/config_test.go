package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
hosts:
  - address: 1.1.1.1
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Monitor.IntervalDur != time.Second {
		t.Errorf("expected default interval 1s, got %v", cfg.Monitor.IntervalDur)
	}
	if cfg.Monitor.UpThreshold != 2 || cfg.Monitor.DownThreshold != 2 {
		t.Errorf("expected default thresholds 2/2, got %d/%d", cfg.Monitor.UpThreshold, cfg.Monitor.DownThreshold)
	}

	h := cfg.Hosts[0]
	if h.Check != "icmp" {
		t.Errorf("expected default check icmp, got %q", h.Check)
	}
	if h.Monitored == nil || !*h.Monitored {
		t.Error("hosts should default to monitored")
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  addr: ":9090"
monitor:
  interval: 2s
  up_threshold: 3
  down_threshold: 1
  privileged_icmp: true
hosts:
  - address: example.com
    check: http
    monitored: false
  - address: 10.0.0.1
    check: icmp
`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Monitor.IntervalDur != 2*time.Second {
		t.Errorf("expected interval 2s, got %v", cfg.Monitor.IntervalDur)
	}
	if !cfg.Monitor.PrivilegedICMP {
		t.Error("expected privileged_icmp true")
	}
	if *cfg.Hosts[0].Monitored {
		t.Error("expected example.com not monitored")
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			"interval off menu",
			"monitor:\n  interval: 3s\n",
			"not one of",
		},
		{
			"bad interval syntax",
			"monitor:\n  interval: soon\n",
			"invalid interval",
		},
		{
			"negative threshold",
			"monitor:\n  up_threshold: -1\n",
			"", // applyDefaults coerces <=0 to the default, so no error
		},
		{
			"missing address",
			"hosts:\n  - check: icmp\n",
			"missing address",
		},
		{
			"duplicate host",
			"hosts:\n  - address: a\n  - address: a\n",
			"duplicate host",
		},
		{
			"unknown check type",
			"hosts:\n  - address: a\n    check: gopher\n",
			"invalid check",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.body))
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
