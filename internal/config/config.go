package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"reachwatch/internal/monitor"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Monitor MonitorConfig `yaml:"monitor"`
	Hosts   []Host        `yaml:"hosts"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MonitorConfig struct {
	Interval       string `yaml:"interval"` // one of 500ms, 1s, 2s, 5s
	UpThreshold    int    `yaml:"up_threshold"`
	DownThreshold  int    `yaml:"down_threshold"`
	UserAgent      string `yaml:"user_agent"`
	PingPath       string `yaml:"ping_path"`
	PrivilegedICMP bool   `yaml:"privileged_icmp"` // in-process ICMP, needs raw sockets

	// Parsed duration (filled after load)
	IntervalDur time.Duration `yaml:"-"`
}

type Host struct {
	Address   string `yaml:"address"`
	Check     string `yaml:"check"` // icmp or http
	Monitored *bool  `yaml:"monitored,omitempty"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateAndNormalize(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}

	if strings.TrimSpace(cfg.Monitor.Interval) == "" {
		cfg.Monitor.Interval = "1s"
	}
	if cfg.Monitor.UpThreshold <= 0 {
		cfg.Monitor.UpThreshold = 2
	}
	if cfg.Monitor.DownThreshold <= 0 {
		cfg.Monitor.DownThreshold = 2
	}
	if strings.TrimSpace(cfg.Monitor.UserAgent) == "" {
		cfg.Monitor.UserAgent = monitor.DefaultUserAgent
	}
	if strings.TrimSpace(cfg.Monitor.PingPath) == "" {
		cfg.Monitor.PingPath = monitor.DefaultPingPath()
	}

	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if h.Monitored == nil {
			v := true
			h.Monitored = &v
		}
		if strings.TrimSpace(h.Check) == "" {
			h.Check = string(monitor.DefaultCheckType)
		}
	}
}

func validateAndNormalize(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		return fmt.Errorf("config: invalid interval %q: %w", cfg.Monitor.Interval, err)
	}
	if !monitor.AllowedInterval(d) {
		return fmt.Errorf("config: interval %q not one of 500ms/1s/2s/5s", cfg.Monitor.Interval)
	}
	cfg.Monitor.IntervalDur = d

	if cfg.Monitor.UpThreshold < 1 {
		return fmt.Errorf("config: up_threshold must be >= 1, got %d", cfg.Monitor.UpThreshold)
	}
	if cfg.Monitor.DownThreshold < 1 {
		return fmt.Errorf("config: down_threshold must be >= 1, got %d", cfg.Monitor.DownThreshold)
	}

	seen := make(map[string]struct{}, len(cfg.Hosts))
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]

		h.Address = strings.TrimSpace(h.Address)
		h.Check = strings.ToLower(strings.TrimSpace(h.Check))

		if h.Address == "" {
			return fmt.Errorf("config: host[%d] missing address", i)
		}
		if _, ok := seen[h.Address]; ok {
			return fmt.Errorf("config: duplicate host %q", h.Address)
		}
		seen[h.Address] = struct{}{}

		switch monitor.CheckType(h.Check) {
		case monitor.CheckICMP, monitor.CheckHTTP:
		default:
			return fmt.Errorf("config: host %q invalid check %q (use icmp or http)", h.Address, h.Check)
		}
	}

	return nil
}
