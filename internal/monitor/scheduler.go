package monitor

import (
	"log/slog"
	"sync"
	"time"
)

// initialDelay is the short head start before the first timed pass; an
// immediate pass also fires the moment Start is called.
const initialDelay = 100 * time.Millisecond

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = time.Second

// AllowedIntervals is the menu of tick periods the config/UI layer may
// pick from.
var AllowedIntervals = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
	5 * time.Second,
}

// AllowedInterval reports whether d is on the menu.
func AllowedInterval(d time.Duration) bool {
	for _, v := range AllowedIntervals {
		if d == v {
			return true
		}
	}
	return false
}

// Scheduler drives the engine's tick on a repeating timer. It is a two
// state machine: Stopped and Running. Stopping resets all transient host
// state but preserves check types, so a later Start re-arms from scratch.
type Scheduler struct {
	engine *Engine
	logger *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	running  bool
}

func NewScheduler(engine *Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Start arms the timer, cancelling any previous run first. The first pass
// fires immediately and asynchronously.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopCh)
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.engine.setActive(true)
	s.logger.Info("monitoring started", "interval", s.interval)

	go s.loop(s.stopCh, s.interval)
}

func (s *Scheduler) loop(stop <-chan struct{}, interval time.Duration) {
	go s.engine.Tick()

	timer := time.NewTimer(initialDelay)
	select {
	case <-stop:
		timer.Stop()
		return
	case <-timer.C:
	}
	s.engine.Tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.engine.Tick()
		}
	}
}

// Stop cancels the timer and resets every host's counters, stable verdict
// and in-flight flag. Checks already dispatched are not cancelled; their
// results apply to the freshly reset records when they land.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.engine.setActive(false)
	s.engine.resetTransient()
	s.logger.Info("monitoring stopped")
}

// IsRunning reports the current state.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the configured tick period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval swaps the tick period. While running this is a stop
// followed by a start, which carries the stop's transient reset with it.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	wasRunning := s.running
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()

	if wasRunning {
		s.Start()
	}
}
