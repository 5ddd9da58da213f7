package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// AggregateNoTargets is emitted when the monitored set is empty.
const AggregateNoTargets = "no targets"

// Engine fans a tick out into at most one concurrent check per monitored
// host, folds results back through the store's debounce step and pushes
// events to subscribers. It is also the facade the config/UI layer drives:
// host membership, monitored set, check types and thresholds all go
// through it so the aggregate line and the event stream stay consistent.
type Engine struct {
	store      *Store
	strategies map[CheckType]Strategy
	logger     *slog.Logger

	// ctx is app-lifetime: stopping the scheduler must not cancel checks
	// already in flight.
	ctx    context.Context
	active atomic.Bool

	mu            sync.Mutex
	subs          []chan<- Event
	lastAggregate string
}

func NewEngine(ctx context.Context, store *Store, strategies map[CheckType]Strategy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ctx:        ctx,
		store:      store,
		strategies: strategies,
		logger:     logger,
	}
}

// Store exposes the underlying state table for read-mostly consumers.
func (e *Engine) Store() *Store { return e.store }

// Subscribe registers an event channel. Sends are non-blocking: a
// subscriber that cannot keep up loses events rather than stalling the
// engine.
func (e *Engine) Subscribe(ch chan<- Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, ch)
}

func (e *Engine) emit(ev Event) {
	ev.At = time.Now()

	e.mu.Lock()
	subs := make([]chan<- Event, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			e.logger.Warn("subscriber channel full; dropping event", "kind", ev.Kind, "host", ev.Host)
		}
	}
}

// Tick runs one check pass over the monitored set. Hosts with a check
// already outstanding are skipped; that is backpressure, not an error.
func (e *Engine) Tick() {
	hosts := e.store.MonitoredSnapshot()
	if len(hosts) == 0 {
		e.setAggregate(AggregateNoTargets)
		return
	}

	for _, host := range hosts {
		e.dispatch(host)
	}
	e.recomputeAggregate()
}

// CheckNow fires a single out-of-cycle check, subject to the same
// in-flight guard as a tick.
func (e *Engine) CheckNow(host string) {
	e.dispatch(host)
}

func (e *Engine) dispatch(host string) {
	rec, ok := e.store.Record(host)
	if !ok {
		return
	}
	if !e.store.TryBeginCheck(host) {
		e.logger.Debug("check already in flight; skipping", "host", host)
		return
	}

	strategy := e.strategies[rec.CheckType]
	go func() {
		var res Result
		if strategy == nil {
			res = Result{Reachable: false, Err: fmt.Sprintf("no strategy for check type %q", rec.CheckType)}
		} else {
			res = strategy.Check(e.ctx, host)
		}
		e.apply(host, res)
	}()
}

func (e *Engine) apply(host string, res Result) {
	stable, changed := e.store.ApplyResult(host, res)

	rec, ok := e.store.Record(host)
	if !ok {
		// Removed while the check was in flight; nothing to report.
		return
	}

	e.emit(Event{
		Kind:       EventHostUpdated,
		Host:       host,
		StatusCode: rec.LastStatusCode,
		Reason:     rec.LastError,
	})

	if changed {
		e.logger.Info("host stability changed", "host", host, "stable", stable.String())
		e.emit(Event{
			Kind:       EventStabilityChanged,
			Host:       host,
			Up:         stable == StabilityUp,
			StatusCode: rec.LastStatusCode,
			Reason:     rec.LastError,
		})
	}

	e.recomputeAggregate()
}

// recomputeAggregate rebuilds the overall status line. Hosts still at
// Unknown and no host down keeps the prior line: a half-armed debounce is
// not a reason to walk back "all hosts up".
func (e *Engine) recomputeAggregate() {
	monitored := e.store.MonitoredSnapshot()
	if len(monitored) == 0 {
		e.setAggregate(AggregateNoTargets)
		return
	}

	snap := e.store.Snapshot()
	up, down := 0, 0
	for _, host := range monitored {
		switch snap[host].Stable {
		case StabilityUp:
			up++
		case StabilityDown:
			down++
		}
	}

	switch {
	case down > 0:
		e.setAggregate(fmt.Sprintf("some hosts down (%d of %d up)", up, len(monitored)))
	case up == len(monitored):
		e.setAggregate("all hosts up")
	}
}

func (e *Engine) setAggregate(text string) {
	e.mu.Lock()
	if e.lastAggregate == text {
		e.mu.Unlock()
		return
	}
	e.lastAggregate = text
	e.mu.Unlock()

	e.logger.Info("aggregate status changed", "status", text)
	e.emit(Event{Kind: EventAggregateChanged, Aggregate: text})
}

// Aggregate returns the last emitted status line.
func (e *Engine) Aggregate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAggregate
}

// setActive is flipped by the scheduler; check-type switches only trigger
// an immediate recheck while a monitoring run is active.
func (e *Engine) setActive(v bool) { e.active.Store(v) }

// Upsert adds a host to the table without monitoring it.
func (e *Engine) Upsert(host string) { e.store.Upsert(host) }

// Remove drops a host entirely.
func (e *Engine) Remove(host string) {
	e.store.Remove(host)
	e.recomputeAggregate()
}

// SetMonitored replaces the monitored set.
func (e *Engine) SetMonitored(hosts []string) {
	e.store.SetMonitored(hosts)
	e.recomputeAggregate()
}

// ToggleMonitored flips one host and reports the new membership.
func (e *Engine) ToggleMonitored(host string) bool {
	on := e.store.ToggleMonitored(host)
	e.recomputeAggregate()
	return on
}

// SetCheckType switches a host's probe strategy, re-arming its debounce
// state, and rechecks it immediately when a run is active rather than
// leaving the host Unknown until the next tick.
func (e *Engine) SetCheckType(host string, ct CheckType) {
	monitored := e.store.SetCheckType(host, ct)
	e.emit(Event{Kind: EventHostUpdated, Host: host})
	if monitored && e.active.Load() {
		e.CheckNow(host)
	}
}

// SetThresholds replaces both debounce thresholds and re-arms every host.
func (e *Engine) SetThresholds(up, down int) {
	e.store.SetThresholds(up, down)
}

// resetTransient backs the scheduler's stop semantics.
func (e *Engine) resetTransient() {
	e.store.ResetTransient()
}
