package monitor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedStrategy returns a per-host verdict and counts invocations.
type scriptedStrategy struct {
	mu      sync.Mutex
	verdict map[string]bool
	calls   atomic.Int64
	block   chan struct{} // when non-nil, Check waits on it
}

func (f *scriptedStrategy) Check(ctx context.Context, host string) Result {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	up := f.verdict[host]
	f.mu.Unlock()
	if up {
		return Result{Reachable: true}
	}
	return Result{Reachable: false, Err: "scripted failure"}
}

func newTestEngine(up, down int, strat Strategy) (*Engine, *Store) {
	store := NewStore(up, down)
	engine := NewEngine(context.Background(), store, map[CheckType]Strategy{
		CheckICMP: strat,
		CheckHTTP: strat,
	}, testLogger())
	return engine, store
}

func waitFor(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func waitAggregate(t *testing.T, e *Engine, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Aggregate() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("aggregate never became %q, last %q", want, e.Aggregate())
}

func TestEngineTickEmitsUpdateAndTransition(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"a": true}}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a"})

	events := make(chan Event, 16)
	engine.Subscribe(events)

	engine.Tick()

	waitFor(t, events, func(ev Event) bool {
		return ev.Kind == EventHostUpdated && ev.Host == "a"
	})
	ev := waitFor(t, events, func(ev Event) bool {
		return ev.Kind == EventStabilityChanged && ev.Host == "a"
	})
	if !ev.Up {
		t.Fatal("expected an up transition")
	}
	waitAggregate(t, engine, "all hosts up")
}

func TestEngineEmptyMonitoredSetEmitsNoTargets(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{}}
	engine, _ := newTestEngine(1, 1, strat)

	events := make(chan Event, 16)
	engine.Subscribe(events)

	engine.Tick()

	ev := waitFor(t, events, func(ev Event) bool { return ev.Kind == EventAggregateChanged })
	if ev.Aggregate != AggregateNoTargets {
		t.Fatalf("expected %q, got %q", AggregateNoTargets, ev.Aggregate)
	}
	if strat.calls.Load() != 0 {
		t.Fatal("no checks should be dispatched with an empty monitored set")
	}
}

func TestEngineInFlightBackpressure(t *testing.T) {
	strat := &scriptedStrategy{
		verdict: map[string]bool{"a": true},
		block:   make(chan struct{}),
	}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a"})

	events := make(chan Event, 16)
	engine.Subscribe(events)

	engine.Tick()
	engine.Tick()
	engine.Tick()

	// give the dispatch goroutine a moment to start
	deadline := time.Now().Add(time.Second)
	for strat.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := strat.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one in-flight check, got %d", got)
	}

	close(strat.block)
	waitFor(t, events, func(ev Event) bool { return ev.Kind == EventHostUpdated })

	// once the result applied, the next tick may dispatch again
	engine.Tick()
	waitFor(t, events, func(ev Event) bool { return ev.Kind == EventHostUpdated })
	if got := strat.calls.Load(); got != 2 {
		t.Fatalf("expected a second check after completion, got %d", got)
	}
}

func TestEngineAggregateSomeDown(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"a": true, "b": false}}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a", "b"})

	engine.Tick()

	waitAggregate(t, engine, "some hosts down (1 of 2 up)")
}

func TestEngineUnknownDoesNotWalkBackAggregate(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"a": true, "b": true}}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a", "b"})

	engine.Tick()
	waitAggregate(t, engine, "all hosts up")

	// re-arm everything: all hosts go back to Unknown, but with nothing
	// down the aggregate line holds
	engine.SetThresholds(2, 2)
	engine.Tick() // one sample each, still below the new threshold

	time.Sleep(50 * time.Millisecond)
	if got := engine.Aggregate(); got != "all hosts up" {
		t.Fatalf("unknown-only state must keep the prior aggregate, got %q", got)
	}
}

func TestEngineSetCheckTypeTriggersImmediateRecheck(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"a": true}}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a"})
	engine.setActive(true)

	events := make(chan Event, 16)
	engine.Subscribe(events)

	// no tick: the switch alone must dispatch
	engine.SetCheckType("a", CheckHTTP)

	waitFor(t, events, func(ev Event) bool {
		return ev.Kind == EventStabilityChanged && ev.Host == "a" && ev.Up
	})
	if strat.calls.Load() != 1 {
		t.Fatalf("expected one out-of-cycle check, got %d", strat.calls.Load())
	}
}

func TestEngineSetCheckTypeInactiveDoesNotDispatch(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"a": true}}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a"})

	engine.SetCheckType("a", CheckHTTP)

	time.Sleep(50 * time.Millisecond)
	if strat.calls.Load() != 0 {
		t.Fatal("check type switch while stopped must not dispatch")
	}
}

func TestEngineSetCheckTypeResetsBeforeRecheck(t *testing.T) {
	strat := &scriptedStrategy{
		verdict: map[string]bool{"a": true},
		block:   make(chan struct{}),
	}
	engine, store := newTestEngine(1, 1, strat)
	store.SetMonitored([]string{"a"})
	engine.setActive(true)

	// build up some state first
	store.TryBeginCheck("a")
	store.ApplyResult("a", Result{Reachable: true})

	engine.SetCheckType("a", CheckHTTP)

	rec, _ := store.Record("a")
	if rec.ConsecutiveUp != 0 || rec.Stable != StabilityUnknown {
		t.Fatalf("counters must reset before the recheck, got %+v", rec)
	}
	if !rec.InFlight {
		t.Fatal("the out-of-cycle check should be in flight")
	}
	close(strat.block)
}

func TestEngineUnknownStrategyIsDownSample(t *testing.T) {
	engine, store := newTestEngine(1, 1, nil)
	engine.strategies = map[CheckType]Strategy{} // nothing registered
	store.SetMonitored([]string{"a"})

	events := make(chan Event, 16)
	engine.Subscribe(events)

	engine.Tick()

	ev := waitFor(t, events, func(ev Event) bool { return ev.Kind == EventStabilityChanged })
	if ev.Up {
		t.Fatal("missing strategy must fold into a down sample")
	}
	if !strings.Contains(ev.Reason, "no strategy") {
		t.Fatalf("expected a no-strategy reason, got %q", ev.Reason)
	}
}
