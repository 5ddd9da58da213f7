package monitor

import (
	"context"
	"testing"
	"time"

	"reachwatch/internal/snapshot"
)

func TestPublisherSnapshotContents(t *testing.T) {
	strat := &scriptedStrategy{verdict: map[string]bool{"b": true}}
	engine, store := newTestEngine(1, 1, strat)
	store.Upsert("c")
	store.SetCheckType("c", CheckHTTP)
	store.SetMonitored([]string{"b"})

	sched := NewScheduler(engine, time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := StartPublisher(ctx, engine, sched)

	engine.Tick()
	waitAggregate(t, engine, "all hosts up")
	pub.Refresh()

	snap := snapshot.Get()
	if len(snap.Hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(snap.Hosts))
	}
	// sorted by host identifier
	if snap.Hosts[0].Host != "b" || snap.Hosts[1].Host != "c" {
		t.Fatalf("expected sorted hosts [b c], got %+v", snap.Hosts)
	}

	b := snap.ByHost["b"]
	if !b.Monitored || b.Stable != "up" || b.CheckType != "icmp" {
		t.Fatalf("unexpected DTO for b: %+v", b)
	}
	c := snap.ByHost["c"]
	if c.Monitored || c.Stable != "unknown" || c.CheckType != "http" {
		t.Fatalf("unexpected DTO for c: %+v", c)
	}

	if snap.Aggregate != "all hosts up" {
		t.Fatalf("expected aggregate in snapshot, got %q", snap.Aggregate)
	}
	if snap.Running {
		t.Fatal("scheduler never started; snapshot must say not running")
	}
}
