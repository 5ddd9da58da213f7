package monitor

import (
	"context"
	"sort"
	"time"

	"reachwatch/internal/snapshot"
)

// Publisher rebuilds the read-only API snapshot whenever the engine emits
// an event. The UI layer only ever reads snapshot.Get; it never touches
// the store directly.
type Publisher struct {
	engine *Engine
	sched  *Scheduler
}

// StartPublisher subscribes to the engine and keeps the published
// snapshot current until ctx is cancelled.
func StartPublisher(ctx context.Context, engine *Engine, sched *Scheduler) *Publisher {
	p := &Publisher{engine: engine, sched: sched}

	ch := make(chan Event, 64)
	engine.Subscribe(ch)

	p.Refresh()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				p.Refresh()
			}
		}
	}()
	return p
}

// Refresh rebuilds and publishes the snapshot. API handlers call it after
// mutations that do not produce engine events of their own.
func (p *Publisher) Refresh() {
	store := p.engine.Store()
	records := store.Snapshot()

	monitored := make(map[string]bool)
	for _, h := range store.MonitoredSnapshot() {
		monitored[h] = true
	}

	all := make([]snapshot.HostDTO, 0, len(records))
	byHost := make(map[string]snapshot.HostDTO, len(records))

	for host, rec := range records {
		dto := snapshot.HostDTO{
			Host:      host,
			CheckType: string(rec.CheckType),
			Monitored: monitored[host],

			Stable:          rec.Stable.String(),
			ConsecutiveUp:   rec.ConsecutiveUp,
			ConsecutiveDown: rec.ConsecutiveDown,
			InFlight:        rec.InFlight,

			LatencyMs:      rec.LastLatency.Milliseconds(),
			LastStatusCode: rec.LastStatusCode,
			LastError:      rec.LastError,

			TotalChecks: rec.TotalChecks,
			TotalFails:  rec.TotalFails,
		}
		if !rec.LastChecked.IsZero() {
			dto.LastChecked = rec.LastChecked.UTC().Format(time.RFC3339)
		}

		all = append(all, dto)
		byHost[host] = dto
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Host < all[j].Host })

	snapshot.Publish(snapshot.Snapshot{
		Hosts:     all,
		ByHost:    byHost,
		Aggregate: p.engine.Aggregate(),
		Running:   p.sched.IsRunning(),
	})
}
