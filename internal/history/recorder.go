// Package history persists debounced stability transitions. It is a pure
// consumer of engine events: the monitoring core itself stores nothing.
package history

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"reachwatch/internal/monitor"
)

const schema = `
CREATE TABLE IF NOT EXISTS reach_transitions (
    id          BIGSERIAL PRIMARY KEY,
    host        TEXT        NOT NULL,
    at          TIMESTAMPTZ NOT NULL,
    is_up       BOOLEAN     NOT NULL,
    status_code INT,
    reason      TEXT
);
CREATE INDEX IF NOT EXISTS reach_transitions_host_at
    ON reach_transitions (host, at DESC);
`

// EnsureSchema creates the transitions table if missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// StartRecorder subscribes to the engine and writes one row per stability
// transition. Inserts are best-effort; a failed write is logged and the
// event dropped, never retried.
func StartRecorder(ctx context.Context, engine *monitor.Engine, db *pgxpool.Pool, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan monitor.Event, 64)
	engine.Subscribe(ch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Kind != monitor.EventStabilityChanged {
					continue
				}
				if err := persistTransition(ctx, db, ev); err != nil {
					logger.Warn("transition persist failed", "host", ev.Host, "error", err)
				}
			}
		}
	}()
}

func persistTransition(ctx context.Context, db *pgxpool.Pool, ev monitor.Event) error {
	_, err := db.Exec(ctx, `
		INSERT INTO reach_transitions (host, at, is_up, status_code, reason)
		VALUES ($1, $2, $3, NULLIF($4, 0), NULLIF($5, ''))
	`, ev.Host, ev.At, ev.Up, ev.StatusCode, ev.Reason)
	return err
}
