package monitor

import "context"

// Strategy performs a single reachability probe for one host. Check may
// block on process exit or network I/O; the engine always runs it on its
// own goroutine, never on the scheduler's.
type Strategy interface {
	Check(ctx context.Context, host string) Result
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(ctx context.Context, host string) Result

func (f StrategyFunc) Check(ctx context.Context, host string) Result {
	return f(ctx, host)
}
