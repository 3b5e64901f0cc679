package process

import (
	"github.com/desim/desim/engine"
	"github.com/desim/desim/signal"
	"github.com/desim/desim/stats"
)

// ResourceAcquiredSignal is emitted when a token is handed out.
type ResourceAcquiredSignal[R comparable] struct {
	Token R
	Clock float64
}

// ResourceReleasedSignal is emitted when a token returns to the idle list.
type ResourceReleasedSignal[R comparable] struct {
	Token R
	Clock float64
}

// RequestFailedSignal is emitted when an acquire finds the pool depleted.
type RequestFailedSignal struct {
	Clock float64
}

// Pool is a pool of interchangeable tokens of type R. Acquisition is
// synchronous; there is no built-in wait queue — callers compose one
// from Queue if needed.
type Pool[R comparable] struct {
	totalCapacity int
	idle          []R // LIFO: last element is the most recently released
	isIdle        map[R]bool

	busy *stats.TimeWeightedCounter

	ResourceAcquired signal.Bus[ResourceAcquiredSignal[R]]
	ResourceReleased signal.Bus[ResourceReleasedSignal[R]]
	RequestFailed    signal.Bus[RequestFailedSignal]
	Diagnostics      signal.Bus[string]
}

// NewPool builds a Pool with all of tokens initially idle.
func NewPool[R comparable](tokens []R) *Pool[R] {
	p := &Pool[R]{
		totalCapacity: len(tokens),
		idle:          append([]R(nil), tokens...),
		isIdle:        make(map[R]bool, len(tokens)),
		busy:          stats.New(0, 0, false),
	}
	for _, t := range tokens {
		p.isIdle[t] = true
	}
	return p
}

// TotalCapacity returns the fixed number of tokens the pool manages.
func (p *Pool[R]) TotalCapacity() int { return p.totalCapacity }

// AvailableCount returns the number of idle tokens.
func (p *Pool[R]) AvailableCount() int { return len(p.idle) }

// BusyCount returns TotalCapacity - AvailableCount.
func (p *Pool[R]) BusyCount() int { return p.totalCapacity - len(p.idle) }

// BusyStats exposes the pool's busy-count counter for utilization reporting.
func (p *Pool[R]) BusyStats() *stats.TimeWeightedCounter { return p.busy }

// TryAcquire removes and returns the most recently released token (LIFO
// reuse) if one is idle, observing BusyCount and emitting
// ResourceAcquired. If the pool is depleted it emits RequestFailed and
// returns the zero value with ok=false.
func (p *Pool[R]) TryAcquire(ctx *engine.RunContext) (token R, ok bool) {
	now := ctx.Clock()
	if len(p.idle) == 0 {
		p.RequestFailed.Emit(RequestFailedSignal{Clock: now})
		var zero R
		return zero, false
	}

	last := len(p.idle) - 1
	token = p.idle[last]
	p.idle = p.idle[:last]
	p.isIdle[token] = false

	p.busy.ObserveCount(p.BusyCount(), now)
	p.ResourceAcquired.Emit(ResourceAcquiredSignal[R]{Token: token, Clock: now})
	return token, true
}

// Release returns token to the idle list unless it is already idle (a
// double-release) or was never part of this pool's original token set,
// either of which is a no-op that emits a diagnostic rather than
// growing AvailableCount past TotalCapacity.
func (p *Pool[R]) Release(token R, ctx *engine.RunContext) error {
	if ctx == nil {
		return engine.ErrInvalidArgument
	}
	idle, isMember := p.isIdle[token]
	if !isMember {
		p.Diagnostics.Emit("release of token not owned by this pool ignored")
		return nil
	}
	if idle {
		p.Diagnostics.Emit("release of already-idle token ignored")
		return nil
	}

	now := ctx.Clock()
	p.idle = append(p.idle, token)
	p.isIdle[token] = true

	p.busy.ObserveCount(p.BusyCount(), now)
	p.ResourceReleased.Emit(ResourceReleasedSignal[R]{Token: token, Clock: now})
	return nil
}

// WarmedUp resets the busy-count counter's baseline to (warmupTime, currentBusyCount).
func (p *Pool[R]) WarmedUp(warmupTime float64) {
	p.busy.WarmedUp(warmupTime, p.BusyCount())
}
