package process

import (
	"github.com/desim/desim/engine"
	"github.com/desim/desim/signal"
	"github.com/desim/desim/stats"
)

// Unbounded marks a Queue with no capacity limit.
const Unbounded = -1

// LoadEnqueuedSignal is emitted when a load successfully joins the queue.
type LoadEnqueuedSignal[L any] struct {
	Load  L
	Clock float64
}

// LoadDequeuedSignal is emitted when a load leaves the head of the queue.
type LoadDequeuedSignal[L any] struct {
	Load  L
	Clock float64
}

// LoadBalkedSignal is emitted when an arriving load is rejected because
// the queue is full.
type LoadBalkedSignal[L any] struct {
	Load  L
	Clock float64
}

// StateChangedSignal is emitted after any mutation to occupancy or gate state.
type StateChangedSignal struct {
	Clock     float64
	Occupancy int
}

// Queue is a bounded FIFO buffer for loads with a gated dequeue.
type Queue[L any] struct {
	capacity  int // Unbounded (-1) or a positive limit
	toDequeue bool
	items     []L

	// pendingEnqueues counts loads already accepted by TryScheduleEnqueue
	// whose enqueueEvent has not yet dispatched. Admission checks reserve
	// against items+pendingEnqueues so that several TryScheduleEnqueue
	// calls made back to back at the same instant (before the kernel has
	// a chance to dispatch any of their enqueue events) correctly balk
	// once the queue's capacity is logically claimed.
	pendingEnqueues int

	occupancy *stats.TimeWeightedCounter

	LoadEnqueued signal.Bus[LoadEnqueuedSignal[L]]
	LoadDequeued signal.Bus[LoadDequeuedSignal[L]]
	LoadBalked   signal.Bus[LoadBalkedSignal[L]]
	StateChanged signal.Bus[StateChangedSignal]

	// Diagnostics carries non-fatal, expected-race informational
	// messages (a full-queue enqueue race) that are
	// neither errors nor domain signals. Keeping them off the error path
	// and off stderr lets a logging dependency stay at the cmd/ boundary
	// instead of leaking into this package.
	Diagnostics signal.Bus[string]
}

// NewQueue builds a Queue with the given capacity (use Unbounded for no
// limit) and dequeue gate initially open.
func NewQueue[L any](capacity int) *Queue[L] {
	return &Queue[L]{
		capacity:  capacity,
		toDequeue: true,
		occupancy: stats.New(0, 0, false),
	}
}

// Occupancy returns the current number of items in the queue.
func (q *Queue[L]) Occupancy() int { return len(q.items) }

// Capacity returns the queue's configured capacity, or Unbounded.
func (q *Queue[L]) Capacity() int { return q.capacity }

// Vacancy returns Capacity - Occupancy, or Unbounded for an unbounded queue.
func (q *Queue[L]) Vacancy() int {
	if q.capacity == Unbounded {
		return Unbounded
	}
	return q.capacity - len(q.items)
}

// ToDequeue reports whether the dequeue gate is open.
func (q *Queue[L]) ToDequeue() bool { return q.toDequeue }

// Occupancy TimeWeightedCounter, exposed for utilization reporting.
func (q *Queue[L]) OccupancyStats() *stats.TimeWeightedCounter { return q.occupancy }

// WaitingItems returns a snapshot of the current FIFO contents, head first.
func (q *Queue[L]) WaitingItems() []L {
	out := make([]L, len(q.items))
	copy(out, q.items)
	return out
}

// TryScheduleEnqueue fast-rejects synchronously when the queue is finite
// and full (emitting LoadBalked and returning false); otherwise it
// schedules an enqueue event at the current clock and returns true.
func (q *Queue[L]) TryScheduleEnqueue(load L, ctx *engine.RunContext) (bool, error) {
	if ctx == nil {
		return false, engine.ErrInvalidArgument
	}
	if q.capacity != Unbounded && len(q.items)+q.pendingEnqueues >= q.capacity {
		q.LoadBalked.Emit(LoadBalkedSignal[L]{Load: load, Clock: ctx.Clock()})
		return false, nil
	}
	if err := ctx.Scheduler().ScheduleAt(&enqueueEvent[L]{owner: q, load: load}, ctx.Clock()); err != nil {
		return false, err
	}
	q.pendingEnqueues++
	return true, nil
}

// TriggerDequeueAttempt enqueues a dequeue event at the current clock if
// the gate is open and the queue is non-empty; otherwise it is a no-op.
// Used by external consumers (e.g. a server becoming idle) to poke the
// queue.
func (q *Queue[L]) TriggerDequeueAttempt(ctx *engine.RunContext) error {
	if !q.toDequeue || len(q.items) == 0 {
		return nil
	}
	return ctx.Scheduler().ScheduleAt(&dequeueEvent[L]{owner: q}, ctx.Clock())
}

// ScheduleUpdateToDequeue enqueues a gate-update event at the current clock.
func (q *Queue[L]) ScheduleUpdateToDequeue(newState bool, ctx *engine.RunContext) error {
	return ctx.Scheduler().ScheduleAt(&updateToDequeueEvent[L]{owner: q, newState: newState}, ctx.Clock())
}

func (q *Queue[L]) handleEnqueue(load L, now float64) {
	q.pendingEnqueues--
	if q.capacity != Unbounded && len(q.items) >= q.capacity {
		q.Diagnostics.Emit("enqueue race: queue became full between accept and dispatch")
		return
	}
	q.items = append(q.items, load)
	q.occupancy.ObserveCount(len(q.items), now)
	q.LoadEnqueued.Emit(LoadEnqueuedSignal[L]{Load: load, Clock: now})
	q.StateChanged.Emit(StateChangedSignal{Clock: now, Occupancy: len(q.items)})
}

func (q *Queue[L]) handleDequeue(now float64) {
	if len(q.items) == 0 || !q.toDequeue {
		return
	}
	load := q.items[0]
	q.items = q.items[1:]
	q.occupancy.ObserveCount(len(q.items), now)
	q.LoadDequeued.Emit(LoadDequeuedSignal[L]{Load: load, Clock: now})
	q.StateChanged.Emit(StateChangedSignal{Clock: now, Occupancy: len(q.items)})
}

func (q *Queue[L]) handleUpdateToDequeue(newState bool, now float64) {
	if q.toDequeue == newState {
		return
	}
	q.toDequeue = newState
	q.StateChanged.Emit(StateChangedSignal{Clock: now, Occupancy: len(q.items)})
}

// WarmedUp resets the occupancy counter's baseline to (warmupTime, currentOccupancy).
func (q *Queue[L]) WarmedUp(warmupTime float64) {
	q.occupancy.WarmedUp(warmupTime, len(q.items))
}

type enqueueEvent[L any] struct {
	engine.BaseEvent
	owner *Queue[L]
	load  L
}

func (e *enqueueEvent[L]) Apply(ctx *engine.RunContext) error {
	e.owner.handleEnqueue(e.load, ctx.Clock())
	return nil
}
func (e *enqueueEvent[L]) EventType() string { return "QueueEnqueue" }
func (e *enqueueEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"occupancy": e.owner.Occupancy()}
}

type dequeueEvent[L any] struct {
	engine.BaseEvent
	owner *Queue[L]
}

func (e *dequeueEvent[L]) Apply(ctx *engine.RunContext) error {
	e.owner.handleDequeue(ctx.Clock())
	return nil
}
func (e *dequeueEvent[L]) EventType() string { return "QueueDequeue" }
func (e *dequeueEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"occupancy": e.owner.Occupancy()}
}

type updateToDequeueEvent[L any] struct {
	engine.BaseEvent
	owner    *Queue[L]
	newState bool
}

func (e *updateToDequeueEvent[L]) Apply(ctx *engine.RunContext) error {
	e.owner.handleUpdateToDequeue(e.newState, ctx.Clock())
	return nil
}
func (e *updateToDequeueEvent[L]) EventType() string { return "QueueUpdateToDequeue" }
func (e *updateToDequeueEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"toDequeue": e.owner.toDequeue}
}
