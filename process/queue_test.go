package process

import (
	"testing"

	"github.com/desim/desim/engine"
	"github.com/stretchr/testify/require"
)

type queueTestModel struct {
	engine.BaseModel
	queue   *Queue[string]
	fn      func(ctx *engine.RunContext, q *Queue[string])
}

func (m *queueTestModel) Initialize(ctx *engine.RunContext) error {
	m.fn(ctx, m.queue)
	return nil
}

func TestQueue_FiniteQueueBalking(t *testing.T) {
	q := NewQueue[string](2)
	var balked []string
	q.LoadBalked.Subscribe(func(s LoadBalkedSignal[string]) { balked = append(balked, s.Load) })

	var accepted []bool
	model := &queueTestModel{
		queue: q,
		fn: func(ctx *engine.RunContext, q *Queue[string]) {
			for _, load := range []string{"L1", "L2", "L3"} {
				ok, err := q.TryScheduleEnqueue(load, ctx)
				require.NoError(t, err)
				accepted = append(accepted, ok)
			}
		},
	}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, []bool{true, true, false}, accepted)
	require.Equal(t, []string{"L3"}, balked)
	require.Equal(t, 2, q.Occupancy())
	require.Equal(t, []string{"L1", "L2"}, q.WaitingItems())
}

func TestQueue_UnboundedEnqueueDequeueBalances(t *testing.T) {
	q := NewQueue[int](Unbounded)
	var enqueued, dequeued int

	q.LoadEnqueued.Subscribe(func(LoadEnqueuedSignal[int]) { enqueued++ })
	q.LoadDequeued.Subscribe(func(LoadDequeuedSignal[int]) { dequeued++ })

	model := &queueTestModel2{
		queue: q,
		fn: func(ctx *engine.RunContext, q *Queue[int]) {
			for i := 0; i < 5; i++ {
				_, err := q.TryScheduleEnqueue(i, ctx)
				require.NoError(t, err)
			}
		},
	}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	// Drain with a second run since the enqueue events already fired;
	// trigger dequeues directly against the same queue (no kernel needed
	// beyond a context for scheduling, so build a tiny follow-up kernel).
	drain := &queueDrainModel{queue: q, n: 5}
	k2 := engine.NewKernel(engine.NewDurationStrategy(10), drain)
	_, err = k2.Run()
	require.NoError(t, err)

	require.Equal(t, 5, enqueued)
	require.Equal(t, 5, dequeued)
	require.Equal(t, 0, q.Occupancy())
}

type queueTestModel2 struct {
	engine.BaseModel
	queue *Queue[int]
	fn    func(ctx *engine.RunContext, q *Queue[int])
}

func (m *queueTestModel2) Initialize(ctx *engine.RunContext) error {
	m.fn(ctx, m.queue)
	return nil
}

type queueDrainModel struct {
	engine.BaseModel
	queue *Queue[int]
	n     int
}

func (m *queueDrainModel) Initialize(ctx *engine.RunContext) error {
	for i := 0; i < m.n; i++ {
		if err := m.queue.TriggerDequeueAttempt(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TestQueue_GateClosedDequeueIsNoOp chains three steps as same-time
// events so each step only observes effects the kernel has actually
// dispatched, never a pending-but-unexecuted schedule: enqueue, then
// (once enqueued) close the gate, then (once closed) attempt a dequeue.
func TestQueue_GateClosedDequeueIsNoOp(t *testing.T) {
	q := NewQueue[int](Unbounded)
	model := &chainedStepsModel{}
	model.build = func(ctx *engine.RunContext) error {
		_, err := q.TryScheduleEnqueue(1, ctx)
		if err != nil {
			return err
		}
		return ctx.Scheduler().ScheduleAt(&FuncStep{
			fn: func(ctx *engine.RunContext) error {
				if err := q.ScheduleUpdateToDequeue(false, ctx); err != nil {
					return err
				}
				return ctx.Scheduler().ScheduleAt(&FuncStep{
					fn: func(ctx *engine.RunContext) error {
						return q.TriggerDequeueAttempt(ctx)
					},
				}, ctx.Clock())
			},
		}, ctx.Clock())
	}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, 1, q.Occupancy())
	require.False(t, q.ToDequeue())
}

type chainedStepsModel struct {
	engine.BaseModel
	build func(ctx *engine.RunContext) error
}

func (m *chainedStepsModel) Initialize(ctx *engine.RunContext) error {
	return m.build(ctx)
}

// FuncStep is a minimal engine.Event for chaining test steps that must
// each observe only already-dispatched state.
type FuncStep struct {
	engine.BaseEvent
	fn func(ctx *engine.RunContext) error
}

func (e *FuncStep) Apply(ctx *engine.RunContext) error { return e.fn(ctx) }
func (e *FuncStep) TraceDetails() map[string]any       { return nil }
