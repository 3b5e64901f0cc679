package engine

import (
	"sync"
	"time"
)

// kernelState tracks the Unstarted -> Running -> Finished state machine.
type kernelState int

const (
	stateUnstarted kernelState = iota
	stateRunning
	stateFinished
)

// Kernel owns the clock, the FEL, the sequence counter, and the run loop.
// It implements Scheduler. Each Kernel is one-shot: construct a fresh
// Kernel (and fresh primitive instances) per run.
type Kernel struct {
	profileID       string
	profileName     string
	timeUnit        SimulationTimeUnit
	ticksPerUnit    float64
	strategy        RunStrategy
	tracer          Tracer
	model           Model

	state              kernelState
	clock              float64
	executedEventCount uint64
	nextSeq            uint64

	// schedMu guards the FEL and sequence counter. Dispatch itself is
	// single-threaded; this only protects against a future harness
	// invoking ScheduleAt/ScheduleAfter from outside the dispatching
	// goroutine, and against reentrant scheduling from within Apply.
	schedMu sync.Mutex
	fel     *fel
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithTimeUnit sets the SimulationTimeUnit and its ticks-per-unit factor.
// Defaults to Ticks (ticksPerUnit = 1) when not supplied.
func WithTimeUnit(u SimulationTimeUnit) Option {
	return func(k *Kernel) {
		k.timeUnit = u
		k.ticksPerUnit = defaultTicksPerUnit(u)
	}
}

// WithTracer installs a Tracer. Defaults to NopTracer.
func WithTracer(t Tracer) Option {
	return func(k *Kernel) { k.tracer = t }
}

// WithProfile names the run for the Result record.
func WithProfile(id, name string) Option {
	return func(k *Kernel) { k.profileID, k.profileName = id, name }
}

// NewKernel builds a fresh, unstarted Kernel bound to strategy and model.
func NewKernel(strategy RunStrategy, model Model, opts ...Option) *Kernel {
	k := &Kernel{
		strategy:     strategy,
		model:        model,
		timeUnit:     Ticks,
		ticksPerUnit: 1,
		tracer:       NopTracer{},
		fel:          newFEL(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// ScheduleAt implements Scheduler.
func (k *Kernel) ScheduleAt(event Event, absoluteTime float64) error {
	if event == nil {
		return ErrInvalidArgument
	}
	k.schedMu.Lock()
	if absoluteTime < k.clock {
		k.schedMu.Unlock()
		return ErrTimeRegression
	}
	event.setExecutionTime(absoluteTime)
	k.nextSeq++
	event.setID(k.nextSeq)
	k.fel.schedule(event, k.nextSeq)
	k.schedMu.Unlock()

	k.tracer.Trace(TraceRecord{
		Point:     EventScheduled,
		ClockTime: k.clock,
		EventID:   event.ID(),
		EventType: eventTypeName(event),
		Details:   event.TraceDetails(),
	})
	return nil
}

// ScheduleAfter implements Scheduler. delay is expressed in ticks and
// converted into clock units via the kernel's ticks-per-unit factor
// before being added to the current clock.
func (k *Kernel) ScheduleAfter(event Event, delay float64) error {
	if event == nil {
		return ErrInvalidArgument
	}
	if delay < 0 {
		return ErrInvalidArgument
	}
	return k.ScheduleAt(event, k.clock+delay/k.ticksPerUnit)
}

// Run executes one full simulation. Calling Run twice on the same Kernel
// returns a SimulationFault wrapping ErrInvalidState (AlreadyRun).
func (k *Kernel) Run() (*Result, error) {
	if k.state != stateUnstarted {
		return nil, newFault(FaultAlreadyRun, k.clock, ErrInvalidState)
	}
	k.state = stateRunning

	start := time.Now()
	k.clock = 0
	k.executedEventCount = 0
	warmupNotified := false

	ctx := newRunContext(k)

	if err := k.model.Initialize(ctx); err != nil {
		k.state = stateFinished
		return nil, newFault(FaultInitFailed, k.clock, err)
	}

	warmupModel, warmupAware := k.model.(WarmupAware)
	warmupTime, hasWarmup := k.strategy.WarmupEndTime()

	for {
		k.schedMu.Lock()
		pending := k.fel.Len() > 0
		k.schedMu.Unlock()
		if !k.strategy.ShouldContinue(ctx) || !pending {
			break
		}

		k.schedMu.Lock()
		event := k.fel.popNext()
		k.schedMu.Unlock()

		t := event.ExecutionTime()
		if t < k.clock {
			k.state = stateFinished
			return nil, newFault(FaultClockRegression, t, nil)
		}
		k.clock = t

		if hasWarmup && warmupAware && !warmupNotified && k.clock >= warmupTime {
			warmupModel.WarmedUp(k.clock)
			warmupNotified = true
		}

		k.tracer.Trace(TraceRecord{
			Point:     EventExecuting,
			ClockTime: k.clock,
			EventID:   event.ID(),
			EventType: eventTypeName(event),
			Details:   event.TraceDetails(),
		})

		if err := event.Apply(ctx); err != nil {
			k.state = stateFinished
			return nil, newFault(FaultEventFailed, k.clock, err)
		}

		k.tracer.Trace(TraceRecord{
			Point:     EventCompleted,
			ClockTime: k.clock,
			EventID:   event.ID(),
			EventType: eventTypeName(event),
			Details:   event.TraceDetails(),
		})

		k.executedEventCount++
	}

	k.state = stateFinished

	return &Result{
		ProfileRunID:       k.profileID,
		ProfileName:        k.profileName,
		FinalClockTime:     k.clock,
		ExecutedEventCount: k.executedEventCount,
		RealTimeDuration:   time.Since(start),
		ModelID:            k.model.ID(),
		ModelName:          k.model.Name(),
	}, nil
}

func eventTypeName(e Event) string {
	type typed interface{ EventType() string }
	if t, ok := e.(typed); ok {
		return t.EventType()
	}
	return "Event"
}
