// Package process implements the four reusable process primitives built
// on top of the engine kernel: Generator, Queue, Server, and Pool.
package process

import (
	"math/rand"

	"github.com/desim/desim/engine"
	"github.com/desim/desim/signal"
)

// LoadGeneratedSignal is emitted every time a Generator produces a load.
type LoadGeneratedSignal[L any] struct {
	Load  L
	Clock float64
}

// Generator produces loads at inter-arrival times drawn from a
// caller-supplied function, using a caller-supplied factory.
type Generator[L any] struct {
	interArrival func(rng *rand.Rand) float64
	factory      func(rng *rand.Rand) L
	skipFirst    bool
	rng          *rand.Rand

	isActive            bool
	startTime           float64
	loadsGeneratedCount int64

	LoadGenerated signal.Bus[LoadGeneratedSignal[L]]
}

// GeneratorConfig groups Generator construction knobs.
type GeneratorConfig[L any] struct {
	InterArrival func(rng *rand.Rand) float64
	Factory      func(rng *rand.Rand) L
	// SkipFirst controls whether the first arrival fires at clock+interArrival()
	// (true) or immediately at activation time (false, the zero value).
	SkipFirst bool
	Seed      int64
}

// NewGenerator builds a Generator from cfg, taking SkipFirst as given: a
// config that leaves it unset gets false, so the first arrival fires at
// activation time.
func NewGenerator[L any](cfg GeneratorConfig[L]) *Generator[L] {
	return &Generator[L]{
		interArrival: cfg.InterArrival,
		factory:      cfg.Factory,
		skipFirst:    cfg.SkipFirst,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
	}
}

// IsActive reports whether the generator is currently producing arrivals.
func (g *Generator[L]) IsActive() bool { return g.isActive }

// StartTime returns the simulation time the generator was last activated,
// or reset to by warm-up.
func (g *Generator[L]) StartTime() float64 { return g.startTime }

// LoadsGeneratedCount returns the number of loads produced since the last
// activation or warm-up.
func (g *Generator[L]) LoadsGeneratedCount() int64 { return g.loadsGeneratedCount }

// Initialize auto-schedules a start event at the current clock, so a
// generator begins producing arrivals as soon as the run starts unless
// the model explicitly withholds that by never calling Initialize.
func (g *Generator[L]) Initialize(ctx *engine.RunContext) error {
	return g.ScheduleStart(ctx)
}

// ScheduleStart enqueues a start event at the current clock.
func (g *Generator[L]) ScheduleStart(ctx *engine.RunContext) error {
	return ctx.Scheduler().ScheduleAt(&generatorStartEvent[L]{owner: g}, ctx.Clock())
}

// ScheduleStop enqueues a stop event at the current clock.
func (g *Generator[L]) ScheduleStop(ctx *engine.RunContext) error {
	return ctx.Scheduler().ScheduleAt(&generatorStopEvent[L]{owner: g}, ctx.Clock())
}

// WarmedUp resets LoadsGeneratedCount to 0 and StartTime to the warm-up
// time; IsActive is left untouched.
func (g *Generator[L]) WarmedUp(time float64) {
	g.loadsGeneratedCount = 0
	g.startTime = time
}

func (g *Generator[L]) handleStart(ctx *engine.RunContext) error {
	g.isActive = true
	g.startTime = ctx.Clock()
	g.loadsGeneratedCount = 0

	if g.skipFirst {
		return ctx.Scheduler().ScheduleAfter(&generatorArriveEvent[L]{owner: g}, g.interArrival(g.rng))
	}
	return ctx.Scheduler().ScheduleAt(&generatorArriveEvent[L]{owner: g}, ctx.Clock())
}

func (g *Generator[L]) handleStop(ctx *engine.RunContext) error {
	g.isActive = false
	return nil
}

func (g *Generator[L]) handleArrive(ctx *engine.RunContext) error {
	if !g.isActive {
		return nil
	}
	load := g.factory(g.rng)
	g.loadsGeneratedCount++
	g.LoadGenerated.Emit(LoadGeneratedSignal[L]{Load: load, Clock: ctx.Clock()})

	return ctx.Scheduler().ScheduleAfter(&generatorArriveEvent[L]{owner: g}, g.interArrival(g.rng))
}

type generatorStartEvent[L any] struct {
	engine.BaseEvent
	owner *Generator[L]
}

func (e *generatorStartEvent[L]) Apply(ctx *engine.RunContext) error { return e.owner.handleStart(ctx) }
func (e *generatorStartEvent[L]) EventType() string                 { return "GeneratorStart" }
func (e *generatorStartEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"isActive": e.owner.isActive}
}

type generatorStopEvent[L any] struct {
	engine.BaseEvent
	owner *Generator[L]
}

func (e *generatorStopEvent[L]) Apply(ctx *engine.RunContext) error { return e.owner.handleStop(ctx) }
func (e *generatorStopEvent[L]) EventType() string                 { return "GeneratorStop" }
func (e *generatorStopEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"isActive": e.owner.isActive}
}

type generatorArriveEvent[L any] struct {
	engine.BaseEvent
	owner *Generator[L]
}

func (e *generatorArriveEvent[L]) Apply(ctx *engine.RunContext) error { return e.owner.handleArrive(ctx) }
func (e *generatorArriveEvent[L]) EventType() string                 { return "GeneratorArrive" }
func (e *generatorArriveEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"loadsGeneratedCount": e.owner.loadsGeneratedCount}
}
