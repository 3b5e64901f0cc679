package process

import (
	"math/rand"
	"testing"

	"github.com/desim/desim/engine"
	"github.com/stretchr/testify/require"
)

type generatorTestModel struct {
	engine.BaseModel
	gen *Generator[int]
}

func (m *generatorTestModel) Initialize(ctx *engine.RunContext) error {
	return m.gen.Initialize(ctx)
}

func (m *generatorTestModel) WarmedUp(clock float64) { m.gen.WarmedUp(clock) }

func newCountingGenerator(interArrival float64) *Generator[int] {
	counter := 0
	return NewGenerator(GeneratorConfig[int]{
		InterArrival: func(rng *rand.Rand) float64 { return interArrival },
		Factory: func(rng *rand.Rand) int {
			counter++
			return counter
		},
		SkipFirst: true,
		Seed:      1,
	})
}

func TestGenerator_ProducesArrivalsAtFixedInterval(t *testing.T) {
	gen := newCountingGenerator(10)
	var generated []int
	gen.LoadGenerated.Subscribe(func(s LoadGeneratedSignal[int]) { generated = append(generated, s.Load) })

	model := &generatorTestModel{gen: gen}
	k := engine.NewKernel(engine.NewDurationStrategy(35), model)
	_, err := k.Run()
	require.NoError(t, err)

	// skipFirst=true: arrivals at 10, 20, 30, and 40. The strategy is
	// checked before each dequeue, and at clock 30 it still sees 30 < 35,
	// so the arrival already scheduled for 40 is dispatched as well.
	require.Equal(t, []int{1, 2, 3, 4}, generated)
	require.EqualValues(t, 4, gen.LoadsGeneratedCount())
	require.True(t, gen.IsActive())
}

func TestGenerator_StopHaltsArrivals(t *testing.T) {
	gen := newCountingGenerator(10)
	var generated []int
	gen.LoadGenerated.Subscribe(func(s LoadGeneratedSignal[int]) { generated = append(generated, s.Load) })

	model := &stoppingGeneratorModel{gen: gen, stopAt: 15}
	k := engine.NewKernel(engine.NewDurationStrategy(50), model)
	_, err := k.Run()
	require.NoError(t, err)

	// Only the t=10 arrival fires before the stop takes effect at t=15;
	// the in-flight t=20 arrival schedules but finds IsActive false.
	require.Equal(t, []int{1}, generated)
	require.False(t, gen.IsActive())
}

type stoppingGeneratorModel struct {
	engine.BaseModel
	gen    *Generator[int]
	stopAt float64
}

func (m *stoppingGeneratorModel) Initialize(ctx *engine.RunContext) error {
	if err := m.gen.Initialize(ctx); err != nil {
		return err
	}
	return ctx.Scheduler().ScheduleAt(&FuncStep{
		fn: func(ctx *engine.RunContext) error { return m.gen.ScheduleStop(ctx) },
	}, m.stopAt)
}

func TestGenerator_WarmupResetsCountAndStartTime(t *testing.T) {
	gen := newCountingGenerator(15)
	model := &generatorTestModel{gen: gen}

	// Stop after exactly 3 dispatched events (start, arrive@15, arrive@30)
	// rather than a duration bound: a duration-bound strategy's
	// check-before-dequeue loop can legitimately dispatch one more event
	// past its nominal boundary, which would make the arrival count here
	// depend on that overshoot instead of on warm-up behavior.
	strategy := engine.NewConditionalStrategyWithWarmup(
		func(ctx *engine.RunContext) bool { return ctx.ExecutedEventCount() < 3 },
		15,
	)
	k := engine.NewKernel(strategy, model)
	_, err := k.Run()
	require.NoError(t, err)

	// arrive@15 coincides exactly with the warm-up boundary: WarmedUp(15)
	// fires before that event's own Apply, resetting count to 0; then
	// arrive@15 and arrive@30 each increment it once more.
	require.EqualValues(t, 2, gen.LoadsGeneratedCount())
	require.Equal(t, 15.0, gen.StartTime())
	require.True(t, gen.IsActive())
}
