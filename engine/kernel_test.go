package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedModel schedules a fixed list of named events at fixed times
// from Initialize, recording execution order as each fires. It always
// satisfies WarmupAware; warmupAware decides whether WarmedUp calls are
// recorded.
type scriptedModel struct {
	BaseModel
	schedule     []struct {
		name string
		at   float64
	}
	executed     []string
	warmedUpAt   []float64
	warmupAware  bool
}

func (m *scriptedModel) Initialize(ctx *RunContext) error {
	for _, s := range m.schedule {
		name := s.name
		ev := &FuncEvent{
			Name: name,
			Fn: func(ctx *RunContext) error {
				m.executed = append(m.executed, name)
				return nil
			},
		}
		if err := ctx.Scheduler().ScheduleAt(ev, s.at); err != nil {
			return err
		}
	}
	return nil
}

func (m *scriptedModel) WarmedUp(clock float64) {
	if !m.warmupAware {
		return
	}
	m.warmedUpAt = append(m.warmedUpAt, clock)
}

var _ WarmupAware = (*scriptedModel)(nil)

func TestKernel_TwoEventFIFOTieBreak(t *testing.T) {
	model := &scriptedModel{
		schedule: []struct {
			name string
			at   float64
		}{
			{"A", 2.0},
			{"B", 2.0},
		},
	}
	k := NewKernel(NewDurationStrategy(10), model)
	result, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, []string{"A", "B"}, model.executed)
	require.Equal(t, 2.0, result.FinalClockTime)
	require.EqualValues(t, 2, result.ExecutedEventCount)
}

func TestKernel_ClockAdvancement(t *testing.T) {
	model := &scriptedModel{
		schedule: []struct {
			name string
			at   float64
		}{
			{"t3", 3.0},
			{"t1", 1.0},
			{"t2", 2.0},
		},
	}
	k := NewKernel(NewDurationStrategy(10), model)
	result, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, []string{"t1", "t2", "t3"}, model.executed)
	require.Equal(t, 3.0, result.FinalClockTime)
}

func TestKernel_DurationStrategyWithWarmup(t *testing.T) {
	model := &scriptedModel{
		warmupAware: true,
		schedule: []struct {
			name string
			at   float64
		}{
			{"only", 5.0},
		},
	}
	strategy := NewDurationStrategyWithWarmup(10, 5)
	k := NewKernel(strategy, model)
	result, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, []float64{5.0}, model.warmedUpAt)
	require.EqualValues(t, 1, result.ExecutedEventCount)
	require.Equal(t, 5.0, result.FinalClockTime)
}

func TestKernel_RunTwiceFails(t *testing.T) {
	model := &scriptedModel{}
	k := NewKernel(NewDurationStrategy(10), model)

	_, err := k.Run()
	require.NoError(t, err)

	_, err = k.Run()
	require.Error(t, err)
	var fault *SimulationFault
	require.True(t, errors.As(err, &fault))
	require.Equal(t, FaultAlreadyRun, fault.Kind)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestKernel_ScheduleAtRejectsTimeInPast(t *testing.T) {
	model := &scriptedModel{}
	k := NewKernel(NewDurationStrategy(10), model)
	// Manually advance the clock without going through Run.
	k.clock = 5

	err := k.ScheduleAt(&FuncEvent{}, 1)
	require.ErrorIs(t, err, ErrTimeRegression)
}

func TestKernel_ScheduleAfterRejectsNegativeDelay(t *testing.T) {
	model := &scriptedModel{}
	k := NewKernel(NewDurationStrategy(10), model)
	err := k.ScheduleAfter(&FuncEvent{}, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestKernel_EventFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	model := &scriptedModel{}
	k := NewKernel(NewDurationStrategy(10), model)

	// Inject a failing event directly via a custom model wrapper.
	failing := &scriptedFailModel{err: boom}
	k2 := NewKernel(NewDurationStrategy(10), failing)
	_, err := k2.Run()
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	_ = model
	_ = k
}

type scriptedFailModel struct {
	BaseModel
	err error
}

func (m *scriptedFailModel) Initialize(ctx *RunContext) error {
	return ctx.Scheduler().ScheduleAt(&FuncEvent{
		Fn: func(ctx *RunContext) error { return m.err },
	}, 0)
}
