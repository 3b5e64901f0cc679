package process

import (
	"testing"

	"github.com/desim/desim/engine"
	"github.com/stretchr/testify/require"
)

type poolTestModel struct {
	engine.BaseModel
	build func(ctx *engine.RunContext) error
}

func (m *poolTestModel) Initialize(ctx *engine.RunContext) error { return m.build(ctx) }

func TestPool_AcquireIsLIFOAndReleaseRequeues(t *testing.T) {
	p := NewPool([]string{"R1", "R2", "R3"})

	var acquired []string
	var released []string
	p.ResourceAcquired.Subscribe(func(s ResourceAcquiredSignal[string]) { acquired = append(acquired, s.Token) })
	p.ResourceReleased.Subscribe(func(s ResourceReleasedSignal[string]) { released = append(released, s.Token) })

	var afterReleaseBusy int
	var reacquired string
	model := &poolTestModel{build: func(ctx *engine.RunContext) error {
		for i := 0; i < 3; i++ {
			_, ok := p.TryAcquire(ctx)
			require.True(t, ok)
		}
		require.NoError(t, p.Release("R2", ctx))
		afterReleaseBusy = p.BusyCount()

		tok, ok := p.TryAcquire(ctx)
		require.True(t, ok)
		reacquired = tok
		return nil
	}}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	// Tokens hand out in LIFO order: R3, R2, R1.
	require.Equal(t, []string{"R3", "R2", "R1"}, acquired[:3])
	require.Equal(t, []string{"R2"}, released)
	require.Equal(t, 2, afterReleaseBusy)
	// R2 is the most recently released token, so it is reacquired next.
	require.Equal(t, "R2", reacquired)
	require.Equal(t, 3, p.BusyCount())
	require.Equal(t, 0, p.AvailableCount())
}

func TestPool_TryAcquireFailsWhenDepleted(t *testing.T) {
	p := NewPool([]int{1})

	var failed int
	p.RequestFailed.Subscribe(func(RequestFailedSignal) { failed++ })

	var secondOk bool
	model := &poolTestModel{build: func(ctx *engine.RunContext) error {
		_, ok := p.TryAcquire(ctx)
		require.True(t, ok)
		_, secondOk = p.TryAcquire(ctx)
		return nil
	}}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	require.False(t, secondOk)
	require.Equal(t, 1, failed)
}

func TestPool_DoubleReleaseIsNoOpWithDiagnostic(t *testing.T) {
	p := NewPool([]int{1, 2})

	var diagnostics []string
	p.Diagnostics.Subscribe(func(msg string) { diagnostics = append(diagnostics, msg) })

	var released int
	p.ResourceReleased.Subscribe(func(ResourceReleasedSignal[int]) { released++ })

	model := &poolTestModel{build: func(ctx *engine.RunContext) error {
		// 1 and 2 both start idle; releasing either without a prior
		// acquire is itself a double-release.
		require.NoError(t, p.Release(1, ctx))
		return nil
	}}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	require.Equal(t, 0, released)
	require.Len(t, diagnostics, 1)
	require.Equal(t, 2, p.AvailableCount())
}

func TestPool_WarmedUpResetsBusyStatsBaseline(t *testing.T) {
	p := NewPool([]int{1, 2})

	model := &poolTestModel{build: func(ctx *engine.RunContext) error {
		_, ok := p.TryAcquire(ctx)
		require.True(t, ok)
		return nil
	}}

	k := engine.NewKernel(engine.NewDurationStrategy(10), model)
	_, err := k.Run()
	require.NoError(t, err)

	p.WarmedUp(5)
	require.Equal(t, 0.0, p.BusyStats().TotalActiveDuration())
	require.Equal(t, 1, p.BusyStats().CurrentCount())
}
