package engine

// RunStrategy decides, once per loop iteration, whether the kernel should
// continue dispatching events, and optionally names a warm-up end time.
type RunStrategy interface {
	ShouldContinue(ctx *RunContext) bool
	WarmupEndTime() (t float64, ok bool)
}

// DurationStrategy stops once the clock reaches runDuration from zero.
type DurationStrategy struct {
	RunDuration float64
	Warmup      float64
	hasWarmup   bool
}

// NewDurationStrategy builds a strategy with no warm-up.
func NewDurationStrategy(runDuration float64) *DurationStrategy {
	return &DurationStrategy{RunDuration: runDuration}
}

// NewDurationStrategyWithWarmup builds a strategy with warm-up; panics if
// warmup is not in [0, runDuration) since that is a construction-time
// configuration error rather than a runtime one.
func NewDurationStrategyWithWarmup(runDuration, warmup float64) *DurationStrategy {
	if warmup < 0 || warmup >= runDuration {
		panic("engine: warmup must satisfy 0 <= warmup < runDuration")
	}
	return &DurationStrategy{RunDuration: runDuration, Warmup: warmup, hasWarmup: true}
}

func (s *DurationStrategy) ShouldContinue(ctx *RunContext) bool {
	return ctx.Clock() < s.RunDuration
}

func (s *DurationStrategy) WarmupEndTime() (float64, bool) {
	return s.Warmup, s.hasWarmup
}

// AbsoluteTimeStrategy stops once the clock reaches a fixed stop time.
// Functionally identical to DurationStrategy when the clock starts at
// zero, but kept as a distinct type so a stop time unrelated to the
// run's own duration (e.g. coordinated across multiple kernels sharing
// an epoch) reads clearly at call sites.
type AbsoluteTimeStrategy struct {
	StopTime  float64
	Warmup    float64
	hasWarmup bool
}

func NewAbsoluteTimeStrategy(stopTime float64) *AbsoluteTimeStrategy {
	return &AbsoluteTimeStrategy{StopTime: stopTime}
}

func NewAbsoluteTimeStrategyWithWarmup(stopTime, warmup float64) *AbsoluteTimeStrategy {
	if warmup < 0 || warmup >= stopTime {
		panic("engine: warmup must satisfy 0 <= warmup < stopTime")
	}
	return &AbsoluteTimeStrategy{StopTime: stopTime, Warmup: warmup, hasWarmup: true}
}

func (s *AbsoluteTimeStrategy) ShouldContinue(ctx *RunContext) bool {
	return ctx.Clock() < s.StopTime
}

func (s *AbsoluteTimeStrategy) WarmupEndTime() (float64, bool) {
	return s.Warmup, s.hasWarmup
}

// ConditionalStrategy stops once an arbitrary predicate over the run
// context returns false.
type ConditionalStrategy struct {
	Predicate func(ctx *RunContext) bool
	Warmup    float64
	hasWarmup bool
}

func NewConditionalStrategy(predicate func(ctx *RunContext) bool) *ConditionalStrategy {
	return &ConditionalStrategy{Predicate: predicate}
}

func NewConditionalStrategyWithWarmup(predicate func(ctx *RunContext) bool, warmup float64) *ConditionalStrategy {
	if warmup < 0 {
		panic("engine: warmup must satisfy warmup >= 0")
	}
	return &ConditionalStrategy{Predicate: predicate, Warmup: warmup, hasWarmup: true}
}

func (s *ConditionalStrategy) ShouldContinue(ctx *RunContext) bool {
	return s.Predicate(ctx)
}

func (s *ConditionalStrategy) WarmupEndTime() (float64, bool) {
	return s.Warmup, s.hasWarmup
}
