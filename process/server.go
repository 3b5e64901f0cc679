package process

import (
	"math/rand"

	"github.com/desim/desim/engine"
	"github.com/desim/desim/signal"
	"github.com/desim/desim/stats"
)

// LoadDepartedSignal is emitted when a load finishes service.
type LoadDepartedSignal[L comparable] struct {
	Load  L
	Clock float64
}

// Server serves up to Capacity concurrent loads; service duration per
// load is drawn from a caller-supplied function.
type Server[L comparable] struct {
	capacity    int
	serviceTime func(load L, rng *rand.Rand) float64
	rng         *rand.Rand

	startTimes map[L]float64

	inService *stats.TimeWeightedCounter

	StateChanged signal.Bus[StateChangedSignal]
	LoadDeparted signal.Bus[LoadDepartedSignal[L]]
}

// ServerConfig groups Server construction knobs.
type ServerConfig[L comparable] struct {
	Capacity    int
	ServiceTime func(load L, rng *rand.Rand) float64
	Seed        int64
}

// NewServer builds a Server from cfg.
func NewServer[L comparable](cfg ServerConfig[L]) *Server[L] {
	return &Server[L]{
		capacity:    cfg.Capacity,
		serviceTime: cfg.ServiceTime,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		startTimes:  make(map[L]float64),
		inService:   stats.New(0, 0, false),
	}
}

// Capacity returns the maximum number of concurrently served loads.
func (s *Server[L]) Capacity() int { return s.capacity }

// NumberInService returns the number of loads currently being served.
func (s *Server[L]) NumberInService() int { return len(s.startTimes) }

// Vacancy returns Capacity - NumberInService.
func (s *Server[L]) Vacancy() int { return s.capacity - len(s.startTimes) }

// ServiceStartTime returns the simulation time load began service, and
// whether it is currently in service. This is a read-only projection
// over server-internal state; callers cannot mutate it directly.
func (s *Server[L]) ServiceStartTime(load L) (float64, bool) {
	t, ok := s.startTimes[load]
	return t, ok
}

// InServiceStats exposes the server's occupancy counter for utilization reporting.
func (s *Server[L]) InServiceStats() *stats.TimeWeightedCounter { return s.inService }

// TryStartService is the synchronous fast-accept path: if Vacancy > 0 it
// admits the load, schedules its completion, emits StateChanged, and
// returns true. If full, it returns false without side effects.
func (s *Server[L]) TryStartService(load L, ctx *engine.RunContext) (bool, error) {
	if ctx == nil {
		return false, engine.ErrInvalidArgument
	}
	if len(s.startTimes) >= s.capacity {
		return false, nil
	}

	now := ctx.Clock()
	s.startTimes[load] = now
	s.inService.ObserveCount(len(s.startTimes), now)
	s.StateChanged.Emit(StateChangedSignal{Clock: now, Occupancy: len(s.startTimes)})

	duration := s.serviceTime(load, s.rng)
	return true, ctx.Scheduler().ScheduleAfter(&serviceCompleteEvent[L]{owner: s, load: load}, duration)
}

func (s *Server[L]) handleServiceCompletion(load L, now float64) error {
	if _, ok := s.startTimes[load]; !ok {
		return engine.ErrInconsistentState
	}
	delete(s.startTimes, load)
	s.inService.ObserveCount(len(s.startTimes), now)

	s.LoadDeparted.Emit(LoadDepartedSignal[L]{Load: load, Clock: now})
	s.StateChanged.Emit(StateChangedSignal{Clock: now, Occupancy: len(s.startTimes)})
	return nil
}

// WarmedUp resets the start time of every load still in service to the
// warm-up time, so downstream flow-time metrics use the post-warm-up
// window.
func (s *Server[L]) WarmedUp(warmupTime float64) {
	for load := range s.startTimes {
		s.startTimes[load] = warmupTime
	}
	s.inService.WarmedUp(warmupTime, len(s.startTimes))
}

type serviceCompleteEvent[L comparable] struct {
	engine.BaseEvent
	owner *Server[L]
	load  L
}

func (e *serviceCompleteEvent[L]) Apply(ctx *engine.RunContext) error {
	return e.owner.handleServiceCompletion(e.load, ctx.Clock())
}
func (e *serviceCompleteEvent[L]) EventType() string { return "ServiceComplete" }
func (e *serviceCompleteEvent[L]) TraceDetails() map[string]any {
	return map[string]any{"numberInService": e.owner.NumberInService()}
}
