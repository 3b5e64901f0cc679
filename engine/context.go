package engine

// Scheduler is the operation set events and models use to enqueue further
// events. It is implemented by *Kernel; RunContext exposes it so user
// code never touches kernel internals directly.
type Scheduler interface {
	// ScheduleAt enqueues event to fire at absoluteTime. Returns
	// ErrTimeRegression if absoluteTime < current clock, ErrInvalidArgument
	// if event is nil.
	ScheduleAt(event Event, absoluteTime float64) error

	// ScheduleAfter enqueues event to fire at clock + delay, where delay
	// is expressed in ticks and converted via the kernel's
	// ticks-per-unit factor. Returns ErrInvalidArgument for a negative
	// delay or nil event.
	ScheduleAfter(event Event, delay float64) error
}

// RunContext is the read-only view over the kernel handed to events and
// models. Only the kernel mutates the fields backing it.
type RunContext struct {
	kernel *Kernel
}

func newRunContext(k *Kernel) *RunContext {
	return &RunContext{kernel: k}
}

// Clock returns the current simulation time.
func (c *RunContext) Clock() float64 { return c.kernel.clock }

// ExecutedEventCount returns how many events this run has dispatched so far.
func (c *RunContext) ExecutedEventCount() uint64 { return c.kernel.executedEventCount }

// Scheduler returns the scheduling handle for this run.
func (c *RunContext) Scheduler() Scheduler { return c.kernel }
