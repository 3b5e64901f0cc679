package engine

// Model is the top-level composite a Kernel runs: it holds references to
// process components, wires their signal subscriptions, and schedules
// their initial events.
type Model interface {
	ID() string
	Name() string
	Metadata() map[string]string

	// Initialize is called once at the start of a run, before any event
	// is dispatched. It is where a model schedules its initial events.
	Initialize(ctx *RunContext) error
}

// WarmupAware is the capability a Model declares when it wants the
// kernel to call WarmedUp once the run strategy's warm-up end time is
// reached. Checked via a type assertion rather than a required method,
// so a model with nothing to reset doesn't have to implement it.
type WarmupAware interface {
	Model
	WarmedUp(clock float64)
}

// BaseModel provides the identity fields most models embed: an ID, a
// display name, and a free-form metadata map.
type BaseModel struct {
	IDValue   string
	NameValue string
	Meta      map[string]string
}

func (m *BaseModel) ID() string              { return m.IDValue }
func (m *BaseModel) Name() string            { return m.NameValue }
func (m *BaseModel) Metadata() map[string]string { return m.Meta }
