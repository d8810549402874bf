package depot

// System is one unit of logic registered with a schedule: a body plus the
// static access declaration the scheduler plans around. RunBefore/RunAfter
// name other systems in the same schedule and force strictly earlier/later
// waves regardless of conflict analysis.
type System struct {
	Name      string
	Access    *AccessSet
	RunBefore []string
	RunAfter  []string
	Fn        func(*SystemContext) error
}

// SystemContext is handed to a system body for the duration of one run. It
// carries the change-detection window: lastRun is the tick this system last
// executed at, so Added/Changed filters are per-system, not global.
type SystemContext struct {
	storage Storage
	lastRun Tick
	current Tick
}

// Storage returns the world storage. While a wave runs the storage is
// locked; structural mutations must go through the Enqueue methods, which
// the sync point applies in order.
func (ctx *SystemContext) Storage() Storage {
	return ctx.storage
}

func (ctx *SystemContext) Resources() *Resources {
	return ctx.storage.Resources()
}

// Tick returns the tick this run executes at; writes made through Mut
// accessors are stamped with it.
func (ctx *SystemContext) Tick() Tick {
	return ctx.current
}

// LastRun returns the tick of this system's previous execution, zero on the
// first run.
func (ctx *SystemContext) LastRun() Tick {
	return ctx.lastRun
}

// Bind points a cursor at this run's change-detection window and rewinds
// it. Systems typically build their cursor once at registration and bind it
// each run.
func (ctx *SystemContext) Bind(c *Cursor) *Cursor {
	c.setWindow(ctx.lastRun, ctx.current)
	c.rewind()
	return c
}
