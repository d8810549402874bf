package depot

import "runtime"

// Config holds global defaults for schedules created without explicit
// settings.
var Config config = config{}

type config struct {
	workerCount int
}

// SetWorkerCount fixes the size of the worker pool used by schedule passes.
// Zero restores the default (one worker per CPU).
func (c *config) SetWorkerCount(n int) {
	c.workerCount = n
}

func (c *config) WorkerCount() int {
	if c.workerCount > 0 {
		return c.workerCount
	}
	return runtime.NumCPU()
}
