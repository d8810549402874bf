package depot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
)

// scheduleState tracks the lifecycle of one execution graph:
// unscheduled -> graph-built -> (running -> synced)* -> idle.
type scheduleState int

const (
	stateUnscheduled scheduleState = iota
	stateGraphBuilt
	stateRunning
	stateSynced
	stateIdle
)

type systemNode struct {
	sys     System
	index   int
	wave    int
	lastRun Tick
	deps    []int
}

// schedule owns an ordered collection of systems and the execution graph
// built over their access declarations. Building partitions the systems
// into waves of mutually non-conflicting systems; running dispatches each
// wave to a worker pool and drains the command queue at every wave
// boundary, so structural effects are visible to all subsequent systems.
type schedule struct {
	storage Storage
	nodes   []*systemNode
	byName  Cache[*systemNode]
	waves   [][]*systemNode
	state   scheduleState
	workers int
}

func newSchedule(sto Storage) Schedule {
	return &schedule{
		storage: sto,
		byName: &SimpleCache[*systemNode]{
			itemIndices: make(map[string]int),
			maxCapacity: maxScheduleSystems,
		},
		workers: Config.WorkerCount(),
	}
}

const maxScheduleSystems = 4096

// Add registers a system. Names must be unique within the schedule; the
// registration order is the determinism tie-break for wave assignment.
func (s *schedule) Add(sys System) error {
	if sys.Fn == nil {
		return eris.New("system has no body")
	}
	if sys.Name == "" {
		sys.Name = fmt.Sprintf("system-%d", len(s.nodes))
	}
	if sys.Access == nil {
		sys.Access = newAccessSet()
	}
	node := &systemNode{sys: sys, index: len(s.nodes), wave: -1}
	if _, err := s.byName.Register(sys.Name, node); err != nil {
		return eris.Wrap(err, "failed to register system")
	}
	s.nodes = append(s.nodes, node)
	s.state = stateUnscheduled
	return nil
}

// Build constructs the execution graph. It resolves explicit ordering
// constraints, orders systems topologically (registration order breaks
// ties), and greedily colors them into waves: each system lands in the
// earliest wave after all its ordering predecessors in which it conflicts
// with nothing. UnresolvedDependencyError and AccessConflictError are
// reported here, before any system runs.
func (s *schedule) Build() error {
	for _, node := range s.nodes {
		node.deps = node.deps[:0]
	}
	for _, node := range s.nodes {
		for _, name := range node.sys.RunAfter {
			idx, ok := s.byName.GetIndex(name)
			if !ok {
				return UnresolvedDependencyError{System: node.sys.Name, Missing: name}
			}
			node.deps = append(node.deps, idx)
		}
		for _, name := range node.sys.RunBefore {
			idx, ok := s.byName.GetIndex(name)
			if !ok {
				return UnresolvedDependencyError{System: node.sys.Name, Missing: name}
			}
			target := (*s.byName.GetItem(idx))
			target.deps = append(target.deps, node.index)
		}
	}

	order, err := s.topoOrder()
	if err != nil {
		return err
	}

	s.waves = nil
	for _, node := range order {
		wave := 0
		for _, dep := range node.deps {
			if depWave := s.nodes[dep].wave; depWave >= wave {
				wave = depWave + 1
			}
		}
		for wave < len(s.waves) && s.conflictsWithWave(wave, node) {
			wave++
		}
		for wave >= len(s.waves) {
			s.waves = append(s.waves, nil)
		}
		node.wave = wave
		s.waves[wave] = append(s.waves[wave], node)
	}
	s.state = stateGraphBuilt
	return nil
}

// topoOrder is Kahn's algorithm with lowest-registration-index selection,
// making both the order and the resulting wave layout deterministic.
func (s *schedule) topoOrder() ([]*systemNode, error) {
	n := len(s.nodes)
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for _, node := range s.nodes {
		for _, dep := range node.deps {
			indegree[node.index]++
			dependents[dep] = append(dependents[dep], node.index)
		}
	}
	done := make([]bool, n)
	order := make([]*systemNode, 0, n)
	for len(order) < n {
		picked := -1
		for i := range n {
			if !done[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked == -1 {
			var stuck []string
			for i := range n {
				if !done[i] {
					stuck = append(stuck, s.nodes[i].sys.Name)
				}
			}
			return nil, AccessConflictError{
				Systems: stuck,
				Reason:  "ordering constraints form a cycle",
			}
		}
		done[picked] = true
		order = append(order, s.nodes[picked])
		for _, dependent := range dependents[picked] {
			indegree[dependent]--
		}
	}
	return order, nil
}

func (s *schedule) conflictsWithWave(wave int, node *systemNode) bool {
	for _, other := range s.waves[wave] {
		if node.sys.Access.ConflictsWith(other.sys.Access) {
			return true
		}
	}
	return false
}

// Waves reports the built execution graph as system names per wave.
func (s *schedule) Waves() [][]string {
	out := make([][]string, len(s.waves))
	for i, wave := range s.waves {
		for _, node := range wave {
			out[i] = append(out[i], node.sys.Name)
		}
	}
	return out
}

// Run executes one pass: every wave in order, each dispatched to the worker
// pool, with the command queue drained at every wave boundary. A failing
// system is reported after its wave drains; it aborts neither its wave nor
// the pass. The clock advances at pass start and at every sync, so a write
// made by a later wave is observably newer than an earlier wave's run.
func (s *schedule) Run() error {
	if s.state == stateUnscheduled {
		if err := s.Build(); err != nil {
			return err
		}
	}
	if s.storage.Locked() {
		return LockedStorageError{}
	}

	clock := s.storage.Clock()
	clock.Advance()

	var mu sync.Mutex
	var errs []error
	for _, wave := range s.waves {
		current := clock.Now()
		s.state = stateRunning
		s.storage.Lock()
		s.runWave(wave, current, &mu, &errs)
		for _, node := range wave {
			node.lastRun = current
		}
		s.state = stateSynced
		clock.Advance()
		if err := s.storage.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	s.state = stateIdle
	return errors.Join(errs...)
}

// runWave feeds the wave's systems to a bounded worker pool and blocks
// until every one of them finishes.
func (s *schedule) runWave(wave []*systemNode, current Tick, mu *sync.Mutex, errs *[]error) {
	if len(wave) == 0 {
		return
	}
	workers := min(s.workers, len(wave))
	if workers <= 1 {
		for _, node := range wave {
			s.runSystem(node, current, mu, errs)
		}
		return
	}

	jobs := make(chan *systemNode)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range jobs {
				s.runSystem(node, current, mu, errs)
			}
		}()
	}
	for _, node := range wave {
		jobs <- node
	}
	close(jobs)
	wg.Wait()
}

func (s *schedule) runSystem(node *systemNode, current Tick, mu *sync.Mutex, errs *[]error) {
	ctx := &SystemContext{
		storage: s.storage,
		lastRun: node.lastRun,
		current: current,
	}
	if err := node.sys.Fn(ctx); err != nil {
		mu.Lock()
		*errs = append(*errs, SystemRunError{System: node.sys.Name, Err: err})
		mu.Unlock()
	}
}
