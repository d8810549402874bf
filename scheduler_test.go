package depot

import (
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
)

func noopSystem(*SystemContext) error { return nil }

// TestScheduleWaveAssignment tests conflict-driven wave partitioning
func TestScheduleWaveAssignment(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)
	velComp := RegisterComponent[Velocity](registry)

	schedule := Factory.NewSchedule(storage)

	// Two writers of different components share a wave; a reader of both
	// lands strictly later
	systems := []System{
		{
			Name:   "move",
			Access: Factory.NewAccessSet().Writes(posComp),
			Fn:     noopSystem,
		},
		{
			Name:   "accelerate",
			Access: Factory.NewAccessSet().Writes(velComp),
			Fn:     noopSystem,
		},
		{
			Name:   "render",
			Access: Factory.NewAccessSet().Reads(posComp, velComp),
			Fn:     noopSystem,
		},
	}
	for _, sys := range systems {
		if err := schedule.Add(sys); err != nil {
			t.Fatalf("Failed to add system %q: %v", sys.Name, err)
		}
	}

	if err := schedule.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	waves := schedule.Waves()
	if len(waves) != 2 {
		t.Fatalf("Wave count = %d, want 2: %v", len(waves), waves)
	}
	if len(waves[0]) != 2 || waves[0][0] != "move" || waves[0][1] != "accelerate" {
		t.Errorf("First wave = %v, want [move accelerate]", waves[0])
	}
	if len(waves[1]) != 1 || waves[1][0] != "render" {
		t.Errorf("Second wave = %v, want [render]", waves[1])
	}
}

// TestScheduleOrderingConstraints tests RunBefore/RunAfter forcing waves
// apart even without conflicts
func TestScheduleOrderingConstraints(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)
	velComp := RegisterComponent[Velocity](registry)

	schedule := Factory.NewSchedule(storage)

	systems := []System{
		{
			Name:     "input",
			Access:   Factory.NewAccessSet().Reads(posComp),
			RunAfter: []string{"physics"},
			Fn:       noopSystem,
		},
		{
			Name:      "prepare",
			Access:    Factory.NewAccessSet().Reads(velComp),
			RunBefore: []string{"physics"},
			Fn:        noopSystem,
		},
		{
			Name:   "physics",
			Access: Factory.NewAccessSet(),
			Fn:     noopSystem,
		},
	}
	for _, sys := range systems {
		if err := schedule.Add(sys); err != nil {
			t.Fatalf("Failed to add system %q: %v", sys.Name, err)
		}
	}

	if err := schedule.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	waveOf := func(name string) int {
		for i, wave := range schedule.Waves() {
			for _, n := range wave {
				if n == name {
					return i
				}
			}
		}
		t.Fatalf("System %q missing from waves", name)
		return -1
	}

	if !(waveOf("prepare") < waveOf("physics")) {
		t.Errorf("prepare (wave %d) not before physics (wave %d)", waveOf("prepare"), waveOf("physics"))
	}
	if !(waveOf("physics") < waveOf("input")) {
		t.Errorf("physics (wave %d) not before input (wave %d)", waveOf("physics"), waveOf("input"))
	}
}

// TestScheduleBuildErrors tests dependency and cycle diagnostics
func TestScheduleBuildErrors(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	t.Run("Unresolved dependency", func(t *testing.T) {
		schedule := Factory.NewSchedule(storage)
		err := schedule.Add(System{
			Name:     "orphan",
			RunAfter: []string{"ghost"},
			Fn:       noopSystem,
		})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		err = schedule.Build()
		var unresolved UnresolvedDependencyError
		if !errors.As(err, &unresolved) {
			t.Fatalf("Build error = %v, want UnresolvedDependencyError", err)
		}
		if unresolved.System != "orphan" || unresolved.Missing != "ghost" {
			t.Errorf("UnresolvedDependencyError = %+v, want orphan/ghost", unresolved)
		}
	})

	t.Run("Ordering cycle", func(t *testing.T) {
		schedule := Factory.NewSchedule(storage)
		if err := schedule.Add(System{Name: "a", RunAfter: []string{"b"}, Fn: noopSystem}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if err := schedule.Add(System{Name: "b", RunAfter: []string{"a"}, Fn: noopSystem}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		err := schedule.Build()
		var conflict AccessConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("Build error = %v, want AccessConflictError", err)
		}
		if len(conflict.Systems) != 2 {
			t.Errorf("Cycle names %v, want both systems", conflict.Systems)
		}
	})

	t.Run("Duplicate name", func(t *testing.T) {
		schedule := Factory.NewSchedule(storage)
		if err := schedule.Add(System{Name: "dup", Fn: noopSystem}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if err := schedule.Add(System{Name: "dup", Fn: noopSystem}); err == nil {
			t.Errorf("Adding a duplicate system name succeeded")
		}
	})

	t.Run("Missing body", func(t *testing.T) {
		schedule := Factory.NewSchedule(storage)
		if err := schedule.Add(System{Name: "empty"}); err == nil {
			t.Errorf("Adding a system without a body succeeded")
		}
	})
}

// TestScheduleRunIntegrate tests a full pass moving entities by velocity
func TestScheduleRunIntegrate(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)
	velComp := RegisterComponent[Velocity](registry)

	entities, err := storage.NewEntities(10, posComp, velComp)
	if err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}
	for _, e := range entities {
		if err := velComp.SetOnEntity(storage, e, Velocity{X: 1, Y: 2}); err != nil {
			t.Fatalf("Failed to set velocity: %v", err)
		}
	}

	query := Factory.NewQuery()
	node := query.And(posComp, velComp)
	cursor := Factory.NewCursor(node, storage)

	schedule := Factory.NewSchedule(storage)
	err = schedule.Add(System{
		Name:   "integrate",
		Access: Factory.NewAccessSet().Writes(posComp).Reads(velComp),
		Fn: func(ctx *SystemContext) error {
			cur := ctx.Bind(cursor)
			for cur.Next() {
				pos := posComp.MutFromCursor(cur)
				vel := velComp.GetFromCursor(cur)
				pos.X += vel.X
				pos.Y += vel.Y
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}

	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := schedule.Run(); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for i, e := range entities {
		pos, err := posComp.GetFromEntity(storage, e)
		if err != nil {
			t.Fatalf("Failed to get position: %v", err)
		}
		if pos.X != 2 || pos.Y != 4 {
			t.Errorf("Entity %d position after two passes = %v, want {2 4}", i, *pos)
		}
	}

	// The last pass's wave tick is stamped on every mutated position
	chQuery := Factory.NewQuery()
	chNode := chQuery.And(posComp, chQuery.Changed(posComp))
	chCursor := Factory.NewCursor(chNode, storage)

	chCursor.setWindow(clock.Now()-2, clock.Now())
	stamped := 0
	for chCursor.Next() {
		stamped++
	}
	if stamped != len(entities) {
		t.Errorf("Rows stamped at the pass tick = %d, want %d", stamped, len(entities))
	}

	chCursor.setWindow(clock.Now()-1, clock.Now())
	stamped = 0
	for chCursor.Next() {
		stamped++
	}
	if stamped != 0 {
		t.Errorf("Rows stamped after the pass = %d, want 0", stamped)
	}
}

// TestScheduleChangeDetection tests that Changed rows are observed by a
// downstream system exactly once
func TestScheduleChangeDetection(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)
	healthComp := RegisterComponent[Health](registry)

	const n = 10
	if _, err := storage.NewEntities(n, posComp, healthComp); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	writeThisPass := false
	seenThisPass := 0

	damageQuery := Factory.NewQuery()
	damageNode := damageQuery.And(healthComp)
	damageCursor := Factory.NewCursor(damageNode, storage)

	uiQuery := Factory.NewQuery()
	uiNode := uiQuery.And(healthComp, uiQuery.Changed(healthComp))
	uiCursor := Factory.NewCursor(uiNode, storage)

	schedule := Factory.NewSchedule(storage)
	err := schedule.Add(System{
		Name:   "damage",
		Access: Factory.NewAccessSet().Writes(healthComp),
		Fn: func(ctx *SystemContext) error {
			if !writeThisPass {
				return nil
			}
			cur := ctx.Bind(damageCursor)
			for cur.Next() {
				healthComp.MutFromCursor(cur).Current--
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}
	err = schedule.Add(System{
		Name:   "ui",
		Access: Factory.NewAccessSet().Reads(healthComp),
		Fn: func(ctx *SystemContext) error {
			cur := ctx.Bind(uiCursor)
			for cur.Next() {
				seenThisPass++
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}

	// Pass 1: no writes, but the spawn itself is a fresh change
	seenThisPass = 0
	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if seenThisPass != n {
		t.Errorf("Changed rows on first pass = %d, want %d", seenThisPass, n)
	}

	// Pass 2: the writer mutates every row; the reader sees each once
	writeThisPass = true
	seenThisPass = 0
	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if seenThisPass != n {
		t.Errorf("Changed rows after write pass = %d, want %d", seenThisPass, n)
	}

	// Pass 3: nothing written; nothing may be re-observed
	writeThisPass = false
	seenThisPass = 0
	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if seenThisPass != 0 {
		t.Errorf("Changed rows on quiet pass = %d, want 0", seenThisPass)
	}
}

// TestScheduleCommandsVisibleNextWave tests that commands enqueued in one
// wave are applied before the next wave of the same pass
func TestScheduleCommandsVisibleNextWave(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)

	spawned := false
	counted := -1

	countQuery := Factory.NewQuery()
	countNode := countQuery.And(posComp)
	countCursor := Factory.NewCursor(countNode, storage)

	schedule := Factory.NewSchedule(storage)
	err := schedule.Add(System{
		Name:   "spawner",
		Access: Factory.NewAccessSet().WithCommands(),
		Fn: func(ctx *SystemContext) error {
			if spawned {
				return nil
			}
			spawned = true
			return ctx.Storage().EnqueueNewEntities(3, posComp)
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}
	err = schedule.Add(System{
		Name:     "counter",
		Access:   Factory.NewAccessSet().Reads(posComp),
		RunAfter: []string{"spawner"},
		Fn: func(ctx *SystemContext) error {
			cur := ctx.Bind(countCursor)
			counted = 0
			for cur.Next() {
				counted++
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}

	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The spawner's entities exist by the time the counter's wave runs
	if counted != 3 {
		t.Errorf("Counter saw %d entities, want 3", counted)
	}
	if storage.Locked() {
		t.Errorf("Storage left locked after pass")
	}
}

// TestScheduleSystemFailure tests that a failing system surfaces after its
// wave drains without aborting the pass
func TestScheduleSystemFailure(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	posComp := RegisterComponent[Position](registry)
	velComp := RegisterComponent[Velocity](registry)

	failure := errors.New("simulation diverged")
	var laterRan bool

	schedule := Factory.NewSchedule(storage)
	err := schedule.Add(System{
		Name:   "unstable",
		Access: Factory.NewAccessSet().Writes(posComp),
		Fn: func(ctx *SystemContext) error {
			return failure
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}
	err = schedule.Add(System{
		Name:     "cleanup",
		Access:   Factory.NewAccessSet().Writes(velComp),
		RunAfter: []string{"unstable"},
		Fn: func(ctx *SystemContext) error {
			laterRan = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}

	err = schedule.Run()
	if err == nil {
		t.Fatalf("Run did not surface system failure")
	}

	var runErr SystemRunError
	if !errors.As(err, &runErr) {
		t.Fatalf("Run error = %v, want SystemRunError", err)
	}
	if runErr.System != "unstable" {
		t.Errorf("Failing system = %q, want %q", runErr.System, "unstable")
	}
	if !errors.Is(err, failure) {
		t.Errorf("Run error does not wrap the system's error")
	}
	if !laterRan {
		t.Errorf("Later wave skipped after earlier failure")
	}
	if storage.Locked() {
		t.Errorf("Storage left locked after failing pass")
	}
}

// TestScheduleRunWhileLocked tests that a pass refuses an externally locked
// storage
func TestScheduleRunWhileLocked(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	schedule := Factory.NewSchedule(storage)
	if err := schedule.Add(System{Name: "noop", Fn: noopSystem}); err != nil {
		t.Fatalf("Failed to add system: %v", err)
	}

	storage.Lock()
	err := schedule.Run()
	var locked LockedStorageError
	if !errors.As(err, &locked) {
		t.Errorf("Run on locked storage: error = %v, want LockedStorageError", err)
	}
	if err := storage.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if err := schedule.Run(); err != nil {
		t.Errorf("Run after unlock failed: %v", err)
	}
}

// TestScheduleParallelWave is a smoke test for the worker pool path
func TestScheduleParallelWave(t *testing.T) {
	registry := Factory.NewRegistry()
	clock := Factory.NewClock()
	storage := Factory.NewStorage(registry, clock)

	comps := []Component{
		RegisterComponent[Position](registry),
		RegisterComponent[Velocity](registry),
		RegisterComponent[Health](registry),
		RegisterComponent[stunned](registry),
	}

	Config.SetWorkerCount(4)
	defer Config.SetWorkerCount(0)

	var ran atomic.Int32
	schedule := Factory.NewSchedule(storage)
	for i, comp := range comps {
		sys := System{
			Name:   "writer-" + string(rune('a'+i)),
			Access: Factory.NewAccessSet().Writes(comp),
			Fn: func(ctx *SystemContext) error {
				ran.Add(1)
				return nil
			},
		}
		if err := schedule.Add(sys); err != nil {
			t.Fatalf("Failed to add system: %v", err)
		}
	}

	if err := schedule.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if waves := schedule.Waves(); len(waves) != 1 {
		t.Fatalf("Non-conflicting writers split into %d waves: %v", len(waves), waves)
	}

	if err := schedule.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := ran.Load(); got != int32(len(comps)) {
		t.Errorf("Systems run = %d, want %d", got, len(comps))
	}
}

// TestScheduleWaveSafetyRandomized builds schedules from seeded random
// access sets and checks the wave invariants hold every time
func TestScheduleWaveSafetyRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		registry := Factory.NewRegistry()
		clock := Factory.NewClock()
		store := Factory.NewStorage(registry, clock)

		comps := []Component{
			RegisterComponent[Position](registry),
			RegisterComponent[Velocity](registry),
			RegisterComponent[Health](registry),
			RegisterComponent[stunned](registry),
			RegisterComponent[marker](registry),
			RegisterComponent[fileHandle](registry),
		}

		sched := Factory.NewSchedule(store)
		names := make([]string, 0, 24)
		for i := 0; i < 24; i++ {
			access := Factory.NewAccessSet()
			for _, comp := range comps {
				switch rng.Intn(10) {
				case 0, 1:
					access.Writes(comp)
				case 2, 3, 4:
					access.Reads(comp)
				}
			}
			sys := System{
				Name:   "sys-" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
				Access: access,
				Fn:     noopSystem,
			}
			// Order only against already-registered systems, keeping the
			// constraint graph acyclic
			if len(names) > 0 && rng.Intn(3) == 0 {
				sys.RunAfter = []string{names[rng.Intn(len(names))]}
			}
			if err := sched.Add(sys); err != nil {
				t.Fatalf("trial %d: failed to add system: %v", trial, err)
			}
			names = append(names, sys.Name)
		}

		if err := sched.Build(); err != nil {
			t.Fatalf("trial %d: build failed: %v", trial, err)
		}

		s := sched.(*schedule)
		for w, wave := range s.waves {
			for i := 0; i < len(wave); i++ {
				for j := i + 1; j < len(wave); j++ {
					if wave[i].sys.Access.ConflictsWith(wave[j].sys.Access) {
						t.Errorf("trial %d: wave %d contains conflicting systems %q and %q",
							trial, w, wave[i].sys.Name, wave[j].sys.Name)
					}
				}
			}
			for _, node := range wave {
				for _, dep := range node.deps {
					if s.nodes[dep].wave >= node.wave {
						t.Errorf("trial %d: system %q (wave %d) not after dependency %q (wave %d)",
							trial, node.sys.Name, node.wave, s.nodes[dep].sys.Name, s.nodes[dep].wave)
					}
				}
			}
		}

		if err := sched.Run(); err != nil {
			t.Fatalf("trial %d: run failed: %v", trial, err)
		}
	}
}
