package depot

import (
	"unsafe"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"
)

var _ Storage = &storage{}

// storage is the archetype store for one world. The registry and clock are
// explicit collaborators passed in at construction so multiple independent
// worlds can coexist in a process.
type storage struct {
	locked     bool
	registry   *Registry
	clock      *Clock
	archetypes *archetypes
	sparse     map[ComponentID]*sparseSet
	alloc      allocator
	opQueue    opQueue
	resources  *Resources
}

type archetypes struct {
	nextID           archetypeID
	asSlice          []*archetype
	idsGroupedByMask map[mask.Mask]archetypeID
	generation       uint32
}

func newStorage(registry *Registry, clock *Clock) Storage {
	return &storage{
		registry: registry,
		clock:    clock,
		archetypes: &archetypes{
			nextID:           1,
			idsGroupedByMask: make(map[mask.Mask]archetypeID),
		},
		sparse:    make(map[ComponentID]*sparseSet),
		opQueue:   newOpQueue(),
		resources: newResources(),
	}
}

func (sto *storage) Registry() *Registry {
	return sto.registry
}

func (sto *storage) Clock() *Clock {
	return sto.clock
}

func (sto *storage) Resources() *Resources {
	return sto.resources
}

// Entity returns the current live handle for an entity index, or
// InvalidEntityError if the index is dead or was never issued.
func (sto *storage) Entity(id uint32) (Entity, error) {
	if id == 0 || int(id) > len(sto.alloc.records) {
		return Entity{}, InvalidEntityError{Entity: Entity{ID: id}}
	}
	rec := &sto.alloc.records[id-1]
	if !rec.alive {
		return Entity{}, InvalidEntityError{Entity: Entity{ID: id}}
	}
	return Entity{ID: id, Gen: rec.gen}, nil
}

func (sto *storage) Alive(e Entity) bool {
	return sto.alloc.alive(e)
}

func (sto *storage) NewEntity(components ...Component) (Entity, error) {
	entities, err := sto.NewEntities(1, components...)
	if err != nil {
		return Entity{}, err
	}
	return entities[0], nil
}

func (sto *storage) NewEntities(n int, components ...Component) ([]Entity, error) {
	if sto.locked {
		return nil, LockedStorageError{}
	}
	if len(components) == 0 {
		return nil, eris.New("cannot create entities without components")
	}
	components, entityMask, err := sto.normalize(components)
	if err != nil {
		return nil, err
	}
	arch := sto.getOrCreateArchetype(entityMask, components)

	tick := sto.clock.Now()
	entities := make([]Entity, n)
	for i := range n {
		e := sto.alloc.allocate()
		row := arch.appendRow(e, tick)
		for _, comp := range components {
			if set := sto.sparse[comp.ID()]; set != nil {
				set.insert(e.ID, tick)
			}
		}
		rec := &sto.alloc.records[e.ID-1]
		rec.arch = arch.id
		rec.row = row
		entities[i] = e
	}
	return entities, nil
}

// DestroyEntities despawns entities, running component destructors and
// freeing indices for reuse. Dead or stale handles are skipped silently so
// destroy stays idempotent.
func (sto *storage) DestroyEntities(entities ...Entity) error {
	if sto.locked {
		return LockedStorageError{}
	}
	for _, e := range entities {
		rec := sto.alloc.record(e)
		if rec == nil {
			continue
		}
		arch := sto.archetypes.byID(rec.arch)
		arch.runDrops(rec.row)
		for _, comp := range arch.comps {
			if set := sto.sparse[comp.ID()]; set != nil {
				set.remove(e.ID)
			}
		}
		if moved, ok := arch.swapRemove(rec.row); ok {
			sto.alloc.records[moved.ID-1].row = rec.row
		}
		sto.alloc.free(e)
	}
	return nil
}

// AddComponent attaches c to e, moving the entity to the archetype holding
// its current set plus c. Retained component values move with it; their tick
// metadata is preserved.
func (sto *storage) AddComponent(e Entity, c Component) error {
	if sto.locked {
		return LockedStorageError{}
	}
	rec := sto.alloc.record(e)
	if rec == nil {
		return InvalidEntityError{Entity: e}
	}
	if err := sto.known(c); err != nil {
		return err
	}
	src := sto.archetypes.byID(rec.arch)
	destMask := src.mask
	destMask.Mark(uint32(c.ID()))
	if destMask == src.mask {
		return ComponentExistsError{Component: c}
	}

	comps := iter_util.Collect(src.Components())
	comps = append(comps, c)
	dst := sto.getOrCreateArchetype(destMask, comps)

	tick := sto.clock.Now()
	if set := sto.sparse[c.ID()]; set != nil {
		set.insert(e.ID, tick)
	}
	sto.moveEntity(rec, e, src, dst, tick)
	return nil
}

// RemoveComponent detaches c from e, running its destructor and moving the
// entity to the archetype holding its current set minus c.
func (sto *storage) RemoveComponent(e Entity, c Component) error {
	if sto.locked {
		return LockedStorageError{}
	}
	rec := sto.alloc.record(e)
	if rec == nil {
		return InvalidEntityError{Entity: e}
	}
	if err := sto.known(c); err != nil {
		return err
	}
	src := sto.archetypes.byID(rec.arch)
	destMask := src.mask
	destMask.Unmark(uint32(c.ID()))
	if destMask == src.mask {
		return ComponentNotFoundError{Component: c}
	}

	if set := sto.sparse[c.ID()]; set != nil {
		set.remove(e.ID)
	} else if col := src.column(c.ID()); col != nil {
		col.runDrop(rec.row)
	}

	var comps []Component
	for _, comp := range iter_util.Collect(src.Components()) {
		if comp.ID() != c.ID() {
			comps = append(comps, comp)
		}
	}
	dst := sto.getOrCreateArchetype(destMask, comps)
	sto.moveEntity(rec, e, src, dst, sto.clock.Now())
	return nil
}

// moveEntity transfers e's row from src to dst with swap-remove-and-append
// semantics. Columns present in both archetypes copy value and ticks;
// columns only in dst start zeroed and stamped at tick.
func (sto *storage) moveEntity(rec *entityRecord, e Entity, src, dst *archetype, tick Tick) {
	srcRow := rec.row
	dstRow := len(dst.entities)
	dst.entities = append(dst.entities, e)
	for id, dcol := range dst.columns {
		if scol := src.column(id); scol != nil {
			dcol.appendFrom(scol, srcRow)
		} else {
			dcol.appendZero(tick)
		}
	}
	if moved, ok := src.swapRemove(srcRow); ok {
		sto.alloc.records[moved.ID-1].row = srcRow
	}
	rec.arch = dst.id
	rec.row = dstRow
}

// access resolves e's slot for component id, returning the value address and
// a stamp callback that marks the slot mutated.
func (sto *storage) access(e Entity, id ComponentID) (unsafe.Pointer, func(Tick), error) {
	rec := sto.alloc.record(e)
	if rec == nil {
		return nil, nil, InvalidEntityError{Entity: e}
	}
	if int(id) >= sto.registry.Count() {
		return nil, nil, UnknownComponentError{ID: id}
	}
	if set := sto.sparse[id]; set != nil {
		p, ok := set.ptr(e.ID)
		if !ok {
			return nil, nil, ComponentNotFoundError{Component: componentTag{id: id}}
		}
		eid := e.ID
		return p, func(t Tick) { set.stampChanged(eid, t) }, nil
	}
	arch := sto.archetypes.byID(rec.arch)
	col := arch.column(id)
	if col == nil {
		return nil, nil, ComponentNotFoundError{Component: componentTag{id: id}}
	}
	row := rec.row
	return col.ptr(row), func(t Tick) { col.stampChanged(row, t) }, nil
}

func (sto *storage) Locked() bool {
	return sto.locked
}

func (sto *storage) Lock() {
	sto.locked = true
}

// Unlock reopens the storage for structural changes and drains the deferred
// command queue, making every queued mutation visible before the next wave.
func (sto *storage) Unlock() error {
	sto.locked = false
	if err := sto.processOperationQueue(); err != nil {
		return eris.Wrap(err, "sync point failed")
	}
	return nil
}

// Shutdown destroys every live entity and resource, running destructors.
func (sto *storage) Shutdown() {
	for id := range sto.alloc.records {
		rec := &sto.alloc.records[id]
		if rec.alive {
			_ = sto.DestroyEntities(Entity{ID: uint32(id + 1), Gen: rec.gen})
		}
	}
	sto.resources.Clear()
}

func (sto *storage) EnqueueNewEntities(amount int, components ...Component) error {
	if !sto.locked {
		_, err := sto.NewEntities(amount, components...)
		if err != nil {
			return eris.Wrap(err, "failed to create entities directly")
		}
		return nil
	}
	sto.opQueue.enqueue(operation{
		typ:    opSpawn,
		amount: amount,
		comps:  components,
	})
	return nil
}

func (sto *storage) EnqueueDestroyEntities(entities ...Entity) error {
	if !sto.locked {
		return sto.DestroyEntities(entities...)
	}
	for _, e := range entities {
		sto.opQueue.enqueue(operation{typ: opDestroy, entity: e})
	}
	return nil
}

func (sto *storage) EnqueueAddComponent(e Entity, c Component) error {
	if !sto.locked {
		return sto.AddComponent(e, c)
	}
	sto.opQueue.enqueue(operation{typ: opAddComponent, entity: e, comps: []Component{c}})
	return nil
}

func (sto *storage) EnqueueRemoveComponent(e Entity, c Component) error {
	if !sto.locked {
		return sto.RemoveComponent(e, c)
	}
	sto.opQueue.enqueue(operation{typ: opRemoveComponent, entity: e, comps: []Component{c}})
	return nil
}

// normalize validates registration, drops duplicates, and builds the mask
// for a component set.
func (sto *storage) normalize(components []Component) ([]Component, mask.Mask, error) {
	var entityMask mask.Mask
	deduped := make([]Component, 0, len(components))
	for _, comp := range components {
		if err := sto.known(comp); err != nil {
			return nil, entityMask, err
		}
		var bit mask.Mask
		bit.Mark(uint32(comp.ID()))
		if entityMask.ContainsAll(bit) {
			continue
		}
		entityMask.Mark(uint32(comp.ID()))
		deduped = append(deduped, comp)
	}
	return deduped, entityMask, nil
}

func (sto *storage) known(c Component) error {
	if int(c.ID()) >= sto.registry.Count() {
		return UnknownComponentError{ID: c.ID()}
	}
	return nil
}

func (sto *storage) getOrCreateArchetype(archMask mask.Mask, components []Component) *archetype {
	if id, found := sto.archetypes.idsGroupedByMask[archMask]; found {
		return sto.archetypes.byID(id)
	}
	created := newArchetype(sto.registry, sto.archetypes.nextID, archMask, components)
	sto.archetypes.asSlice = append(sto.archetypes.asSlice, created)
	sto.archetypes.idsGroupedByMask[archMask] = sto.archetypes.nextID
	sto.archetypes.nextID++
	sto.archetypes.generation++
	for _, comp := range components {
		id := comp.ID()
		if sto.registry.meta(id).strategy == StrategySparse && sto.sparse[id] == nil {
			sto.sparse[id] = newSparseSet(sto.registry.meta(id))
		}
	}
	return created
}

func (a *archetypes) byID(id archetypeID) *archetype {
	return a.asSlice[id-1]
}
