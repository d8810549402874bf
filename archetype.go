package depot

import (
	"iter"
	"sort"

	"github.com/TheBitDrifter/mask"
)

type archetypeID uint32

// archetype groups every entity sharing one exact component set. Dense
// component types get a column each; sparse-strategy types contribute to the
// mask (so queries and moves see them) but store values centrally.
// Invariant: all columns and the entities slice share one row count, and row
// i across all of them belongs to the same entity. Archetypes are created
// lazily and never deleted, which keeps query resolution cacheable.
type archetype struct {
	id       archetypeID
	mask     mask.Mask
	comps    []Component
	columns  map[ComponentID]*column
	entities []Entity
}

func newArchetype(registry *Registry, id archetypeID, archMask mask.Mask, components []Component) *archetype {
	sorted := make([]Component, len(components))
	copy(sorted, components)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	a := &archetype{
		id:      id,
		mask:    archMask,
		comps:   sorted,
		columns: make(map[ComponentID]*column, len(sorted)),
	}
	for _, comp := range sorted {
		meta := registry.meta(comp.ID())
		if meta.strategy == StrategyTable {
			a.columns[comp.ID()] = newColumn(comp.ID(), meta)
		}
	}
	return a
}

func (a *archetype) ID() uint32 {
	return uint32(a.id)
}

func (a *archetype) Mask() mask.Mask {
	return a.mask
}

func (a *archetype) rowCount() int {
	return len(a.entities)
}

func (a *archetype) column(id ComponentID) *column {
	return a.columns[id]
}

// Components yields the archetype's component set in id order.
func (a *archetype) Components() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		for _, c := range a.comps {
			if !yield(c) {
				return
			}
		}
	}
}

// appendRow adds a zero-valued row for e stamped at tick and returns its
// index.
func (a *archetype) appendRow(e Entity, tick Tick) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for _, col := range a.columns {
		col.appendZero(tick)
	}
	return row
}

// swapRemove deletes row with swap-remove semantics. It returns the entity
// that was moved into the vacated row and true, or false when the removed
// row was last. Destructors are the caller's concern.
func (a *archetype) swapRemove(row int) (Entity, bool) {
	last := len(a.entities) - 1
	moved := row < last
	var movedEntity Entity
	if moved {
		movedEntity = a.entities[last]
		a.entities[row] = movedEntity
	}
	a.entities = a.entities[:last]
	for _, col := range a.columns {
		col.swapRemove(row)
	}
	return movedEntity, moved
}

// runDrops runs destructors for every dense value in row. Used on destroy.
func (a *archetype) runDrops(row int) {
	for _, col := range a.columns {
		col.runDrop(row)
	}
}
