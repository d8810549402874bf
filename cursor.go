package depot

import (
	"iter"
)

var _ iCursor = &Cursor{}

// Cursor iterates the entities matched by a query: a lazy, finite,
// restartable walk over the columns of every matching archetype. The
// resolved archetype set is cached and refreshed only when storage has
// created a new archetype since the last resolution.
type Cursor struct {
	// The query to filter entities
	query QueryNode

	// The storage to iterate over
	storage Storage

	// Change-detection window; rows with ticks at or before lastSeen are
	// skipped by Added/Changed filters.
	changeFilters []*changeNode
	lastSeen      Tick
	current       Tick

	// Current iteration state
	currentArchetype *archetype
	storageIndex     int
	entityIndex      int
	remaining        int

	// Cached resolution state
	initialized     bool
	matchedStorages []*archetype
	generation      uint32
}

func newCursor(query QueryNode, sto Storage) *Cursor {
	return &Cursor{
		query:         query,
		storage:       sto,
		changeFilters: collectChangeFilters(query),
		current:       sto.Clock().Now(),
	}
}

// setWindow binds the cursor to a system's change-detection window before a
// run. lastSeen is the tick the system last executed at.
func (c *Cursor) setWindow(lastSeen, current Tick) {
	c.lastSeen = lastSeen
	c.current = current
}

// Next advances to the next matching entity, skipping rows outside the
// change window. It returns false and rewinds once iteration is exhausted.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	for {
		if c.entityIndex < c.remaining {
			c.entityIndex++
			if c.rowMatches(c.entityIndex - 1) {
				return true
			}
			continue
		}
		c.storageIndex++
		c.entityIndex = 0
		if c.storageIndex >= len(c.matchedStorages) {
			c.rewind()
			return false
		}
		c.currentArchetype = c.matchedStorages[c.storageIndex]
		c.remaining = c.currentArchetype.rowCount()
	}
}

// Entities yields every matching entity, rewinding when done or when the
// caller stops early.
func (c *Cursor) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for c.Next() {
			if !yield(c.CurrentEntity()) {
				c.rewind()
				return
			}
		}
	}
}

func (c *Cursor) initialize() {
	sto := c.storage.(*storage)
	if c.matchedStorages == nil || c.generation != sto.archetypes.generation {
		c.matchedStorages = c.matchedStorages[:0]
		for _, arch := range sto.archetypes.asSlice {
			if c.query.Evaluate(arch) {
				c.matchedStorages = append(c.matchedStorages, arch)
			}
		}
		c.generation = sto.archetypes.generation
	}
	c.storageIndex = 0
	c.entityIndex = 0
	if len(c.matchedStorages) > 0 {
		c.currentArchetype = c.matchedStorages[0]
		c.remaining = c.currentArchetype.rowCount()
	} else {
		c.currentArchetype = nil
		c.remaining = 0
	}
	c.initialized = true
}

// rowMatches applies the query's change filters to one row.
func (c *Cursor) rowMatches(row int) bool {
	if len(c.changeFilters) == 0 {
		return true
	}
	sto := c.storage.(*storage)
	for _, filter := range c.changeFilters {
		for _, comp := range filter.components {
			var tick Tick
			if set := sto.sparse[comp.ID()]; set != nil {
				id := c.currentArchetype.entities[row].ID
				var ok bool
				if filter.kind == changeAdded {
					tick, ok = set.addedTick(id)
				} else {
					tick, ok = set.changedTick(id)
				}
				if !ok {
					return false
				}
			} else {
				col := c.currentArchetype.column(comp.ID())
				if col == nil {
					return false
				}
				if filter.kind == changeAdded {
					tick = col.added[row]
				} else {
					tick = col.changed[row]
				}
			}
			if tick <= c.lastSeen {
				return false
			}
		}
	}
	return true
}

// rewind restarts iteration but keeps the resolved archetype cache.
func (c *Cursor) rewind() {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.currentArchetype = nil
	c.initialized = false
}

// Reset restarts iteration and forces re-resolution against storage on the
// next advance.
func (c *Cursor) Reset() {
	c.rewind()
	c.matchedStorages = nil
}

// CurrentEntity returns the entity at the cursor position.
func (c *Cursor) CurrentEntity() Entity {
	return c.currentArchetype.entities[c.entityIndex-1]
}

func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

// TotalMatched counts rows in structurally matching archetypes, before
// change filtering.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.initialize()
	}
	total := 0
	for _, arch := range c.matchedStorages {
		total += arch.rowCount()
	}
	return total
}
