package depot

import "unsafe"

// ComponentID is the stable numeric key assigned to a component type the
// first time it is registered with a Registry.
type ComponentID uint32

// StorageStrategy selects how values of a component type are stored.
type StorageStrategy int

const (
	// StrategyTable packs values into contiguous per-archetype columns for
	// cache-friendly iteration. This is the default.
	StrategyTable StorageStrategy = iota
	// StrategySparse keeps values in a central sparse set so frequent,
	// unpredictable add/remove never moves table rows.
	StrategySparse
)

// DropFunc releases whatever a single component value owns. It receives a
// pointer to the value in place; the slot is reused or discarded afterwards.
type DropFunc func(unsafe.Pointer)

// Component represents a registered data attribute/state that can be
// attached to entities. Components can be used to build queries and access
// declarations. Concrete values are obtained from RegisterComponent.
type Component interface {
	ID() ComponentID
}

// componentTag is the minimal Component implementation embedded into every
// typed accessor handed out by the registry.
type componentTag struct {
	id       ComponentID
	size     uintptr
	strategy StorageStrategy
}

func (t componentTag) ID() ComponentID {
	return t.id
}

// Meta is the public view of a registry record.
type Meta struct {
	Name     string
	Size     uintptr
	Align    uintptr
	Strategy StorageStrategy
	HasDrop  bool
}

// componentMeta is the registry's internal record for one component type.
type componentMeta struct {
	name     string
	size     uintptr
	align    uintptr
	drop     DropFunc
	strategy StorageStrategy
}
