package depot

import (
	"reflect"
	"unsafe"
)

const maxComponentTypes = 256

// Registry assigns stable ComponentIDs and holds type-erased metadata (size,
// alignment, drop function, storage strategy) for every component type of
// one world. It is an explicit context object: construct it once at startup
// and pass it to the storage it serves. A Registry is not safe for
// concurrent registration; register all types before schedules run.
type Registry struct {
	ids   map[reflect.Type]ComponentID
	metas []componentMeta
}

func newRegistry() *Registry {
	return &Registry{
		ids:   make(map[reflect.Type]ComponentID, 16),
		metas: make([]componentMeta, 0, 16),
	}
}

// Metadata returns the record for id, or UnknownComponentError if the id was
// never issued by this registry.
func (r *Registry) Metadata(id ComponentID) (Meta, error) {
	if int(id) >= len(r.metas) {
		return Meta{}, UnknownComponentError{ID: id}
	}
	m := r.metas[id]
	return Meta{
		Name:     m.name,
		Size:     m.size,
		Align:    m.align,
		Strategy: m.strategy,
		HasDrop:  m.drop != nil,
	}, nil
}

// Count returns how many component types have been registered.
func (r *Registry) Count() int {
	return len(r.metas)
}

func (r *Registry) meta(id ComponentID) *componentMeta {
	return &r.metas[id]
}

func (r *Registry) register(t reflect.Type, strategy StorageStrategy, drop DropFunc) componentTag {
	if id, ok := r.ids[t]; ok {
		existing := &r.metas[id]
		if existing.drop == nil && drop != nil {
			existing.drop = drop
		}
		return componentTag{id: id, size: existing.size, strategy: existing.strategy}
	}
	if len(r.metas) >= maxComponentTypes {
		panic("depot: maximum number of component types reached")
	}
	id := ComponentID(len(r.metas))
	r.ids[t] = id
	r.metas = append(r.metas, componentMeta{
		name:     t.String(),
		size:     t.Size(),
		align:    uintptr(t.Align()),
		drop:     drop,
		strategy: strategy,
	})
	return componentTag{id: id, size: t.Size(), strategy: strategy}
}

// RegisterComponent registers T with table storage and returns its typed
// accessor. Registration is idempotent per type: repeated calls return a
// handle carrying the same ComponentID.
func RegisterComponent[T any](r *Registry) AccessibleComponent[T] {
	tag := r.register(reflect.TypeFor[T](), StrategyTable, nil)
	return AccessibleComponent[T]{Component: tag}
}

// RegisterSparseComponent registers T with sparse-set storage, for component
// types that are added and removed often enough that table moves would
// dominate.
func RegisterSparseComponent[T any](r *Registry) AccessibleComponent[T] {
	tag := r.register(reflect.TypeFor[T](), StrategySparse, nil)
	return AccessibleComponent[T]{Component: tag}
}

// RegisterComponentWithDrop registers T with a destructor that runs when a
// value is removed from its entity, when the entity is destroyed, and on
// storage shutdown.
func RegisterComponentWithDrop[T any](r *Registry, drop func(*T)) AccessibleComponent[T] {
	var erased DropFunc
	if drop != nil {
		erased = func(p unsafe.Pointer) { drop((*T)(p)) }
	}
	tag := r.register(reflect.TypeFor[T](), StrategyTable, erased)
	return AccessibleComponent[T]{Component: tag}
}
