package depot

import (
	"reflect"
	"sync"
)

// ResourceKey identifies a resource type in access declarations.
type ResourceKey = reflect.Type

// ResourceKeyFor returns the access-declaration key for resource type T.
func ResourceKeyFor[T any]() ResourceKey {
	return reflect.TypeFor[T]()
}

// Resources is a type-keyed store of singleton values living outside any
// archetype, such as delta time or asset handles. At most one instance exists
// per type; inserting again replaces the old value (running its finalizer
// if one was registered). Reads and writes are guarded by a lock only for
// the store's own bookkeeping: which system may touch which resource during
// a wave is the scheduler's job.
type Resources struct {
	mu     sync.RWMutex
	items  map[ResourceKey]any
	drops  map[ResourceKey]func(any)
}

func newResources() *Resources {
	return &Resources{
		items: make(map[ResourceKey]any),
		drops: make(map[ResourceKey]func(any)),
	}
}

func (r *Resources) insert(key ResourceKey, value any, drop func(any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.items[key]; ok {
		if d := r.drops[key]; d != nil {
			d(old)
		}
	}
	r.items[key] = value
	if drop != nil {
		r.drops[key] = drop
	} else {
		delete(r.drops, key)
	}
}

func (r *Resources) remove(key ResourceKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[key]
	if !ok {
		return false
	}
	if d := r.drops[key]; d != nil {
		d(old)
	}
	delete(r.items, key)
	delete(r.drops, key)
	return true
}

// Clear destroys every resource, running registered finalizers. Called on
// storage shutdown.
func (r *Resources) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, old := range r.items {
		if d := r.drops[key]; d != nil {
			d(old)
		}
	}
	clear(r.items)
	clear(r.drops)
}

// AddResource inserts or replaces the singleton of type T.
func AddResource[T any](r *Resources, value T) {
	v := value
	r.insert(ResourceKeyFor[T](), &v, nil)
}

// AddResourceWithDrop inserts or replaces the singleton of type T with a
// finalizer that runs when the value is replaced, removed, or cleared.
func AddResourceWithDrop[T any](r *Resources, value T, drop func(*T)) {
	v := value
	var erased func(any)
	if drop != nil {
		erased = func(p any) { drop(p.(*T)) }
	}
	r.insert(ResourceKeyFor[T](), &v, erased)
}

// GetResource returns a pointer to the singleton of type T, or false if none
// is present.
func GetResource[T any](r *Resources) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[ResourceKeyFor[T]()]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// MustGetResource is GetResource for resources whose absence is a
// programming error.
func MustGetResource[T any](r *Resources) *T {
	v, ok := GetResource[T](r)
	if !ok {
		panic("depot: required resource not present: " + ResourceKeyFor[T]().String())
	}
	return v
}

// RemoveResource destroys the singleton of type T, reporting whether one
// existed.
func RemoveResource[T any](r *Resources) bool {
	return r.remove(ResourceKeyFor[T]())
}

// HasResource reports whether a singleton of type T is present.
func HasResource[T any](r *Resources) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[ResourceKeyFor[T]()]
	return ok
}
