package depot

import "unsafe"

// AccessibleComponent extends a base Component with typed access to stored
// values. Get* methods read; Mut* methods read for writing and stamp the
// slot's mutation-tick, which is what Changed filters observe. Which systems
// may call Mut* concurrently is proven safe by the scheduler, not checked
// here.
type AccessibleComponent[T any] struct {
	Component
}

// GetFromCursor returns the component value for the entity at the cursor
// position, for reading.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return (*T)(c.cursorPtr(cursor))
}

// MutFromCursor returns the component value for the entity at the cursor
// position and stamps its mutation-tick with the cursor's current tick.
func (c AccessibleComponent[T]) MutFromCursor(cursor *Cursor) *T {
	p := c.cursorPtr(cursor)
	c.stampCursor(cursor)
	return (*T)(p)
}

// GetFromCursorSafe checks presence first, covering optional components.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// MutFromCursorSafe is MutFromCursor for optional components.
func (c AccessibleComponent[T]) MutFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.MutFromCursor(cursor)
}

// CheckCursor reports whether the archetype at the cursor position carries
// this component.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	arch := cursor.currentArchetype
	if arch == nil {
		return false
	}
	if arch.column(c.ID()) != nil {
		return true
	}
	sto := cursor.storage.(*storage)
	if set := sto.sparse[c.ID()]; set != nil {
		return set.has(cursor.CurrentEntity().ID)
	}
	return false
}

// GetFromEntity resolves the component value for a specific entity in O(1),
// for reading. It returns InvalidEntityError for dead handles and
// ComponentNotFoundError when the entity lacks the component.
func (c AccessibleComponent[T]) GetFromEntity(sto Storage, e Entity) (*T, error) {
	p, _, err := sto.(*storage).access(e, c.ID())
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// MutFromEntity is GetFromEntity for writing; the slot's mutation-tick is
// stamped with the storage clock's current tick.
func (c AccessibleComponent[T]) MutFromEntity(sto Storage, e Entity) (*T, error) {
	s := sto.(*storage)
	p, stamp, err := s.access(e, c.ID())
	if err != nil {
		return nil, err
	}
	stamp(s.clock.Now())
	return (*T)(p), nil
}

// SetOnEntity overwrites the component value for e, stamping its
// mutation-tick.
func (c AccessibleComponent[T]) SetOnEntity(sto Storage, e Entity, value T) error {
	p, err := c.MutFromEntity(sto, e)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// AddToEntity attaches the component to e with an initial value.
func (c AccessibleComponent[T]) AddToEntity(sto Storage, e Entity, value T) error {
	if err := sto.AddComponent(e, c); err != nil {
		return err
	}
	return c.SetOnEntity(sto, e, value)
}

func (c AccessibleComponent[T]) cursorPtr(cursor *Cursor) unsafe.Pointer {
	arch := cursor.currentArchetype
	row := cursor.entityIndex - 1
	if col := arch.column(c.ID()); col != nil {
		return col.ptr(row)
	}
	sto := cursor.storage.(*storage)
	if set := sto.sparse[c.ID()]; set != nil {
		if p, ok := set.ptr(arch.entities[row].ID); ok {
			return p
		}
	}
	panic("depot: component not present in matched archetype")
}

func (c AccessibleComponent[T]) stampCursor(cursor *Cursor) {
	arch := cursor.currentArchetype
	row := cursor.entityIndex - 1
	if col := arch.column(c.ID()); col != nil {
		col.stampChanged(row, cursor.current)
		return
	}
	sto := cursor.storage.(*storage)
	if set := sto.sparse[c.ID()]; set != nil {
		set.stampChanged(arch.entities[row].ID, cursor.current)
	}
}
