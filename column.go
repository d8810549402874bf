package depot

import "unsafe"

// zeroSized backs pointers handed out for zero-size component types.
var zeroSized [8]byte

// column is the contiguous storage for one component type inside one
// archetype, plus the per-row tick metadata used by change detection.
// Invariant: len(added) == len(changed) == row count of the archetype, and
// len(data) == row count * size.
type column struct {
	id      ComponentID
	size    uintptr
	drop    DropFunc
	data    []byte
	added   []Tick
	changed []Tick
}

func newColumn(id ComponentID, meta *componentMeta) *column {
	return &column{
		id:   id,
		size: meta.size,
		drop: meta.drop,
	}
}

func (c *column) len() int {
	return len(c.added)
}

// ptr returns the address of the value at row. Rows of zero-size types all
// alias one shared slot.
func (c *column) ptr(row int) unsafe.Pointer {
	if c.size == 0 {
		return unsafe.Pointer(&zeroSized)
	}
	return unsafe.Pointer(&c.data[uintptr(row)*c.size])
}

// appendZero adds one zero-valued row stamped at tick.
func (c *column) appendZero(tick Tick) int {
	row := len(c.added)
	if c.size != 0 {
		c.data = append(c.data, make([]byte, c.size)...)
	}
	c.added = append(c.added, tick)
	c.changed = append(c.changed, tick)
	return row
}

// appendFrom adds one row copied from src's row, carrying the source slot's
// tick metadata unchanged. Used when an entity moves between archetypes.
func (c *column) appendFrom(src *column, srcRow int) int {
	row := len(c.added)
	if c.size != 0 {
		start := uintptr(srcRow) * c.size
		c.data = append(c.data, src.data[start:start+c.size]...)
	}
	c.added = append(c.added, src.added[srcRow])
	c.changed = append(c.changed, src.changed[srcRow])
	return row
}

// stampChanged marks the slot mutated at tick. Add-tick <= mutation-tick
// holds because ticks never decrease.
func (c *column) stampChanged(row int, tick Tick) {
	c.changed[row] = tick
}

// swapRemove drops the value at row by moving the last row into its place.
// The caller runs destructors beforehand if the value is being discarded.
func (c *column) swapRemove(row int) {
	last := len(c.added) - 1
	if row < last {
		if c.size != 0 {
			dst := uintptr(row) * c.size
			src := uintptr(last) * c.size
			copy(c.data[dst:dst+c.size], c.data[src:src+c.size])
		}
		c.added[row] = c.added[last]
		c.changed[row] = c.changed[last]
	}
	if c.size != 0 {
		c.data = c.data[:uintptr(last)*c.size]
	}
	c.added = c.added[:last]
	c.changed = c.changed[:last]
}

// runDrop invokes the type's destructor on the value at row, if any.
func (c *column) runDrop(row int) {
	if c.drop != nil {
		c.drop(c.ptr(row))
	}
}
