package depot

import (
	"unsafe"

	"github.com/kamstrup/intmap"
)

// sparseSet stores values of one StrategySparse component type for a whole
// world, keyed by entity index. Add/remove touches only this set and never
// moves table rows, at the price of an extra lookup during iteration.
type sparseSet struct {
	size    uintptr
	drop    DropFunc
	index   *intmap.Map[uint32, int]
	ids     []uint32
	data    []byte
	added   []Tick
	changed []Tick
}

func newSparseSet(meta *componentMeta) *sparseSet {
	return &sparseSet{
		size:  meta.size,
		drop:  meta.drop,
		index: intmap.New[uint32, int](64),
	}
}

func (s *sparseSet) has(id uint32) bool {
	_, ok := s.index.Get(id)
	return ok
}

// insert adds a zero-valued slot for id stamped at tick. Inserting an id
// that is already present is a no-op returning the existing slot.
func (s *sparseSet) insert(id uint32, tick Tick) int {
	if dense, ok := s.index.Get(id); ok {
		return dense
	}
	dense := len(s.ids)
	s.ids = append(s.ids, id)
	if s.size != 0 {
		s.data = append(s.data, make([]byte, s.size)...)
	}
	s.added = append(s.added, tick)
	s.changed = append(s.changed, tick)
	s.index.Put(id, dense)
	return dense
}

func (s *sparseSet) ptr(id uint32) (unsafe.Pointer, bool) {
	dense, ok := s.index.Get(id)
	if !ok {
		return nil, false
	}
	if s.size == 0 {
		return unsafe.Pointer(&zeroSized), true
	}
	return unsafe.Pointer(&s.data[uintptr(dense)*s.size]), true
}

func (s *sparseSet) addedTick(id uint32) (Tick, bool) {
	dense, ok := s.index.Get(id)
	if !ok {
		return 0, false
	}
	return s.added[dense], true
}

func (s *sparseSet) changedTick(id uint32) (Tick, bool) {
	dense, ok := s.index.Get(id)
	if !ok {
		return 0, false
	}
	return s.changed[dense], true
}

func (s *sparseSet) stampChanged(id uint32, tick Tick) {
	if dense, ok := s.index.Get(id); ok {
		s.changed[dense] = tick
	}
}

// remove drops the value for id, running the destructor. Removing an absent
// id is a no-op.
func (s *sparseSet) remove(id uint32) {
	dense, ok := s.index.Get(id)
	if !ok {
		return
	}
	if s.drop != nil {
		if p, ok := s.ptr(id); ok {
			s.drop(p)
		}
	}
	last := len(s.ids) - 1
	if dense < last {
		lastID := s.ids[last]
		s.ids[dense] = lastID
		if s.size != 0 {
			dst := uintptr(dense) * s.size
			src := uintptr(last) * s.size
			copy(s.data[dst:dst+s.size], s.data[src:src+s.size])
		}
		s.added[dense] = s.added[last]
		s.changed[dense] = s.changed[last]
		s.index.Put(lastID, dense)
	}
	s.ids = s.ids[:last]
	if s.size != 0 {
		s.data = s.data[:uintptr(last)*s.size]
	}
	s.added = s.added[:last]
	s.changed = s.changed[:last]
	s.index.Del(id)
}
