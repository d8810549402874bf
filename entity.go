package depot

// Entity is an opaque (index, generation) pair identifying a bundle of
// components. Entities own no data; they are keys into storage. The zero
// Entity is never live.
type Entity struct {
	ID  uint32
	Gen uint32
}

// entityRecord tracks liveness and the current (archetype, row) location of
// one entity index. Records are indexed by ID-1; IDs start at 1 so the zero
// Entity stays invalid.
type entityRecord struct {
	gen   uint32
	arch  archetypeID
	row   int
	alive bool
}

// allocator issues unique (index, generation) pairs, reusing freed indices
// with a bumped generation so stale handles become detectably invalid.
type allocator struct {
	records []entityRecord
	freeIDs []uint32
}

func (al *allocator) allocate() Entity {
	if n := len(al.freeIDs); n > 0 {
		id := al.freeIDs[n-1]
		al.freeIDs = al.freeIDs[:n-1]
		rec := &al.records[id-1]
		rec.alive = true
		return Entity{ID: id, Gen: rec.gen}
	}
	al.records = append(al.records, entityRecord{gen: 1, alive: true})
	id := uint32(len(al.records))
	return Entity{ID: id, Gen: 1}
}

// free releases the index for reuse. Freeing a dead or stale handle is a
// silent no-op; callers that care must consult alive first.
func (al *allocator) free(e Entity) {
	rec := al.record(e)
	if rec == nil {
		return
	}
	rec.alive = false
	rec.gen++
	rec.arch = 0
	rec.row = 0
	al.freeIDs = append(al.freeIDs, e.ID)
}

func (al *allocator) alive(e Entity) bool {
	return al.record(e) != nil
}

// record returns the live record for e, or nil if e is dead, stale, or out
// of range.
func (al *allocator) record(e Entity) *entityRecord {
	if e.ID == 0 || int(e.ID) > len(al.records) {
		return nil
	}
	rec := &al.records[e.ID-1]
	if !rec.alive || rec.gen != e.Gen {
		return nil
	}
	return rec
}
