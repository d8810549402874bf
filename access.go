package depot

import "github.com/TheBitDrifter/mask"

// AccessSet is a system's static declaration of the component types and
// resources it reads and writes, plus whether it issues structural commands.
// It is computed once at registration and is the scheduler's only knowledge
// of a system's behavior: two systems may share a wave exactly when their
// sets do not conflict.
type AccessSet struct {
	reads     mask.Mask
	writes    mask.Mask
	resReads  map[ResourceKey]struct{}
	resWrites map[ResourceKey]struct{}
	commands  bool
}

func newAccessSet() *AccessSet {
	return &AccessSet{
		resReads:  make(map[ResourceKey]struct{}),
		resWrites: make(map[ResourceKey]struct{}),
	}
}

// Reads declares shared read access to component types.
func (a *AccessSet) Reads(components ...Component) *AccessSet {
	for _, c := range components {
		a.reads.Mark(uint32(c.ID()))
	}
	return a
}

// Writes declares exclusive write access to component types.
func (a *AccessSet) Writes(components ...Component) *AccessSet {
	for _, c := range components {
		a.writes.Mark(uint32(c.ID()))
	}
	return a
}

// ReadsResources declares shared read access to resource types.
func (a *AccessSet) ReadsResources(keys ...ResourceKey) *AccessSet {
	for _, k := range keys {
		a.resReads[k] = struct{}{}
	}
	return a
}

// WritesResources declares exclusive write access to resource types.
func (a *AccessSet) WritesResources(keys ...ResourceKey) *AccessSet {
	for _, k := range keys {
		a.resWrites[k] = struct{}{}
	}
	return a
}

// WithCommands declares that the system enqueues structural mutations.
// Commands are buffered and applied at sync points, so two command-issuing
// systems do not conflict with each other.
func (a *AccessSet) WithCommands() *AccessSet {
	a.commands = true
	return a
}

// ConflictsWith reports whether two access sets cannot run concurrently:
// write/write or read/write overlap on any component or resource type.
func (a *AccessSet) ConflictsWith(b *AccessSet) bool {
	if a.writes.ContainsAny(b.writes) {
		return true
	}
	if a.writes.ContainsAny(b.reads) {
		return true
	}
	if a.reads.ContainsAny(b.writes) {
		return true
	}
	for k := range a.resWrites {
		if _, ok := b.resWrites[k]; ok {
			return true
		}
		if _, ok := b.resReads[k]; ok {
			return true
		}
	}
	for k := range a.resReads {
		if _, ok := b.resWrites[k]; ok {
			return true
		}
	}
	return false
}
