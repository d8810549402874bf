package depot

import (
	"github.com/TheBitDrifter/mask"
)

// Storage is the public contract of a world's archetype store. Construct
// one per world with Factory.NewStorage; the registry and clock passed in
// are the world's explicit context objects.
type Storage interface {
	Entity(id uint32) (Entity, error)
	NewEntity(components ...Component) (Entity, error)
	NewEntities(n int, components ...Component) ([]Entity, error)
	DestroyEntities(...Entity) error
	AddComponent(Entity, Component) error
	RemoveComponent(Entity, Component) error
	Alive(Entity) bool

	EnqueueNewEntities(int, ...Component) error
	EnqueueDestroyEntities(...Entity) error
	EnqueueAddComponent(Entity, Component) error
	EnqueueRemoveComponent(Entity, Component) error

	Registry() *Registry
	Clock() *Clock
	Resources() *Resources

	Locked() bool
	Lock()
	Unlock() error
	Shutdown()
}

// Archetype is the queryable identity of one component-set group.
type Archetype interface {
	ID() uint32
	Mask() mask.Mask
}

// Query composes structural and change-detection filters over archetypes.
type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
	Added(components ...Component) QueryNode
	Changed(components ...Component) QueryNode
}

// QueryNode decides whether an archetype structurally matches.
type QueryNode interface {
	Evaluate(archetype Archetype) bool
}

// Schedule is an ordered collection of systems plus the execution graph
// built over their access declarations.
type Schedule interface {
	Add(System) error
	Build() error
	Run() error
	Waves() [][]string
}

type iCursor interface {
	Next() bool
	CurrentEntity() Entity
}

// Cache is a bounded string-keyed registry with stable indices.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
}
