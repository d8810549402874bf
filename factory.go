package depot

type factory struct{}

var Factory factory

func (f factory) NewRegistry() *Registry {
	return newRegistry()
}

func (f factory) NewClock() *Clock {
	return newClock()
}

func (f factory) NewStorage(registry *Registry, clock *Clock) Storage {
	return newStorage(registry, clock)
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(query QueryNode, sto Storage) *Cursor {
	return newCursor(query, sto)
}

func (f factory) NewSchedule(sto Storage) Schedule {
	return newSchedule(sto)
}

func (f factory) NewAccessSet() *AccessSet {
	return newAccessSet()
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
