// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/TheBitDrifter/depot"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	rounds := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		registry := depot.Factory.NewRegistry()
		clock := depot.Factory.NewClock()
		storage := depot.Factory.NewStorage(registry, clock)

		c1 := depot.RegisterComponent[comp1](registry)
		c2 := depot.RegisterComponent[comp2](registry)

		query := depot.Factory.NewQuery()
		node := query.And(c1, c2)
		cursor := depot.Factory.NewCursor(node, storage)

		for range iters {
			storage.NewEntities(numEntities, c1, c2)

			doomed := make([]depot.Entity, 0, numEntities)
			for e := range cursor.Entities() {
				doomed = append(doomed, e)
			}
			storage.DestroyEntities(doomed...)
		}
	}
}
