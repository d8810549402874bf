// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.pprof

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
	iters := 10000
	entities := 10000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
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

		storage.NewEntities(numEntities, c1, c2)

		query := depot.Factory.NewQuery()
		node := query.And(c1, c2)
		cursor := depot.Factory.NewCursor(node, storage)

		for range iters {
			for cursor.Next() {
				a := c1.MutFromCursor(cursor)
				b := c2.GetFromCursor(cursor)
				a.V += b.V
				a.W += b.W
			}
		}
	}
}
