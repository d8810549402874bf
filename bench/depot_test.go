package bench

import (
	"testing"

	"github.com/TheBitDrifter/depot"
)

const (
	nPos    = 9000
	nPosVel = 1000
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

func BenchmarkIterDepotGet(b *testing.B) {
	b.StopTimer()

	registry := depot.Factory.NewRegistry()
	clock := depot.Factory.NewClock()
	storage := depot.Factory.NewStorage(registry, clock)

	position := depot.RegisterComponent[Position](registry)
	velocity := depot.RegisterComponent[Velocity](registry)

	storage.NewEntities(nPosVel, position, velocity)
	storage.NewEntities(nPos, position)

	query := depot.Factory.NewQuery()
	queryNode := query.And(velocity, position)
	cursor := depot.Factory.NewCursor(queryNode, storage)

	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for cursor.Next() {
			pos := position.MutFromCursor(cursor)
			vel := velocity.GetFromCursor(cursor)

			pos.X += vel.X
			pos.Y += vel.Y
		}
	}
}

func BenchmarkSchedulePass(b *testing.B) {
	b.StopTimer()

	registry := depot.Factory.NewRegistry()
	clock := depot.Factory.NewClock()
	storage := depot.Factory.NewStorage(registry, clock)

	position := depot.RegisterComponent[Position](registry)
	velocity := depot.RegisterComponent[Velocity](registry)

	storage.NewEntities(nPosVel, position, velocity)
	storage.NewEntities(nPos, position)

	query := depot.Factory.NewQuery()
	queryNode := query.And(velocity, position)
	cursor := depot.Factory.NewCursor(queryNode, storage)

	schedule := depot.Factory.NewSchedule(storage)
	schedule.Add(depot.System{
		Name:   "integrate",
		Access: depot.Factory.NewAccessSet().Writes(position).Reads(velocity),
		Fn: func(ctx *depot.SystemContext) error {
			cur := ctx.Bind(cursor)
			for cur.Next() {
				pos := position.MutFromCursor(cur)
				vel := velocity.GetFromCursor(cur)
				pos.X += vel.X
				pos.Y += vel.Y
			}
			return nil
		},
	})
	if err := schedule.Build(); err != nil {
		b.Fatal(err)
	}

	b.StartTimer()

	for i := 0; i < b.N; i++ {
		if err := schedule.Run(); err != nil {
			b.Fatal(err)
		}
	}
}
