/*
Package depot provides an Entity-Component-System (ECS) storage engine and a
conflict-aware parallel system scheduler for games and simulations.

Depot keeps entities with identical component sets together in archetypes,
stores each component type as a contiguous column for cache-friendly
iteration, and stamps every component slot with add and mutation ticks so
systems can filter "changed since I last ran". Systems declare the
component types and resources they read and write; the scheduler proves at
build time that no two concurrently running systems can race, then drives
waves of independent systems across a worker pool with no per-access
locking. Structural changes requested mid-wave are buffered in a command
queue and applied at wave boundaries.

Core Concepts:

  - Entity: a unique (index, generation) identifier for a game object.
  - Component: a data container that defines entity attributes.
  - Archetype: a collection of entities sharing the same component types.
  - Query: a way to find entities with specific component combinations.
  - System: a unit of logic with a declared access set, run by the scheduler.
  - Wave: a group of non-conflicting systems executed concurrently.

Basic Usage:

	// World context objects
	registry := depot.Factory.NewRegistry()
	clock := depot.Factory.NewClock()
	storage := depot.Factory.NewStorage(registry, clock)

	// Define components
	position := depot.RegisterComponent[Position](registry)
	velocity := depot.RegisterComponent[Velocity](registry)

	// Create entities
	entities, _ := storage.NewEntities(100, position, velocity)
	_ = entities

	// Register a system and run one pass
	query := depot.Factory.NewQuery()
	node := query.And(position, velocity)
	cursor := depot.Factory.NewCursor(node, storage)

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
	schedule.Run()

Depot is the storage and scheduling core other engine layers (rendering,
input, assets) build on, but it also works as a standalone library.
*/
package depot
