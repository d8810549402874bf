package depot

import (
	"errors"
	"sync"

	"github.com/rotisserie/eris"
)

type operationType int

const (
	opSpawn operationType = iota
	opDestroy
	opAddComponent
	opRemoveComponent
	opResource
)

// operation is one deferred structural mutation. Ops are applied strictly in
// enqueue order, so later commands on an entity observe the effects of
// earlier ones in the same batch.
type operation struct {
	typ      operationType
	amount   int
	comps    []Component
	entity   Entity
	resApply func(*Resources)
	spawned  func([]Entity)
}

// opQueue buffers structural mutations issued while storage is locked, so
// archetype topology never changes under a running wave. Enqueueing is
// thread-safe; draining happens single-threaded at sync points.
type opQueue struct {
	mu  sync.Mutex
	ops []operation
}

func newOpQueue() opQueue {
	return opQueue{}
}

func (q *opQueue) enqueue(op operation) {
	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()
}

func (q *opQueue) take() []operation {
	q.mu.Lock()
	ops := q.ops
	q.ops = nil
	q.mu.Unlock()
	return ops
}

// processOperationQueue applies every queued command in enqueue order.
// Operations on entities destroyed earlier in the same batch are no-ops,
// not errors. Called with storage unlocked.
func (sto *storage) processOperationQueue() error {
	ops := sto.opQueue.take()
	if len(ops) == 0 {
		return nil
	}
	var errs []error
	for _, op := range ops {
		switch op.typ {
		case opSpawn:
			created, err := sto.NewEntities(op.amount, op.comps...)
			if err != nil {
				errs = append(errs, eris.Wrap(err, "queued spawn failed"))
				continue
			}
			if op.spawned != nil {
				op.spawned(created)
			}
		case opDestroy:
			// Destroy is idempotent; a handle already dead is skipped.
			if err := sto.DestroyEntities(op.entity); err != nil {
				errs = append(errs, eris.Wrap(err, "queued destroy failed"))
			}
		case opAddComponent:
			if !sto.Alive(op.entity) {
				continue
			}
			if err := sto.AddComponent(op.entity, op.comps[0]); err != nil {
				errs = append(errs, eris.Wrap(err, "queued component add failed"))
			}
		case opRemoveComponent:
			if !sto.Alive(op.entity) {
				continue
			}
			if err := sto.RemoveComponent(op.entity, op.comps[0]); err != nil {
				errs = append(errs, eris.Wrap(err, "queued component remove failed"))
			}
		case opResource:
			op.resApply(sto.resources)
		}
	}
	return errors.Join(errs...)
}

// EnqueueInsertResource defers a resource insert/replace until the next sync
// point. Applied in order with the other structural commands of the batch.
func EnqueueInsertResource[T any](sto Storage, value T) {
	s := sto.(*storage)
	apply := func(r *Resources) { AddResource(r, value) }
	if !s.locked {
		apply(s.resources)
		return
	}
	s.opQueue.enqueue(operation{typ: opResource, resApply: apply})
}

// EnqueueRemoveResource defers a resource removal until the next sync point.
func EnqueueRemoveResource[T any](sto Storage) {
	s := sto.(*storage)
	apply := func(r *Resources) { RemoveResource[T](r) }
	if !s.locked {
		apply(s.resources)
		return
	}
	s.opQueue.enqueue(operation{typ: opResource, resApply: apply})
}
