package depot

import "fmt"

type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "storage is currently locked"
}

type InvalidEntityError struct {
	Entity Entity
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity is dead or unknown: id=%d gen=%d", e.Entity.ID, e.Entity.Gen)
}

type UnknownComponentError struct {
	ID ComponentID
}

func (e UnknownComponentError) Error() string {
	return fmt.Sprintf("component id %d was never registered", e.ID)
}

type ComponentExistsError struct {
	Component Component
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity: id=%d", e.Component.ID())
}

type ComponentNotFoundError struct {
	Component Component
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: id=%d", e.Component.ID())
}

// AccessConflictError is fatal for the schedule that produced it. It covers
// unsatisfiable ordering cycles and any ordering/conflict combination the
// wave builder cannot place. It is always reported before a system runs.
type AccessConflictError struct {
	Systems []string
	Reason  string
}

func (e AccessConflictError) Error() string {
	return fmt.Sprintf("schedule build failed for systems %v: %s", e.Systems, e.Reason)
}

// UnresolvedDependencyError reports a RunBefore/RunAfter constraint that
// names a system not present in the schedule.
type UnresolvedDependencyError struct {
	System  string
	Missing string
}

func (e UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("system %q orders against %q, which is not in the schedule", e.System, e.Missing)
}

// SystemRunError wraps an application-level failure returned by a system
// body. The pass that contained the system still completes.
type SystemRunError struct {
	System string
	Err    error
}

func (e SystemRunError) Error() string {
	return fmt.Sprintf("system %q failed: %v", e.System, e.Err)
}

func (e SystemRunError) Unwrap() error {
	return e.Err
}
