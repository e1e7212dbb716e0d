// Package scope computes and carries the per-request visibility descriptor.
// Every plant-scoped query must be narrowed by the caller's descriptor; an
// empty restricted set yields zero results, never all results.
package scope

import "context"

// Descriptor is the set of plant ids the caller may see. It is transient:
// resolved once per request and never persisted or cached across requests,
// because assignments can change between requests.
type Descriptor struct {
	all      bool
	plantIDs []int64
	idSet    map[int64]struct{}
}

// Unrestricted returns a descriptor that permits every plant.
func Unrestricted() Descriptor {
	return Descriptor{all: true}
}

// RestrictedTo returns a descriptor permitting exactly the given plant ids.
// An empty set is valid and permits nothing.
func RestrictedTo(plantIDs []int64) Descriptor {
	set := make(map[int64]struct{}, len(plantIDs))
	ids := make([]int64, 0, len(plantIDs))
	for _, id := range plantIDs {
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		ids = append(ids, id)
	}
	return Descriptor{plantIDs: ids, idSet: set}
}

// Unrestricted reports whether the descriptor permits every plant.
func (d Descriptor) Unrestricted() bool { return d.all }

// Empty reports whether the descriptor permits no plants at all.
func (d Descriptor) Empty() bool { return !d.all && len(d.plantIDs) == 0 }

// Allows reports whether the given plant is visible.
func (d Descriptor) Allows(plantID int64) bool {
	if d.all {
		return true
	}
	_, ok := d.idSet[plantID]
	return ok
}

// PlantIDs returns the permitted plant ids. Nil when unrestricted.
func (d Descriptor) PlantIDs() []int64 { return d.plantIDs }

type contextKey string

const descriptorKey contextKey = "scope"

// WithDescriptor attaches the resolved descriptor to the request context.
func WithDescriptor(ctx context.Context, d Descriptor) context.Context {
	return context.WithValue(ctx, descriptorKey, d)
}

// FromContext retrieves the request's descriptor. The second return is false
// when no descriptor was resolved; callers must treat that as empty scope,
// not unrestricted.
func FromContext(ctx context.Context) (Descriptor, bool) {
	d, ok := ctx.Value(descriptorKey).(Descriptor)
	return d, ok
}
