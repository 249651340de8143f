package bradley

import "github.com/rustmods/custombradley/pkg/host"

// hookFilter admits engine broadcasts only for vehicles in the managed set.
// Spawn and death hooks fire for every entity on the server.
type hookFilter struct {
	managed *ManagedSet
}

func (f hookFilter) accept(h host.Handle) bool {
	return h != (host.Handle{}) && f.managed.Contains(h)
}
