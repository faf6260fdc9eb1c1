package snapshotter

import "sort"

// Gate tracks workers holding an outstanding unit of work. A snapshot may
// only be taken while no worker is pending and the gate is not blocked.
//
// When a due fire finds the gate closed it is recorded with Defer. The call
// that later opens the gate (last Complete/Drop, or SetBlocked(false))
// returns released=true exactly once for that deferral.
//
// Gate is not safe for concurrent use.
type Gate struct {
	pending  map[string]struct{}
	deferred bool
	blocked  bool
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{pending: make(map[string]struct{})}
}

// Assign marks id as pending. Assigning a pending id again is a no-op.
func (g *Gate) Assign(id string) {
	g.pending[id] = struct{}{}
}

// Complete removes id. Unknown ids are ignored, which makes duplicate or late
// acknowledgements harmless.
func (g *Gate) Complete(id string) (released bool) {
	if _, ok := g.pending[id]; !ok {
		return false
	}
	delete(g.pending, id)
	return g.release()
}

// Drop removes a disconnected or failed worker.
func (g *Gate) Drop(id string) (released bool) {
	return g.Complete(id)
}

// SetBlocked sets the additional gating condition. Unblocking may release a
// deferred fire.
func (g *Gate) SetBlocked(blocked bool) (released bool) {
	g.blocked = blocked
	if blocked {
		return false
	}
	return g.release()
}

// Defer records that a due fire was held back by the gate.
func (g *Gate) Defer() {
	g.deferred = true
}

// Open reports whether a snapshot may proceed.
func (g *Gate) Open() bool {
	return len(g.pending) == 0 && !g.blocked
}

// Deferred reports whether a fire is waiting for the gate to open.
func (g *Gate) Deferred() bool { return g.deferred }

// Blocked reports the additional gating condition.
func (g *Gate) Blocked() bool { return g.blocked }

// Len returns the number of pending workers.
func (g *Gate) Len() int { return len(g.pending) }

// Pending returns the pending worker ids in sorted order.
func (g *Gate) Pending() []string {
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Gate) release() bool {
	if !g.deferred || !g.Open() {
		return false
	}
	g.deferred = false
	return true
}
