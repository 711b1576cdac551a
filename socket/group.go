package socket

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group is a set of sockets keyed by stable id that can be emitted to
// together. Sockets whose addresses hash to the same id replace each other.
type Group struct {
	name    string
	sockets map[int32]*Socket
	mu      sync.RWMutex
}

func NewGroup(name string) *Group {
	return &Group{
		name:    name,
		sockets: make(map[int32]*Socket),
	}
}

func (g *Group) Name() string {
	return g.name
}

func (g *Group) Add(s *Socket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sockets[s.ID()] = s
}

func (g *Group) Remove(id int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sockets, id)
}

func (g *Group) Has(id int32) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.sockets[id]
	return exists
}

func (g *Group) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sockets)
}

// Sockets returns the members ordered by id.
func (g *Group) Sockets() []*Socket {
	g.mu.RLock()
	sockets := make([]*Socket, 0, len(g.sockets))
	for _, s := range g.sockets {
		sockets = append(sockets, s)
	}
	g.mu.RUnlock()

	sort.Slice(sockets, func(i, j int) bool { return sockets[i].ID() < sockets[j].ID() })
	return sockets
}

// Broadcast emits event to every member in turn. Failed members are
// returned by id; an empty map means every emit succeeded.
func (g *Group) Broadcast(event Event) map[int32]error {
	failed := make(map[int32]error)
	for _, s := range g.Sockets() {
		if err := s.Emit(event); err != nil {
			failed[s.ID()] = err
		}
	}
	return failed
}

// BroadcastParallel emits event with at most workers emits in flight and
// returns the first error seen. Every member is attempted regardless.
func (g *Group) BroadcastParallel(event Event, workers int) error {
	sockets := g.Sockets()
	if len(sockets) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	var eg errgroup.Group
	eg.SetLimit(min(len(sockets), workers))
	for _, s := range sockets {
		eg.Go(func() error {
			return s.Emit(event)
		})
	}
	return eg.Wait()
}
