package renderer

import "sync"

// IdGenerator issues small integer ids with recycling. Get returns a
// previously recycled id when one is available, otherwise the next
// never-used id. Recycling the same live id twice, or an id that was
// never issued, is a caller error and is not guarded here.
type IdGenerator struct {
	mu       sync.Mutex
	next     uint32
	recycled map[uint32]struct{}
}

func NewIdGenerator() *IdGenerator {
	return &IdGenerator{
		recycled: make(map[uint32]struct{}),
	}
}

func (g *IdGenerator) Get() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id := range g.recycled {
		delete(g.recycled, id)
		return id
	}

	id := g.next
	g.next++
	return id
}

func (g *IdGenerator) Recycle(id uint32) {
	g.mu.Lock()
	g.recycled[id] = struct{}{}
	g.mu.Unlock()
}

// Count returns the high-water mark: the next never-used id. This equals
// live + recycled entries, not the number of currently-live ids.
func (g *IdGenerator) Count() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
