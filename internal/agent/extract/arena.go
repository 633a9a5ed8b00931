package extract

import "sync"

// Arena remembers which collector node ids were already dispatched, so an
// element is scanned at most once per page lifetime. The association is
// non-owning: ids come from the page, nothing here retains DOM state.
type Arena struct {
	mu   sync.Mutex
	seen map[int]struct{}
}

func NewArena() *Arena {
	return &Arena{seen: make(map[int]struct{})}
}

// Mark records a node id and reports whether this was its first appearance.
func (a *Arena) Mark(nodeID int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[nodeID]; ok {
		return false
	}
	a.seen[nodeID] = struct{}{}
	return true
}

// Reset forgets all ids, for use after a navigation.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = make(map[int]struct{})
}

// Size returns the number of ids seen.
func (a *Arena) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}
