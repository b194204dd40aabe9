package reconcile

import "sync"

// guardSet is a keyed mutex. Entries are reference counted and removed when
// the last holder releases, so the map does not grow with task history.
type guardSet struct {
	mu     sync.Mutex
	guards map[string]*guard
}

type guard struct {
	mu   sync.Mutex
	refs int
}

func newGuardSet() *guardSet {
	return &guardSet{guards: make(map[string]*guard)}
}

func (s *guardSet) lock(key string) func() {
	s.mu.Lock()
	g, ok := s.guards[key]
	if !ok {
		g = &guard{}
		s.guards[key] = g
	}
	g.refs++
	s.mu.Unlock()

	g.mu.Lock()

	return func() {
		g.mu.Unlock()
		s.mu.Lock()
		g.refs--
		if g.refs == 0 {
			delete(s.guards, key)
		}
		s.mu.Unlock()
	}
}
