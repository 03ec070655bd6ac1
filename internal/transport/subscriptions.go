package transport

import (
	"sort"
	"sync"
)

type ScopeKind string

const (
	ScopeChannel ScopeKind = "channel"
	ScopeCall    ScopeKind = "call"
)

// Scope is one channel or call the client wants live updates for.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// SubscriptionSet is the desired-state set of scopes. It is mutated on every
// join/leave request regardless of transport state and is not tied to the
// connection lifetime, so it can be replayed after re-authentication.
type SubscriptionSet struct {
	mu     sync.Mutex
	scopes map[Scope]struct{}
}

func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{scopes: make(map[Scope]struct{})}
}

func (s *SubscriptionSet) Add(sc Scope) {
	s.mu.Lock()
	s.scopes[sc] = struct{}{}
	s.mu.Unlock()
}

func (s *SubscriptionSet) Remove(sc Scope) {
	s.mu.Lock()
	delete(s.scopes, sc)
	s.mu.Unlock()
}

func (s *SubscriptionSet) Contains(sc Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scopes[sc]
	return ok
}

func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scopes)
}

// Snapshot returns the scopes in a stable order: channels before calls,
// then by id.
func (s *SubscriptionSet) Snapshot() []Scope {
	s.mu.Lock()
	out := make([]Scope, 0, len(s.scopes))
	for sc := range s.scopes {
		out = append(out, sc)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == ScopeChannel
		}
		return out[i].ID < out[j].ID
	})
	return out
}
