// Store owns the canonical record for every planet. All mutations to a
// single planet are serialized behind that planet's lock; readers get
// deep-copy snapshots, never live pointers.
package colony

import (
	"sort"
	"sync"
)

// Store is the authoritative registry of planet state.
type Store struct {
	mu      sync.RWMutex
	planets map[PlanetID]*handle
}

type handle struct {
	mu     sync.Mutex
	planet *Planet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{planets: make(map[PlanetID]*handle)}
}

// Put registers a new planet. Fails with a conflict if the ID is taken.
func (s *Store) Put(p *Planet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.planets[p.ID]; ok {
		return NewError(KindConflict, p.ID, "store.put", "planet already registered")
	}
	s.planets[p.ID] = &handle{planet: p.Clone()}
	return nil
}

// Get returns a deep-copy snapshot of one planet.
func (s *Store) Get(id PlanetID) (*Planet, error) {
	h, err := s.handle(id, "store.get")
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.planet.Clone(), nil
}

// WithPlanet runs fn against the live planet record under its lock.
// fn's mutations are all-or-nothing: on error the record is rolled back
// to its pre-call state.
func (s *Store) WithPlanet(id PlanetID, fn func(*Planet) error) error {
	h, err := s.handle(id, "store.with_planet")
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	before := h.planet.Clone()
	if err := fn(h.planet); err != nil {
		h.planet = before
		return err
	}
	return nil
}

// TryWithPlanet is WithPlanet without blocking: if the planet's lock is
// held it returns (false, nil) and the caller retries on a later sweep.
func (s *Store) TryWithPlanet(id PlanetID, fn func(*Planet) error) (bool, error) {
	h, err := s.handle(id, "store.try_with_planet")
	if err != nil {
		return false, err
	}

	if !h.mu.TryLock() {
		return false, nil
	}
	defer h.mu.Unlock()

	before := h.planet.Clone()
	if err := fn(h.planet); err != nil {
		h.planet = before
		return true, err
	}
	return true, nil
}

// IDs returns all planet IDs in stable order.
func (s *Store) IDs() []PlanetID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]PlanetID, 0, len(s.planets))
	for id := range s.planets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pending returns the IDs of planets with timed work for the tick
// coordinator: in-flight upgrades or unresolved sieges.
func (s *Store) Pending() []PlanetID {
	var ids []PlanetID
	for id, h := range s.handles() {
		h.mu.Lock()
		pending := h.planet.PendingWork()
		h.mu.Unlock()
		if pending {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Snapshots returns deep copies of every planet, for persistence and
// read-only API listings.
func (s *Store) Snapshots() []*Planet {
	handles := s.handles()
	out := make([]*Planet, 0, len(handles))
	for _, h := range handles {
		h.mu.Lock()
		out = append(out, h.planet.Clone())
		h.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// handles copies the registry map so planet locks are never taken while
// the registry lock is held.
func (s *Store) handles() map[PlanetID]*handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := make(map[PlanetID]*handle, len(s.planets))
	for id, h := range s.planets {
		m[id] = h
	}
	return m
}

// Count returns the number of registered planets.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.planets)
}

func (s *Store) handle(id PlanetID, op string) (*handle, error) {
	s.mu.RLock()
	h, ok := s.planets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, NotFound(id, op)
	}
	return h, nil
}
