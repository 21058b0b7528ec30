package store

import (
	"context"
	"sync"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemory keeps registry sets in process memory. It favors clarity over
// performance and is the store of record for tests and single-node runs.
type InMemory struct {
	mu       sync.RWMutex
	entities map[string]models.Entity
	sets     map[string]map[models.RegistryID]models.Registry
}

func NewInMemory() *InMemory {
	return &InMemory{
		entities: make(map[string]models.Entity),
		sets:     make(map[string]map[models.RegistryID]models.Registry),
	}
}

// SeedEntity loads an entity and its registry set; used by wiring and tests.
func (s *InMemory) SeedEntity(entity models.Entity, regs []models.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.ID] = entity
	set := make(map[models.RegistryID]models.Registry, len(regs))
	for _, r := range regs {
		set[r.ID] = r
	}
	s.sets[entity.ListID] = set
}

func (s *InMemory) GetEntity(_ context.Context, id string) (models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entities[id]; ok {
		return e, nil
	}
	return models.Entity{}, sentinel.ErrNotFound
}

func (s *InMemory) GetSet(_ context.Context, listID string) (models.RegistrySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[listID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	snapshot := make(models.RegistrySet, len(set))
	for id, r := range set {
		snapshot[id] = r
	}
	return snapshot, nil
}

// CommitClaim flips claimed false→true on every target under one lock. The
// guard is re-checked here, not in the caller: two concurrent claims on the
// same registry produce exactly one winner.
func (s *InMemory) CommitClaim(_ context.Context, listID string, ids []models.RegistryID, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[listID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, id := range ids {
		r, ok := set[id]
		if !ok {
			return sentinel.ErrNotFound
		}
		if r.Claimed || r.IsDeleted {
			return sentinel.ErrConflict
		}
	}
	for _, id := range ids {
		r := set[id]
		r.Claimed = true
		r.ClaimOwnerDocument = document
		set[id] = r
	}
	return nil
}

func (s *InMemory) SetVoteBlocked(_ context.Context, listID string, id models.RegistryID, blocked bool) error {
	return s.setField(listID, id, func(r *models.Registry) { r.VoteBlocked = blocked })
}

func (s *InMemory) SetDeleted(_ context.Context, listID string, id models.RegistryID, deleted bool) error {
	return s.setField(listID, id, func(r *models.Registry) { r.IsDeleted = deleted })
}

func (s *InMemory) ResetClaims(_ context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[listID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for id, r := range set {
		r.Claimed = false
		r.ClaimOwnerDocument = ""
		set[id] = r
	}
	return nil
}

func (s *InMemory) setField(listID string, id models.RegistryID, mutate func(*models.Registry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[listID]
	if !ok {
		return sentinel.ErrNotFound
	}
	r, ok := set[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	mutate(&r)
	set[id] = r
	return nil
}
