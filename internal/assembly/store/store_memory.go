package store

import (
	"context"
	"sync"

	"asamblea/internal/assembly/models"
	regmodels "asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemory keeps assemblies in process memory.
type InMemory struct {
	mu         sync.RWMutex
	assemblies map[string]models.Assembly
}

func NewInMemory() *InMemory {
	return &InMemory{assemblies: make(map[string]models.Assembly)}
}

func (s *InMemory) Get(_ context.Context, id string) (models.Assembly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assemblies[id]
	if !ok {
		return models.Assembly{}, sentinel.ErrNotFound
	}
	return copyAssembly(a), nil
}

func (s *InMemory) List(_ context.Context) ([]models.Assembly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Assembly, 0, len(s.assemblies))
	for _, a := range s.assemblies {
		out = append(out, copyAssembly(a))
	}
	return out, nil
}

func (s *InMemory) Create(_ context.Context, a models.Assembly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assemblies[a.ID]; exists {
		return sentinel.ErrConflict
	}
	s.assemblies[a.ID] = copyAssembly(a)
	return nil
}

func (s *InMemory) SetStatus(_ context.Context, id string, from, to models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assemblies[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if a.Status != from {
		return sentinel.ErrConflict
	}
	a.Status = to
	s.assemblies[id] = a
	return nil
}

func (s *InMemory) SetVoterBlocked(_ context.Context, id string, reg regmodels.RegistryID, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assemblies[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	blockedVoters := make(map[regmodels.RegistryID]struct{}, len(a.BlockedVoters))
	for k := range a.BlockedVoters {
		blockedVoters[k] = struct{}{}
	}
	if blocked {
		blockedVoters[reg] = struct{}{}
	} else {
		delete(blockedVoters, reg)
	}
	a.BlockedVoters = blockedVoters
	s.assemblies[id] = a
	return nil
}

func copyAssembly(a models.Assembly) models.Assembly {
	blockedVoters := make(map[regmodels.RegistryID]struct{}, len(a.BlockedVoters))
	for k := range a.BlockedVoters {
		blockedVoters[k] = struct{}{}
	}
	a.BlockedVoters = blockedVoters
	return a
}
