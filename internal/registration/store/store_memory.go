package store

import (
	"context"
	"sync"

	"asamblea/internal/registration/models"
	"asamblea/pkg/platform/sentinel"
)

type userKey struct {
	document   string
	assemblyID string
}

// InMemory keeps assembly users in process memory.
type InMemory struct {
	mu    sync.RWMutex
	users map[userKey]models.AssemblyUser
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[userKey]models.AssemblyUser)}
}

func (s *InMemory) Create(_ context.Context, user models.AssemblyUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey{document: user.Document, assemblyID: user.AssemblyID}
	if _, exists := s.users[key]; exists {
		return sentinel.ErrConflict
	}
	user.Representations = append([]models.Representation(nil), user.Representations...)
	s.users[key] = user
	return nil
}

func (s *InMemory) Get(_ context.Context, document, assemblyID string) (models.AssemblyUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userKey{document: document, assemblyID: assemblyID}]
	if !ok {
		return models.AssemblyUser{}, sentinel.ErrNotFound
	}
	user.Representations = append([]models.Representation(nil), user.Representations...)
	return user, nil
}

func (s *InMemory) DeleteByAssembly(_ context.Context, assemblyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.users {
		if key.assemblyID == assemblyID {
			delete(s.users, key)
		}
	}
	return nil
}
