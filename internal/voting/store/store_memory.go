package store

import (
	"context"
	"sync"

	regmodels "asamblea/internal/registry/models"
	"asamblea/internal/voting/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemory keeps questions and their vote ledgers in process memory.
type InMemory struct {
	mu        sync.RWMutex
	questions map[string]models.Question
}

func NewInMemory() *InMemory {
	return &InMemory{questions: make(map[string]models.Question)}
}

func (s *InMemory) Get(_ context.Context, id string) (models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return models.Question{}, sentinel.ErrNotFound
	}
	return copyQuestion(q), nil
}

func (s *InMemory) ListByAssembly(_ context.Context, assemblyID string) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Question
	for _, q := range s.questions {
		if q.AssemblyID == assemblyID {
			out = append(out, copyQuestion(q))
		}
	}
	return out, nil
}

func (s *InMemory) Create(_ context.Context, q models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[q.ID]; exists {
		return sentinel.ErrConflict
	}
	s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (s *InMemory) SetStatus(_ context.Context, id string, from, to models.QuestionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if q.Status != from {
		return sentinel.ErrConflict
	}
	q.Status = to
	s.questions[id] = q
	return nil
}

// CommitVotes records the answers under one lock. Registries that already
// answered are skipped, never overwritten.
func (s *InMemory) CommitVotes(_ context.Context, questionID string, answers map[regmodels.RegistryID]models.Answer) ([]regmodels.RegistryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if q.Answers == nil {
		q.Answers = make(map[regmodels.RegistryID]models.Answer)
	}
	var applied []regmodels.RegistryID
	for id, a := range answers {
		if _, answered := q.Answers[id]; answered {
			continue
		}
		q.Answers[id] = a
		applied = append(applied, id)
	}
	s.questions[questionID] = q
	return applied, nil
}

func (s *InMemory) ClearAnswers(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	q.Answers = make(map[regmodels.RegistryID]models.Answer)
	s.questions[questionID] = q
	return nil
}

func copyQuestion(q models.Question) models.Question {
	answers := make(map[regmodels.RegistryID]models.Answer, len(q.Answers))
	for id, a := range q.Answers {
		answers[id] = a
	}
	q.Answers = answers
	q.Options = append([]string(nil), q.Options...)
	return q
}
