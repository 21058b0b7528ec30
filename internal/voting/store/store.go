package store

import (
	"context"

	regmodels "asamblea/internal/registry/models"
	"asamblea/internal/voting/models"
)

// Store persists questions and their vote ledgers.
//
// CommitVotes is the batch vote write: it records every given answer in one
// atomic commit, skipping registries that already hold an answer — a prior
// answer is never overwritten. It returns the ids actually written.
// SetStatus compares-and-sets so concurrent operators cannot double-fire a
// transition.
type Store interface {
	Get(ctx context.Context, id string) (models.Question, error)
	ListByAssembly(ctx context.Context, assemblyID string) ([]models.Question, error)
	Create(ctx context.Context, q models.Question) error
	SetStatus(ctx context.Context, id string, from, to models.QuestionStatus) error
	CommitVotes(ctx context.Context, questionID string, answers map[regmodels.RegistryID]models.Answer) ([]regmodels.RegistryID, error)
	ClearAnswers(ctx context.Context, questionID string) error
}
