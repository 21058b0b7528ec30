package store

import (
	"context"

	"asamblea/internal/registry/models"
)

// Store is the registry-set contract. Implementations are pure I/O — all
// eligibility and lifecycle rules live in the services.
//
// Mutations are field-level compare-and-set operations. CommitClaim is the
// only multi-registry write and must be atomic: either every target registry
// flips claimed false→true, or none does and sentinel.ErrConflict is
// returned (some target was already claimed or deleted).
type Store interface {
	GetEntity(ctx context.Context, id string) (models.Entity, error)
	GetSet(ctx context.Context, listID string) (models.RegistrySet, error)
	CommitClaim(ctx context.Context, listID string, ids []models.RegistryID, document string) error
	SetVoteBlocked(ctx context.Context, listID string, id models.RegistryID, blocked bool) error
	SetDeleted(ctx context.Context, listID string, id models.RegistryID, deleted bool) error
	ResetClaims(ctx context.Context, listID string) error
}
