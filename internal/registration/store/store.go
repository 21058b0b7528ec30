package store

import (
	"context"

	"asamblea/internal/registration/models"
)

// Store persists assembly users. Create fails with sentinel.ErrConflict when
// the (document, assembly) identity already exists.
type Store interface {
	Create(ctx context.Context, user models.AssemblyUser) error
	Get(ctx context.Context, document, assemblyID string) (models.AssemblyUser, error)
	DeleteByAssembly(ctx context.Context, assemblyID string) error
}
