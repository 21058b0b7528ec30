package store

import (
	"context"

	"asamblea/internal/assembly/models"
	regmodels "asamblea/internal/registry/models"
)

// Store persists assembly records. SetStatus is a compare-and-set: the write
// only lands when the stored status still equals from, so concurrent
// operators cannot double-fire a transition.
type Store interface {
	Get(ctx context.Context, id string) (models.Assembly, error)
	List(ctx context.Context) ([]models.Assembly, error)
	Create(ctx context.Context, a models.Assembly) error
	SetStatus(ctx context.Context, id string, from, to models.Status) error
	SetVoterBlocked(ctx context.Context, id string, reg regmodels.RegistryID, blocked bool) error
}
