package service

import (
	"context"
	"sync"
)

// TxStores is the store view inside one claim transaction: the registry write
// and the user write must land together or not at all.
type TxStores struct {
	Registries RegistryStore
	Users      UserStore
}

// StoreTx provides the transactional boundary for the claim transaction.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(tx TxStores) error) error
}

// MemoryTx serializes claim transactions over the in-memory stores. The
// registry store's own CommitClaim guard stays the source of truth for
// conflicts; the lock only keeps the two writes of one claim together.
type MemoryTx struct {
	mu     sync.Mutex
	stores TxStores
}

func NewMemoryTx(registries RegistryStore, users UserStore) *MemoryTx {
	return &MemoryTx{stores: TxStores{Registries: registries, Users: users}}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(tx TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.stores)
}
