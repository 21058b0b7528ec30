package main

import (
	"context"
	"database/sql"
	"fmt"

	regservice "asamblea/internal/registration/service"
	userstore "asamblea/internal/registration/store"
	registrystore "asamblea/internal/registry/store"
)

// postgresClaimTx runs the claim transaction inside one database transaction:
// the registry claim flip and the user insert commit together or roll back
// together.
type postgresClaimTx struct {
	db *sql.DB
}

func newPostgresClaimTx(db *sql.DB) *postgresClaimTx {
	return &postgresClaimTx{db: db}
}

func (t *postgresClaimTx) RunInTx(ctx context.Context, fn func(tx regservice.TxStores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}

	stores := regservice.TxStores{
		Registries: registrystore.NewPostgresTx(tx),
		Users:      userstore.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim tx: %w", err)
	}
	return nil
}

var _ regservice.StoreTx = (*postgresClaimTx)(nil)
