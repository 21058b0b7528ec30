package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// standalone or inside the claim transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists registry sets in PostgreSQL (pgx stdlib driver).
// Claim and reset writes are guarded UPDATEs — the WHERE clause is the
// compare-and-set; a blind overwrite of the whole set never happens.
type Postgres struct {
	db *sql.DB // non-nil when this store owns transaction boundaries
	q  DBTX
}

// NewPostgres builds a store over a connection pool. CommitClaim opens its own
// transaction.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

// NewPostgresTx builds a store scoped to an open transaction, for use inside
// the claim transaction boundary.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

func (s *Postgres) GetEntity(ctx context.Context, id string) (models.Entity, error) {
	var e models.Entity
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, list_id FROM entities WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.ListID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

func (s *Postgres) GetSet(ctx context.Context, listID string) (models.RegistrySet, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, list_id, unit, grp, owner_name, owner_document,
		       coefficient, claimed, claim_owner_document, vote_blocked, is_deleted
		FROM registries
		WHERE list_id = $1
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("get registry set: %w", err)
	}
	defer rows.Close()

	set := make(models.RegistrySet)
	for rows.Next() {
		var r models.Registry
		if err := rows.Scan(&r.ID, &r.ListID, &r.Unit, &r.Group, &r.OwnerName, &r.OwnerDocument,
			&r.Coefficient, &r.Claimed, &r.ClaimOwnerDocument, &r.VoteBlocked, &r.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan registry: %w", err)
		}
		set[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registries: %w", err)
	}
	if len(set) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return set, nil
}

func (s *Postgres) CommitClaim(ctx context.Context, listID string, ids []models.RegistryID, document string) error {
	if s.db != nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := commitClaim(ctx, tx, listID, ids, document); err != nil {
			return err
		}
		return tx.Commit()
	}
	return commitClaim(ctx, s.q, listID, ids, document)
}

func commitClaim(ctx context.Context, q DBTX, listID string, ids []models.RegistryID, document string) error {
	targets := make([]string, len(ids))
	for i, id := range ids {
		targets[i] = string(id)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE registries
		SET claimed = TRUE, claim_owner_document = $3
		WHERE list_id = $1 AND id = ANY($2)
		  AND claimed = FALSE AND is_deleted = FALSE
	`, listID, targets, document)
	if err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit claim rows: %w", err)
	}
	if affected != int64(len(ids)) {
		// Some target lost the race or vanished; the surrounding transaction
		// rolls this back so no partial claim is observed.
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) SetVoteBlocked(ctx context.Context, listID string, id models.RegistryID, blocked bool) error {
	return s.setField(ctx, `UPDATE registries SET vote_blocked = $3 WHERE list_id = $1 AND id = $2`, listID, id, blocked)
}

func (s *Postgres) SetDeleted(ctx context.Context, listID string, id models.RegistryID, deleted bool) error {
	return s.setField(ctx, `UPDATE registries SET is_deleted = $3 WHERE list_id = $1 AND id = $2`, listID, id, deleted)
}

func (s *Postgres) setField(ctx context.Context, query, listID string, id models.RegistryID, value bool) error {
	res, err := s.q.ExecContext(ctx, query, listID, string(id), value)
	if err != nil {
		return fmt.Errorf("set registry field: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set registry field rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ResetClaims(ctx context.Context, listID string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE registries SET claimed = FALSE, claim_owner_document = '' WHERE list_id = $1`, listID)
	if err != nil {
		return fmt.Errorf("reset claims: %w", err)
	}
	return nil
}
