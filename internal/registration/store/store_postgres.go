package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"asamblea/internal/registration/models"
	regstore "asamblea/internal/registry/store"
	"asamblea/pkg/platform/sentinel"
)

// Postgres persists assembly users; representations travel as JSONB. The
// primary key (document, assembly_id) enforces the once-per-identity rule.
type Postgres struct {
	q regstore.DBTX
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

// NewPostgresTx scopes the store to an open transaction, for the claim
// transaction boundary.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

func (s *Postgres) Create(ctx context.Context, user models.AssemblyUser) error {
	reps, err := json.Marshal(user.Representations)
	if err != nil {
		return fmt.Errorf("encode representations: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO assembly_users (document, assembly_id, representations, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document, assembly_id) DO NOTHING
	`, user.Document, user.AssemblyID, reps, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create assembly user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create assembly user rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, document, assemblyID string) (models.AssemblyUser, error) {
	var (
		user models.AssemblyUser
		reps []byte
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT document, assembly_id, representations, created_at
		FROM assembly_users
		WHERE document = $1 AND assembly_id = $2
	`, document, assemblyID).Scan(&user.Document, &user.AssemblyID, &reps, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AssemblyUser{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.AssemblyUser{}, fmt.Errorf("get assembly user: %w", err)
	}
	if err := json.Unmarshal(reps, &user.Representations); err != nil {
		return models.AssemblyUser{}, fmt.Errorf("decode representations: %w", err)
	}
	return user, nil
}

func (s *Postgres) DeleteByAssembly(ctx context.Context, assemblyID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM assembly_users WHERE assembly_id = $1`, assemblyID)
	if err != nil {
		return fmt.Errorf("delete assembly users: %w", err)
	}
	return nil
}
