package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"asamblea/internal/assembly/models"
	regmodels "asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

// Postgres persists assemblies. Blocked voters and config travel as JSONB;
// the status write is a guarded UPDATE so transitions compare-and-set.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Get(ctx context.Context, id string) (models.Assembly, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, status, scheduled_at, voting_mode, blocked_voters, config
		FROM assemblies WHERE id = $1
	`, id)
	a, err := scanAssembly(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Assembly{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Assembly{}, fmt.Errorf("get assembly: %w", err)
	}
	return a, nil
}

func (s *Postgres) List(ctx context.Context) ([]models.Assembly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, status, scheduled_at, voting_mode, blocked_voters, config
		FROM assemblies
	`)
	if err != nil {
		return nil, fmt.Errorf("list assemblies: %w", err)
	}
	defer rows.Close()

	var out []models.Assembly
	for rows.Next() {
		a, err := scanAssembly(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assembly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) Create(ctx context.Context, a models.Assembly) error {
	blocked, config, err := marshalAssembly(a)
	if err != nil {
		return err
	}
	var scheduled any
	if !a.ScheduledAt.IsZero() {
		scheduled = a.ScheduledAt
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assemblies (id, entity_id, status, scheduled_at, voting_mode, blocked_voters, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.EntityID, string(a.Status), scheduled, string(a.VotingMode), blocked, config)
	if err != nil {
		return fmt.Errorf("create assembly: %w", err)
	}
	return nil
}

func (s *Postgres) SetStatus(ctx context.Context, id string, from, to models.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assemblies SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("set assembly status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set assembly status rows: %w", err)
	}
	if affected == 0 {
		// Either the assembly is gone or another operator moved it first.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) SetVoterBlocked(ctx context.Context, id string, reg regmodels.RegistryID, blocked bool) error {
	var query string
	if blocked {
		query = `
			UPDATE assemblies
			SET blocked_voters = (
				SELECT COALESCE(jsonb_agg(DISTINCT v), '[]'::jsonb)
				FROM jsonb_array_elements_text(blocked_voters || to_jsonb(ARRAY[$2::text])) AS v
			)
			WHERE id = $1`
	} else {
		query = `UPDATE assemblies SET blocked_voters = blocked_voters - $2::text WHERE id = $1`
	}
	res, err := s.db.ExecContext(ctx, query, id, string(reg))
	if err != nil {
		return fmt.Errorf("set voter blocked: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set voter blocked rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssembly(row rowScanner) (models.Assembly, error) {
	var (
		a          models.Assembly
		status     string
		scheduled  sql.NullTime
		votingMode string
		blockedRaw []byte
		configRaw  []byte
	)
	if err := row.Scan(&a.ID, &a.EntityID, &status, &scheduled, &votingMode, &blockedRaw, &configRaw); err != nil {
		return models.Assembly{}, err
	}
	a.Status = models.Status(status)
	a.VotingMode = models.VotingMode(votingMode)
	if scheduled.Valid {
		a.ScheduledAt = scheduled.Time
	}

	var blockedList []string
	if err := json.Unmarshal(blockedRaw, &blockedList); err != nil {
		return models.Assembly{}, fmt.Errorf("decode blocked voters: %w", err)
	}
	a.BlockedVoters = make(map[regmodels.RegistryID]struct{}, len(blockedList))
	for _, v := range blockedList {
		a.BlockedVoters[regmodels.RegistryID(v)] = struct{}{}
	}

	if err := json.Unmarshal(configRaw, &a.Config); err != nil {
		return models.Assembly{}, fmt.Errorf("decode assembly config: %w", err)
	}
	return a, nil
}

func marshalAssembly(a models.Assembly) (blocked, config []byte, err error) {
	blockedList := make([]string, 0, len(a.BlockedVoters))
	for v := range a.BlockedVoters {
		blockedList = append(blockedList, string(v))
	}
	blocked, err = json.Marshal(blockedList)
	if err != nil {
		return nil, nil, fmt.Errorf("encode blocked voters: %w", err)
	}
	config, err = json.Marshal(a.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("encode assembly config: %w", err)
	}
	return blocked, config, nil
}
