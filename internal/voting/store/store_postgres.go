package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	regmodels "asamblea/internal/registry/models"
	"asamblea/internal/voting/models"
	"asamblea/pkg/platform/sentinel"
)

// Postgres persists questions with one row per answer. The answers primary
// key (question_id, registry_id) plus ON CONFLICT DO NOTHING is the
// no-double-vote guard; the surrounding transaction makes the batch atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Get(ctx context.Context, id string) (models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assembly_id, qtext, qtype, options, status FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Question{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Question{}, fmt.Errorf("get question: %w", err)
	}
	if err := s.loadAnswers(ctx, &q); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

func (s *Postgres) ListByAssembly(ctx context.Context, assemblyID string) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, assembly_id, qtext, qtype, options, status FROM questions WHERE assembly_id = $1`, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadAnswers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Postgres) Create(ctx context.Context, q models.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (id, assembly_id, qtext, qtype, options, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, q.ID, q.AssemblyID, q.Text, string(q.Type), options, string(q.Status))
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (s *Postgres) SetStatus(ctx context.Context, id string, from, to models.QuestionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("set question status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set question status rows: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) CommitVotes(ctx context.Context, questionID string, answers map[regmodels.RegistryID]models.Answer) ([]regmodels.RegistryID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin vote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var applied []regmodels.RegistryID
	for id, a := range answers {
		payload, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode answer: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO answers (question_id, registry_id, answer)
			VALUES ($1, $2, $3)
			ON CONFLICT (question_id, registry_id) DO NOTHING
		`, questionID, string(id), payload)
		if err != nil {
			return nil, fmt.Errorf("commit vote: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("commit vote rows: %w", err)
		} else if n == 1 {
			applied = append(applied, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit vote tx: %w", err)
	}
	return applied, nil
}

func (s *Postgres) ClearAnswers(ctx context.Context, questionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM answers WHERE question_id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return nil
}

func (s *Postgres) loadAnswers(ctx context.Context, q *models.Question) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT registry_id, answer FROM answers WHERE question_id = $1`, q.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	q.Answers = make(map[regmodels.RegistryID]models.Answer)
	for rows.Next() {
		var (
			regID   string
			payload []byte
		)
		if err := rows.Scan(&regID, &payload); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		var a models.Answer
		if err := json.Unmarshal(payload, &a); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		q.Answers[regmodels.RegistryID(regID)] = a
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var (
		q          models.Question
		qtype      string
		status     string
		optionsRaw []byte
	)
	if err := row.Scan(&q.ID, &q.AssemblyID, &q.Text, &qtype, &optionsRaw, &status); err != nil {
		return models.Question{}, err
	}
	q.Type = models.QuestionType(qtype)
	q.Status = models.QuestionStatus(status)
	if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
		return models.Question{}, fmt.Errorf("decode options: %w", err)
	}
	return q, nil
}
