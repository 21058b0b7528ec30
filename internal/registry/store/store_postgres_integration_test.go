//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"asamblea/internal/registry/models"
	"asamblea/internal/registry/store"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.StartPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "answers", "questions", "assembly_users", "assemblies", "registries", "entities"))

	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO entities (id, name, list_id) VALUES ('e1', 'Torres del Parque', 'list-1')`)
	s.Require().NoError(err)

	for _, r := range []struct {
		id    string
		doc   string
		coeff float64
	}{{"A", "123", 40}, {"B", "123", 35}, {"C", "789", 25}} {
		_, err := s.postgres.DB.ExecContext(ctx, `
			INSERT INTO registries (id, list_id, owner_document, coefficient)
			VALUES ($1, 'list-1', $2, $3)
		`, r.id, r.doc, r.coeff)
		s.Require().NoError(err)
	}
}

func (s *PostgresStoreSuite) TestGetSet() {
	set, err := s.store.GetSet(context.Background(), "list-1")
	s.Require().NoError(err)
	s.Len(set, 3)
	s.InDelta(40, set["A"].Coefficient, 1e-9)
	s.Equal("123", set["A"].OwnerDocument)
}

func (s *PostgresStoreSuite) TestCommitClaimAllOrNothing() {
	ctx := context.Background()
	s.Require().NoError(s.store.CommitClaim(ctx, "list-1", []models.RegistryID{"A"}, "123"))

	// B is free but A is taken: the whole commit must fail and leave B free.
	err := s.store.CommitClaim(ctx, "list-1", []models.RegistryID{"B", "A"}, "456")
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	set, err := s.store.GetSet(ctx, "list-1")
	s.Require().NoError(err)
	s.False(set["B"].Claimed)
	s.True(set["A"].Claimed)
	s.Equal("123", set["A"].ClaimOwnerDocument)
}

// TestConcurrentClaims verifies the single-winner property against a real
// database: the guarded UPDATE makes one commit win and the rest conflict.
func (s *PostgresStoreSuite) TestConcurrentClaims() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CommitClaim(ctx, "list-1", []models.RegistryID{"C"}, "789")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one claim should commit")
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestResetClaims() {
	ctx := context.Background()
	s.Require().NoError(s.store.CommitClaim(ctx, "list-1", []models.RegistryID{"A", "B"}, "123"))
	s.Require().NoError(s.store.ResetClaims(ctx, "list-1"))

	set, err := s.store.GetSet(ctx, "list-1")
	s.Require().NoError(err)
	for id, r := range set {
		s.False(r.Claimed, string(id))
	}
}
