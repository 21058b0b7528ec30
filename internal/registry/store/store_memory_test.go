package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

type RegistryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *RegistryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.store.SeedEntity(
		models.Entity{ID: "e1", Name: "Torres del Parque", ListID: "list-1"},
		[]models.Registry{
			{ID: "A", ListID: "list-1", Unit: "101", OwnerDocument: "123", Coefficient: 40},
			{ID: "B", ListID: "list-1", Unit: "102", OwnerDocument: "456", Coefficient: 35},
			{ID: "C", ListID: "list-1", Unit: "103", OwnerDocument: "789", Coefficient: 25},
		},
	)
}

func TestRegistryStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistryStoreSuite))
}

func (s *RegistryStoreSuite) TestSnapshots() {
	s.Run("returns a copy, not the live map", func() {
		set, err := s.store.GetSet(s.ctx, "list-1")
		s.Require().NoError(err)
		s.Len(set, 3)

		r := set["A"]
		r.Claimed = true
		set["A"] = r

		fresh, err := s.store.GetSet(s.ctx, "list-1")
		s.Require().NoError(err)
		s.False(fresh["A"].Claimed)
	})

	s.Run("unknown list returns ErrNotFound", func() {
		_, err := s.store.GetSet(s.ctx, "nope")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistryStoreSuite) TestCommitClaim() {
	s.Run("claims all targets atomically", func() {
		err := s.store.CommitClaim(s.ctx, "list-1", []models.RegistryID{"A", "C"}, "123")
		s.Require().NoError(err)

		set, _ := s.store.GetSet(s.ctx, "list-1")
		s.True(set["A"].Claimed)
		s.True(set["C"].Claimed)
		s.Equal("123", set["A"].ClaimOwnerDocument)
		s.False(set["B"].Claimed)
	})

	s.Run("rejects when any target is already claimed, touching nothing", func() {
		// A is still claimed from the subtest above; B is free.
		err := s.store.CommitClaim(s.ctx, "list-1", []models.RegistryID{"B", "A"}, "456")
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		set, _ := s.store.GetSet(s.ctx, "list-1")
		s.False(set["B"].Claimed, "failed claim must not leave partial state")
	})

	s.Run("rejects deleted targets", func() {
		s.Require().NoError(s.store.SetDeleted(s.ctx, "list-1", "B", true))
		err := s.store.CommitClaim(s.ctx, "list-1", []models.RegistryID{"B"}, "456")
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestConcurrentClaims checks the single-winner property: N goroutines race to
// claim the same registry and exactly one commit succeeds.
func (s *RegistryStoreSuite) TestConcurrentClaims() {
	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.store.CommitClaim(s.ctx, "list-1", []models.RegistryID{"A"}, "doc"); err == nil {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	s.Equal(1, winners, "exactly one concurrent claim may commit")
}

func (s *RegistryStoreSuite) TestFieldToggles() {
	s.Run("vote-block toggles one field only", func() {
		s.Require().NoError(s.store.SetVoteBlocked(s.ctx, "list-1", "A", true))
		set, _ := s.store.GetSet(s.ctx, "list-1")
		s.True(set["A"].VoteBlocked)
		s.False(set["A"].Claimed)
	})

	s.Run("unknown registry returns ErrNotFound", func() {
		err := s.store.SetVoteBlocked(s.ctx, "list-1", "Z", true)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistryStoreSuite) TestResetClaims() {
	s.Require().NoError(s.store.CommitClaim(s.ctx, "list-1", []models.RegistryID{"A", "B"}, "123"))
	s.Require().NoError(s.store.ResetClaims(s.ctx, "list-1"))

	set, _ := s.store.GetSet(s.ctx, "list-1")
	for id, r := range set {
		s.False(r.Claimed, string(id))
		s.Empty(r.ClaimOwnerDocument, string(id))
	}
}
