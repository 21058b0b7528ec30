package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	asmmodels "asamblea/internal/assembly/models"
	asmstore "asamblea/internal/assembly/store"
	"asamblea/internal/audit"
	"asamblea/internal/notify"
	"asamblea/internal/platform/logger"
	usermodels "asamblea/internal/registration/models"
	userstore "asamblea/internal/registration/store"
	regmodels "asamblea/internal/registry/models"
	registrystore "asamblea/internal/registry/store"
	"asamblea/internal/voting/metrics"
	"asamblea/internal/voting/models"
	votingstore "asamblea/internal/voting/store"
	dErrors "asamblea/pkg/domain-errors"
)

type VotingSuite struct {
	suite.Suite
	ctx        context.Context
	questions  *votingstore.InMemory
	assemblies *asmstore.InMemory
	registries *registrystore.InMemory
	users      *userstore.InMemory
	service    *Service
}

func (s *VotingSuite) SetupTest() {
	s.ctx = context.Background()
	s.questions = votingstore.NewInMemory()
	s.assemblies = asmstore.NewInMemory()
	s.registries = registrystore.NewInMemory()
	s.users = userstore.NewInMemory()

	s.registries.SeedEntity(
		regmodels.Entity{ID: "e1", Name: "Edificio Central", ListID: "list-1"},
		[]regmodels.Registry{
			{ID: "A", ListID: "list-1", Unit: "101", OwnerDocument: "123", Coefficient: 10},
			{ID: "B", ListID: "list-1", Unit: "102", OwnerDocument: "123", Coefficient: 5},
			{ID: "C", ListID: "list-1", Unit: "103", OwnerDocument: "789", Coefficient: 25},
		},
	)
	s.Require().NoError(s.assemblies.Create(s.ctx, asmmodels.Assembly{
		ID:       "a1",
		EntityID: "e1",
		Status:   asmmodels.StatusStarted,
	}))
	s.Require().NoError(s.users.Create(s.ctx, usermodels.AssemblyUser{
		Document:   "123",
		AssemblyID: "a1",
		Representations: []usermodels.Representation{
			{RegistryID: "A", Role: usermodels.RoleOwner},
			{RegistryID: "B", Role: usermodels.RoleOwner},
		},
	}))

	s.service = NewService(
		s.questions,
		s.assemblies,
		s.registries,
		s.users,
		notify.NewBus(),
		audit.NopPublisher{},
		metrics.NewNop(),
		logger.Discard(),
	)
}

func TestVotingSuite(t *testing.T) {
	suite.Run(t, new(VotingSuite))
}

func (s *VotingSuite) liveQuestion(qtype models.QuestionType, options ...string) models.Question {
	q, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
		AssemblyID: "a1",
		Text:       "approve the annual budget?",
		Type:       qtype,
		Options:    options,
	})
	s.Require().NoError(err)
	q, err = s.service.SetStatus(s.ctx, q.ID, models.StatusLive)
	s.Require().NoError(err)
	return q
}

func (s *VotingSuite) TestCreateQuestion() {
	s.Run("yes/no gets the fixed option pair", func() {
		q, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
			AssemblyID: "a1",
			Text:       "approve?",
			Type:       models.TypeYesNo,
		})
		s.Require().NoError(err)
		s.Equal([]string{"YES", "NO"}, q.Options)
		s.Equal(models.StatusCreated, q.Status)
	})

	s.Run("unique needs at least two options", func() {
		_, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
			AssemblyID: "a1",
			Text:       "pick one",
			Type:       models.TypeUnique,
			Options:    []string{"only"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("open takes no options", func() {
		_, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
			AssemblyID: "a1",
			Text:       "comments?",
			Type:       models.TypeOpen,
			Options:    []string{"YES"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *VotingSuite) TestStatusTransitions() {
	q, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
		AssemblyID: "a1", Text: "approve?", Type: models.TypeYesNo,
	})
	s.Require().NoError(err)

	s.Run("created cannot finish directly", func() {
		_, err := s.service.SetStatus(s.ctx, q.ID, models.StatusFinished)
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("full cycle with retake keeps the ledger", func() {
		_, err := s.service.SetStatus(s.ctx, q.ID, models.StatusLive)
		s.Require().NoError(err)

		_, err = s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Block:      &models.Answer{Option: "YES"},
		})
		s.Require().NoError(err)

		_, err = s.service.SetStatus(s.ctx, q.ID, models.StatusFinished)
		s.Require().NoError(err)
		_, err = s.service.SetStatus(s.ctx, q.ID, models.StatusLive)
		s.Require().NoError(err)

		got, err := s.questions.Get(s.ctx, q.ID)
		s.Require().NoError(err)
		s.Len(got.Answers, 2, "retake must not discard recorded answers")
	})
}

func (s *VotingSuite) TestSubmitBlock() {
	q := s.liveQuestion(models.TypeYesNo)

	applied, err := s.service.Submit(s.ctx, SubmitRequest{
		QuestionID: q.ID,
		Document:   "123",
		Block:      &models.Answer{Option: "YES"},
	})
	s.Require().NoError(err)
	s.ElementsMatch([]regmodels.RegistryID{"A", "B"}, applied)

	got, err := s.questions.Get(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.Answer{Option: "YES"}, got.Answers["A"])
	s.Equal(models.Answer{Option: "YES"}, got.Answers["B"])
}

func (s *VotingSuite) TestSubmitIndividual() {
	s.Run("all eligible registries must answer", func() {
		q := s.liveQuestion(models.TypeUnique, "garden", "facade")
		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{
				"A": {Option: "garden"},
			},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeIncompleteAnswerSet))

		got, err := s.questions.Get(s.ctx, q.ID)
		s.Require().NoError(err)
		s.Empty(got.Answers, "a rejected submission writes nothing")
	})

	s.Run("distinct answers per registry commit together", func() {
		q := s.liveQuestion(models.TypeUnique, "garden", "facade")
		applied, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{
				"A": {Option: "garden"},
				"B": {Option: "facade"},
			},
		})
		s.Require().NoError(err)
		s.Len(applied, 2)
	})

	s.Run("resent answers for answered registries are dropped, not rejected", func() {
		q := s.liveQuestion(models.TypeUnique, "garden", "facade")

		// First round: B is vote-blocked, so A answers alone.
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "B", true))
		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{
				"A": {Option: "garden"},
			},
		})
		s.Require().NoError(err)
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "B", false))

		// Retry carries the full payload; only the pending registry commits.
		applied, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{
				"A": {Option: "facade"},
				"B": {Option: "facade"},
			},
		})
		s.Require().NoError(err)
		s.Equal([]regmodels.RegistryID{"B"}, applied)

		got, err := s.questions.Get(s.ctx, q.ID)
		s.Require().NoError(err)
		s.Equal(models.Answer{Option: "garden"}, got.Answers["A"], "a prior answer is never overwritten")
	})

	s.Run("ineligible target is rejected", func() {
		q := s.liveQuestion(models.TypeUnique, "garden", "facade")
		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{
				"A": {Option: "garden"},
				"B": {Option: "facade"},
				"C": {Option: "garden"},
			},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *VotingSuite) TestNoDoubleVote() {
	q := s.liveQuestion(models.TypeYesNo)

	_, err := s.service.Submit(s.ctx, SubmitRequest{
		QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
	})
	s.Require().NoError(err)

	// Every registry already answered: the eligible set is empty.
	_, err = s.service.Submit(s.ctx, SubmitRequest{
		QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "NO"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeBlockedVoter))

	got, err := s.questions.Get(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.Answer{Option: "YES"}, got.Answers["A"], "a prior answer is never overwritten")
}

func (s *VotingSuite) TestEligibilityFilters() {
	s.Run("vote-blocked registry is skipped", func() {
		q := s.liveQuestion(models.TypeYesNo)
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "A", true))

		applied, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
		})
		s.Require().NoError(err)
		s.Equal([]regmodels.RegistryID{"B"}, applied)
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "A", false))
	})

	s.Run("assembly-blocked voter is skipped", func() {
		q := s.liveQuestion(models.TypeYesNo)
		s.Require().NoError(s.assemblies.SetVoterBlocked(s.ctx, "a1", "A", true))

		applied, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
		})
		s.Require().NoError(err)
		s.Equal([]regmodels.RegistryID{"B"}, applied)
		s.Require().NoError(s.assemblies.SetVoterBlocked(s.ctx, "a1", "A", false))
	})

	s.Run("fully blocked user gets BlockedVoter", func() {
		q := s.liveQuestion(models.TypeYesNo)
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "A", true))
		s.Require().NoError(s.registries.SetVoteBlocked(s.ctx, "list-1", "B", true))

		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBlockedVoter))
	})
}

func (s *VotingSuite) TestSubmitGates() {
	s.Run("only LIVE accepts votes", func() {
		q, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
			AssemblyID: "a1", Text: "approve?", Type: models.TypeYesNo,
		})
		s.Require().NoError(err)

		_, err = s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("unregistered document is rejected", func() {
		q := s.liveQuestion(models.TypeYesNo)
		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "000", Block: &models.Answer{Option: "YES"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong answer shape is rejected", func() {
		q := s.liveQuestion(models.TypeYesNo)
		_, err := s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID, Document: "123", Block: &models.Answer{Options: []string{"YES"}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	s.Run("forced voting mode rejects the other payload", func() {
		s.Require().NoError(s.assemblies.Create(s.ctx, asmmodels.Assembly{
			ID:         "a2",
			EntityID:   "e1",
			Status:     asmmodels.StatusStarted,
			VotingMode: asmmodels.VotingModeBlock,
		}))
		s.Require().NoError(s.users.Create(s.ctx, usermodels.AssemblyUser{
			Document:   "123",
			AssemblyID: "a2",
			Representations: []usermodels.Representation{
				{RegistryID: "A", Role: usermodels.RoleOwner},
			},
		}))
		q, err := s.service.CreateQuestion(s.ctx, CreateQuestionRequest{
			AssemblyID: "a2", Text: "approve?", Type: models.TypeYesNo,
		})
		s.Require().NoError(err)
		_, err = s.service.SetStatus(s.ctx, q.ID, models.StatusLive)
		s.Require().NoError(err)

		_, err = s.service.Submit(s.ctx, SubmitRequest{
			QuestionID: q.ID,
			Document:   "123",
			Individual: map[regmodels.RegistryID]models.Answer{"A": {Option: "YES"}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *VotingSuite) TestQuorumAndTally() {
	q := s.liveQuestion(models.TypeYesNo)

	quorum, err := s.service.Quorum(s.ctx, "a1")
	s.Require().NoError(err)
	s.Zero(quorum, "nothing claimed yet")

	s.Require().NoError(s.registries.CommitClaim(s.ctx, "list-1", []regmodels.RegistryID{"A", "B"}, "123"))
	quorum, err = s.service.Quorum(s.ctx, "a1")
	s.Require().NoError(err)
	s.InDelta(37.5, quorum, 0.001) // 15 of 40

	_, err = s.service.Submit(s.ctx, SubmitRequest{
		QuestionID: q.ID, Document: "123", Block: &models.Answer{Option: "YES"},
	})
	s.Require().NoError(err)

	res, err := s.service.TallyQuestion(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Require().Len(res.Options, 2)
	s.Equal("YES", res.Options[0].Option)
	s.Equal(2, res.Options[0].VotesCount)
	s.InDelta(15, res.Options[0].VotedCoefficient, 0.001)
	s.InDelta(37.5, res.Options[0].DisplayPercent, 0.001)
	s.InDelta(37.5, res.ParticipationQuorum, 0.001)
}
