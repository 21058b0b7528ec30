package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	asmmodels "asamblea/internal/assembly/models"
	"asamblea/internal/audit"
	"asamblea/internal/notify"
	usermodels "asamblea/internal/registration/models"
	regmodels "asamblea/internal/registry/models"
	"asamblea/internal/tally"
	"asamblea/internal/voting/metrics"
	"asamblea/internal/voting/models"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
)

// QuestionStore is the question access the voting flow needs.
type QuestionStore interface {
	Get(ctx context.Context, id string) (models.Question, error)
	ListByAssembly(ctx context.Context, assemblyID string) ([]models.Question, error)
	Create(ctx context.Context, q models.Question) error
	SetStatus(ctx context.Context, id string, from, to models.QuestionStatus) error
	CommitVotes(ctx context.Context, questionID string, answers map[regmodels.RegistryID]models.Answer) ([]regmodels.RegistryID, error)
}

// AssemblyStore reads the assembly record gating votes.
type AssemblyStore interface {
	Get(ctx context.Context, id string) (asmmodels.Assembly, error)
}

// RegistryStore reads the registry snapshot for eligibility and tallies.
type RegistryStore interface {
	GetEntity(ctx context.Context, id string) (regmodels.Entity, error)
	GetSet(ctx context.Context, listID string) (regmodels.RegistrySet, error)
}

// UserStore looks up the voter's registration.
type UserStore interface {
	Get(ctx context.Context, document, assemblyID string) (usermodels.AssemblyUser, error)
}

// Service owns the question lifecycle and the batch vote transaction.
type Service struct {
	questions  QuestionStore
	assemblies AssemblyStore
	registries RegistryStore
	users      UserStore
	bus        *notify.Bus
	auditor    audit.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewService(
	questions QuestionStore,
	assemblies AssemblyStore,
	registries RegistryStore,
	users UserStore,
	bus *notify.Bus,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		questions:  questions,
		assemblies: assemblies,
		registries: registries,
		users:      users,
		bus:        bus,
		auditor:    auditor,
		metrics:    m,
		log:        log,
	}
}

// CreateQuestionRequest describes a new question for an assembly.
type CreateQuestionRequest struct {
	AssemblyID string
	Text       string
	Type       models.QuestionType
	Options    []string
}

var yesNoOptions = []string{"YES", "NO"}

// CreateQuestion registers a question in CREATED state. YES_NO questions get
// the fixed option pair; OPEN questions carry no options at all.
func (s *Service) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (models.Question, error) {
	if req.Text == "" {
		return models.Question{}, dErrors.New(dErrors.CodeBadRequest, "question text is required")
	}
	if !req.Type.IsValid() {
		return models.Question{}, dErrors.New(dErrors.CodeBadRequest, "invalid question type")
	}

	options := req.Options
	switch req.Type {
	case models.TypeYesNo:
		if len(options) == 0 {
			options = yesNoOptions
		}
	case models.TypeOpen:
		if len(options) > 0 {
			return models.Question{}, dErrors.New(dErrors.CodeBadRequest, "open questions take no options")
		}
	default:
		if len(options) < 2 {
			return models.Question{}, dErrors.New(dErrors.CodeBadRequest, "at least two options are required")
		}
	}

	assembly, err := s.assembly(ctx, req.AssemblyID)
	if err != nil {
		return models.Question{}, err
	}
	if assembly.Status == asmmodels.StatusFinished {
		return models.Question{}, dErrors.New(dErrors.CodeIllegalTransition, "assembly is finished")
	}

	q := models.Question{
		ID:         uuid.NewString(),
		AssemblyID: req.AssemblyID,
		Text:       req.Text,
		Type:       req.Type,
		Options:    options,
		Status:     models.StatusCreated,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return models.Question{}, fmt.Errorf("create question: %w", err)
	}

	s.bus.PublishQuestions(req.AssemblyID)
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionQuestionCreated,
		AssemblyID: req.AssemblyID,
		Detail:     string(req.Type),
	})
	return q, nil
}

// SetStatus moves a question through its lifecycle. The guard is checked
// before the store write and the store compares-and-sets again, so a
// concurrent operator firing the same transition loses cleanly. A retake
// (FINISHED back to LIVE) keeps the ledger: recorded answers are never
// overwritten, late voters simply add theirs.
func (s *Service) SetStatus(ctx context.Context, questionID string, to models.QuestionStatus) (models.Question, error) {
	q, err := s.question(ctx, questionID)
	if err != nil {
		return models.Question{}, err
	}
	if !models.CanTransition(q.Status, to) {
		return models.Question{}, dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("question cannot move from %s to %s", q.Status, to))
	}

	if to == models.StatusLive {
		assembly, err := s.assembly(ctx, q.AssemblyID)
		if err != nil {
			return models.Question{}, err
		}
		if assembly.Status == asmmodels.StatusFinished {
			return models.Question{}, dErrors.New(dErrors.CodeIllegalTransition, "assembly is finished")
		}
	}

	if err := s.questions.SetStatus(ctx, questionID, q.Status, to); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Question{}, dErrors.Wrap(err, dErrors.CodeIllegalTransition, "question status changed concurrently")
		}
		return models.Question{}, fmt.Errorf("set question status: %w", err)
	}
	from := q.Status
	q.Status = to

	s.metrics.IncQuestionChanges()
	s.bus.PublishQuestions(q.AssemblyID)
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionQuestionStatus,
		AssemblyID: q.AssemblyID,
		Detail:     fmt.Sprintf("%s: %s->%s", questionID, from, to),
	})
	s.log.Info("question transition", "question", questionID, "from", from, "to", to)
	return q, nil
}

// ListByAssembly returns the assembly's questions.
func (s *Service) ListByAssembly(ctx context.Context, assemblyID string) ([]models.Question, error) {
	qs, err := s.questions.ListByAssembly(ctx, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

// Eligible filters a user's registries down to the ones that may still answer
// the question: not deleted, not vote-blocked, not barred by the assembly,
// and not already holding an answer.
func (s *Service) Eligible(q models.Question, assembly asmmodels.Assembly, set regmodels.RegistrySet, user usermodels.AssemblyUser) []regmodels.RegistryID {
	var eligible []regmodels.RegistryID
	for _, id := range user.RegistryIDs() {
		r, ok := set[id]
		if !ok || r.IsDeleted || r.VoteBlocked {
			continue
		}
		if assembly.VoterBlocked(id) {
			continue
		}
		if q.Answered(id) {
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible
}

// SubmitRequest is one vote submission. Exactly one of Block or Individual is
// set; the assembly's voting mode, when configured, forces which.
type SubmitRequest struct {
	QuestionID string
	Document   string
	// Block is one answer fanned out to every eligible registry.
	Block *models.Answer
	// Individual maps each eligible registry to its own answer.
	Individual map[regmodels.RegistryID]models.Answer
}

// Submit runs the batch vote transaction. Every answer for the eligible set
// lands in one atomic commit or none does; registries that gained an answer
// concurrently are skipped by the store, never overwritten.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) ([]regmodels.RegistryID, error) {
	applied, err := s.submit(ctx, req)
	if err != nil {
		s.metrics.IncVotesRejected()
		return nil, err
	}
	return applied, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) ([]regmodels.RegistryID, error) {
	if (req.Block == nil) == (req.Individual == nil) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "submission must be either block or individual")
	}

	q, err := s.question(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusLive {
		return nil, dErrors.New(dErrors.CodeIllegalTransition, "question is not accepting votes")
	}

	assembly, err := s.assembly(ctx, q.AssemblyID)
	if err != nil {
		return nil, err
	}
	if assembly.Status == asmmodels.StatusFinished {
		return nil, dErrors.New(dErrors.CodeIllegalTransition, "assembly is finished")
	}
	switch assembly.VotingMode {
	case asmmodels.VotingModeBlock:
		if req.Block == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "assembly only accepts block submissions")
		}
	case asmmodels.VotingModeIndividual:
		if req.Individual == nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "assembly only accepts individual submissions")
		}
	}

	user, err := s.users.Get(ctx, req.Document, q.AssemblyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "document is not registered for this assembly")
		}
		return nil, fmt.Errorf("look up assembly user: %w", err)
	}

	entity, err := s.registries.GetEntity(ctx, assembly.EntityID)
	if err != nil {
		return nil, s.notFound(err, "entity not found")
	}
	set, err := s.registries.GetSet(ctx, entity.ListID)
	if err != nil {
		return nil, s.notFound(err, "registry set not found")
	}

	eligible := s.Eligible(q, assembly, set, user)
	if len(eligible) == 0 {
		return nil, dErrors.New(dErrors.CodeBlockedVoter, "no eligible registries for this question")
	}

	answers := make(map[regmodels.RegistryID]models.Answer, len(eligible))
	if req.Block != nil {
		if err := q.ValidateAnswer(*req.Block); err != nil {
			return nil, err
		}
		for _, id := range eligible {
			answers[id] = *req.Block
		}
	} else {
		represented := user.RegistryIDs()
		for id := range req.Individual {
			if slices.Contains(eligible, id) {
				continue
			}
			// A resent answer for a registry that already voted is dropped,
			// not rejected: the pending set shrinks as answers land, and a
			// retry naturally carries the whole original payload.
			if slices.Contains(represented, id) && q.Answered(id) {
				continue
			}
			return nil, dErrors.New(dErrors.CodeBadRequest, "answer targets an ineligible registry")
		}
		for _, id := range eligible {
			ans, ok := req.Individual[id]
			if !ok {
				return nil, dErrors.New(dErrors.CodeIncompleteAnswerSet, "every eligible registry needs an answer")
			}
			if err := q.ValidateAnswer(ans); err != nil {
				return nil, err
			}
			answers[id] = ans
		}
	}

	applied, err := s.questions.CommitVotes(ctx, q.ID, answers)
	if err != nil {
		return nil, fmt.Errorf("commit votes: %w", err)
	}

	s.metrics.AddVotesRecorded(len(applied))
	s.bus.PublishQuestions(q.AssemblyID)
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionVotesRecorded,
		AssemblyID: q.AssemblyID,
		Document:   req.Document,
		Detail:     fmt.Sprintf("%s: answers=%d", q.ID, len(applied)),
	})
	s.log.Info("votes recorded",
		"question", q.ID, "document", req.Document, "answers", len(applied))
	return applied, nil
}

// Quorum returns the attendance quorum for an assembly from the latest
// registry snapshot.
func (s *Service) Quorum(ctx context.Context, assemblyID string) (float64, error) {
	assembly, err := s.assembly(ctx, assemblyID)
	if err != nil {
		return 0, err
	}
	entity, err := s.registries.GetEntity(ctx, assembly.EntityID)
	if err != nil {
		return 0, s.notFound(err, "entity not found")
	}
	set, err := s.registries.GetSet(ctx, entity.ListID)
	if err != nil {
		return 0, s.notFound(err, "registry set not found")
	}
	return tally.AttendanceQuorum(set), nil
}

// TallyQuestion aggregates a question's ledger against the latest registry
// snapshot.
func (s *Service) TallyQuestion(ctx context.Context, questionID string) (tally.Result, error) {
	q, err := s.question(ctx, questionID)
	if err != nil {
		return tally.Result{}, err
	}
	assembly, err := s.assembly(ctx, q.AssemblyID)
	if err != nil {
		return tally.Result{}, err
	}
	entity, err := s.registries.GetEntity(ctx, assembly.EntityID)
	if err != nil {
		return tally.Result{}, s.notFound(err, "entity not found")
	}
	set, err := s.registries.GetSet(ctx, entity.ListID)
	if err != nil {
		return tally.Result{}, s.notFound(err, "registry set not found")
	}
	return tally.Tally(q, set), nil
}

func (s *Service) question(ctx context.Context, id string) (models.Question, error) {
	q, err := s.questions.Get(ctx, id)
	if err != nil {
		return models.Question{}, s.notFound(err, "question not found")
	}
	return q, nil
}

func (s *Service) assembly(ctx context.Context, id string) (asmmodels.Assembly, error) {
	a, err := s.assemblies.Get(ctx, id)
	if err != nil {
		return asmmodels.Assembly{}, s.notFound(err, "assembly not found")
	}
	return a, nil
}

func (s *Service) notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return err
}
