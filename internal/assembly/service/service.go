package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"asamblea/internal/assembly/metrics"
	"asamblea/internal/assembly/models"
	"asamblea/internal/audit"
	"asamblea/internal/notify"
	"asamblea/internal/proxyfile"
	regmodels "asamblea/internal/registry/models"
	votingmodels "asamblea/internal/voting/models"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
)

// Store persists assembly records.
type Store interface {
	Get(ctx context.Context, id string) (models.Assembly, error)
	List(ctx context.Context) ([]models.Assembly, error)
	Create(ctx context.Context, a models.Assembly) error
	SetStatus(ctx context.Context, id string, from, to models.Status) error
	SetVoterBlocked(ctx context.Context, id string, reg regmodels.RegistryID, blocked bool) error
}

// RegistryStore is the registry access the lifecycle needs.
type RegistryStore interface {
	GetEntity(ctx context.Context, id string) (regmodels.Entity, error)
	SetVoteBlocked(ctx context.Context, listID string, id regmodels.RegistryID, blocked bool) error
	SetDeleted(ctx context.Context, listID string, id regmodels.RegistryID, deleted bool) error
	ResetClaims(ctx context.Context, listID string) error
}

// QuestionStore is the question access the lifecycle side effects need.
type QuestionStore interface {
	ListByAssembly(ctx context.Context, assemblyID string) ([]votingmodels.Question, error)
	SetStatus(ctx context.Context, id string, from, to votingmodels.QuestionStatus) error
	ClearAnswers(ctx context.Context, questionID string) error
}

// UserStore removes registrations on restart.
type UserStore interface {
	DeleteByAssembly(ctx context.Context, assemblyID string) error
}

// Service owns the assembly lifecycle and its side effects.
type Service struct {
	assemblies Store
	registries RegistryStore
	questions  QuestionStore
	users      UserStore
	files      proxyfile.Storage
	bus        *notify.Bus
	auditor    audit.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewService(
	assemblies Store,
	registries RegistryStore,
	questions QuestionStore,
	users UserStore,
	files proxyfile.Storage,
	bus *notify.Bus,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		assemblies: assemblies,
		registries: registries,
		questions:  questions,
		users:      users,
		files:      files,
		bus:        bus,
		auditor:    auditor,
		metrics:    m,
		log:        log,
	}
}

// CreateRequest describes a new assembly for an entity.
type CreateRequest struct {
	EntityID    string
	ScheduledAt time.Time
	VotingMode  models.VotingMode
	Config      models.Config
}

// Create registers an assembly in the create state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Assembly, error) {
	if _, err := s.registries.GetEntity(ctx, req.EntityID); err != nil {
		return models.Assembly{}, s.notFound(err, "entity not found")
	}
	if req.Config.AccessMethod == "" {
		req.Config.AccessMethod = models.AccessDocumentLookup
	}

	a := models.Assembly{
		ID:            uuid.NewString(),
		EntityID:      req.EntityID,
		Status:        models.StatusCreate,
		ScheduledAt:   req.ScheduledAt,
		VotingMode:    req.VotingMode,
		BlockedVoters: make(map[regmodels.RegistryID]struct{}),
		Config:        req.Config,
	}
	if err := s.assemblies.Create(ctx, a); err != nil {
		return models.Assembly{}, fmt.Errorf("create assembly: %w", err)
	}
	s.bus.PublishAssembly(a.ID)
	return a, nil
}

// Get returns one assembly.
func (s *Service) Get(ctx context.Context, id string) (models.Assembly, error) {
	a, err := s.assemblies.Get(ctx, id)
	if err != nil {
		return models.Assembly{}, s.notFound(err, "assembly not found")
	}
	return a, nil
}

// Start moves an assembly into the started state and opens registration.
func (s *Service) Start(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusStarted, audit.ActionAssemblyStarted)
}

// Finalize freezes the registry set: claims and admin toggles stop being
// accepted until Reopen.
func (s *Service) Finalize(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusRegistriesFinalized, audit.ActionAssemblyFinalized)
}

// Reopen returns a finalized assembly to started.
func (s *Service) Reopen(ctx context.Context, id string) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusRegistriesFinalized {
		return dErrors.New(dErrors.CodeIllegalTransition, "only a finalized assembly can be reopened")
	}
	return s.transition(ctx, id, models.StatusStarted, audit.ActionAssemblyReopened)
}

// Finish closes the assembly. Every LIVE question is forced to FINISHED;
// CREATED and CANCELED questions are left alone.
func (s *Service) Finish(ctx context.Context, id string) error {
	if err := s.transition(ctx, id, models.StatusFinished, audit.ActionAssemblyFinished); err != nil {
		return err
	}

	questions, err := s.questions.ListByAssembly(ctx, id)
	if err != nil {
		return fmt.Errorf("list questions for finish: %w", err)
	}
	for _, q := range questions {
		if q.Status != votingmodels.StatusLive {
			continue
		}
		err := s.questions.SetStatus(ctx, q.ID, votingmodels.StatusLive, votingmodels.StatusFinished)
		if err != nil && !errors.Is(err, sentinel.ErrConflict) {
			s.log.Error("finish live question", "assembly", id, "question", q.ID, "error", err)
		}
	}
	s.bus.PublishQuestions(id)
	return nil
}

// Restart takes a finished assembly back to create for a fresh session:
// claims are reset, users deleted, vote ledgers cleared, and proxy files
// removed. Cleanup steps are best-effort; a failing step is logged and the
// transition still lands.
func (s *Service) Restart(ctx context.Context, id string) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusFinished {
		return dErrors.New(dErrors.CodeIllegalTransition, "only a finished assembly can be restarted")
	}

	entity, err := s.registries.GetEntity(ctx, a.EntityID)
	if err != nil {
		return s.notFound(err, "entity not found")
	}

	s.cleanup(ctx, id, "reset claims", func() error {
		return s.registries.ResetClaims(ctx, entity.ListID)
	})
	s.cleanup(ctx, id, "delete assembly users", func() error {
		return s.users.DeleteByAssembly(ctx, id)
	})
	questions, err := s.questions.ListByAssembly(ctx, id)
	if err != nil {
		s.failedCleanup(id, "list questions", err)
	} else {
		for _, q := range questions {
			s.cleanup(ctx, id, "clear answers", func() error {
				return s.questions.ClearAnswers(ctx, q.ID)
			})
		}
	}
	s.cleanup(ctx, id, "delete proxy files", func() error {
		return s.files.DeleteAllUnder(ctx, "assemblies/"+id+"/")
	})

	if err := s.transition(ctx, id, models.StatusCreate, audit.ActionAssemblyRestarted); err != nil {
		return err
	}
	s.bus.PublishRegistries(entity.ListID)
	s.bus.PublishQuestions(id)
	return nil
}

// SetVoterBlocked bars or unbars a registry from voting in this assembly.
func (s *Service) SetVoterBlocked(ctx context.Context, id string, reg regmodels.RegistryID, blocked bool) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == models.StatusFinished {
		return dErrors.New(dErrors.CodeIllegalTransition, "assembly is finished")
	}
	if err := s.assemblies.SetVoterBlocked(ctx, id, reg, blocked); err != nil {
		return s.notFound(err, "assembly not found")
	}
	s.bus.PublishAssembly(id)
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionVoterBlockToggled,
		AssemblyID: id,
		Detail:     fmt.Sprintf("%s: blocked=%t", reg, blocked),
	})
	return nil
}

// SetRegistryVoteBlocked toggles the registry-level vote block. Only accepted
// while the assembly is started; a finalized registry set is frozen.
func (s *Service) SetRegistryVoteBlocked(ctx context.Context, id string, reg regmodels.RegistryID, blocked bool) error {
	return s.registryToggle(ctx, id, reg, audit.ActionRegistryBlocked, blocked,
		func(listID string) error {
			return s.registries.SetVoteBlocked(ctx, listID, reg, blocked)
		})
}

// SetRegistryDeleted toggles the registry soft-delete. Only accepted while
// the assembly is started.
func (s *Service) SetRegistryDeleted(ctx context.Context, id string, reg regmodels.RegistryID, deleted bool) error {
	return s.registryToggle(ctx, id, reg, audit.ActionRegistryDeleted, deleted,
		func(listID string) error {
			return s.registries.SetDeleted(ctx, listID, reg, deleted)
		})
}

func (s *Service) registryToggle(ctx context.Context, id string, reg regmodels.RegistryID, action audit.Action, value bool, apply func(listID string) error) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusStarted {
		return dErrors.New(dErrors.CodeRegistrationClosed, "registry changes are only accepted while the assembly is started")
	}
	entity, err := s.registries.GetEntity(ctx, a.EntityID)
	if err != nil {
		return s.notFound(err, "entity not found")
	}
	if err := apply(entity.ListID); err != nil {
		return s.notFound(err, "registry not found")
	}
	s.bus.PublishRegistries(entity.ListID)
	s.auditor.Publish(audit.Event{
		Action:     action,
		AssemblyID: id,
		Detail:     fmt.Sprintf("%s: %t", reg, value),
	})
	return nil
}

// transition runs one guarded lifecycle move. The guard runs before the store
// write and the store compares-and-sets again, so a concurrent operator
// firing the same move loses with IllegalTransition instead of double-firing.
func (s *Service) transition(ctx context.Context, id string, to models.Status, action audit.Action) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(a.Status, to) {
		return dErrors.New(dErrors.CodeIllegalTransition,
			fmt.Sprintf("assembly cannot move from %s to %s", a.Status, to))
	}

	if err := s.assemblies.SetStatus(ctx, id, a.Status, to); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeIllegalTransition, "assembly status changed concurrently")
		}
		return fmt.Errorf("set assembly status: %w", err)
	}

	s.metrics.IncTransitions()
	s.bus.PublishAssembly(id)
	s.auditor.Publish(audit.Event{
		Action:     action,
		AssemblyID: id,
		Detail:     fmt.Sprintf("%s->%s", a.Status, to),
	})
	s.log.Info("assembly transition", "assembly", id, "from", a.Status, "to", to)
	return nil
}

func (s *Service) cleanup(_ context.Context, id, step string, fn func() error) {
	if err := fn(); err != nil {
		s.failedCleanup(id, step, err)
	}
}

func (s *Service) failedCleanup(id, step string, err error) {
	s.metrics.IncCleanupFailures()
	s.log.Error("restart cleanup step failed", "assembly", id, "step", step, "error", err)
}

func (s *Service) notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return err
}
