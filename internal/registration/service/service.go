package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	asmmodels "asamblea/internal/assembly/models"
	"asamblea/internal/audit"
	"asamblea/internal/notify"
	"asamblea/internal/proxyfile"
	"asamblea/internal/registration/metrics"
	"asamblea/internal/registration/models"
	regmodels "asamblea/internal/registry/models"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
)

// RegistryStore is the registry access the registration flow needs.
type RegistryStore interface {
	GetEntity(ctx context.Context, id string) (regmodels.Entity, error)
	GetSet(ctx context.Context, listID string) (regmodels.RegistrySet, error)
	CommitClaim(ctx context.Context, listID string, ids []regmodels.RegistryID, document string) error
}

// UserStore persists assembly users.
type UserStore interface {
	Create(ctx context.Context, user models.AssemblyUser) error
	Get(ctx context.Context, document, assemblyID string) (models.AssemblyUser, error)
}

// AssemblyStore reads the assembly record gating registration.
type AssemblyStore interface {
	Get(ctx context.Context, id string) (asmmodels.Assembly, error)
}

// Service implements the identity resolver and the claim transaction.
type Service struct {
	assemblies AssemblyStore
	registries RegistryStore
	users      UserStore
	tx         StoreTx
	files      proxyfile.Storage
	bus        *notify.Bus
	auditor    audit.Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewService(
	assemblies AssemblyStore,
	registries RegistryStore,
	users UserStore,
	tx StoreTx,
	files proxyfile.Storage,
	bus *notify.Bus,
	auditor audit.Publisher,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{
		assemblies: assemblies,
		registries: registries,
		users:      users,
		tx:         tx,
		files:      files,
		bus:        bus,
		auditor:    auditor,
		metrics:    m,
		log:        log,
	}
}

// Resolution is the resolver outcome: either an existing user (login) or the
// claimable verification queue for a fresh registration.
type Resolution struct {
	ExistingUser *models.AssemblyUser
	Claimable    []regmodels.Registry
}

// Resolve decides login-vs-register for a document.
//
// Rule order matters: an existing user always logs in, whatever the assembly
// status; only then do the registration gates apply.
func (s *Service) Resolve(ctx context.Context, document, assemblyID string) (Resolution, error) {
	if document == "" {
		return Resolution{}, dErrors.New(dErrors.CodeBadRequest, "document is required")
	}
	assembly, err := s.assemblies.Get(ctx, assemblyID)
	if err != nil {
		return Resolution{}, s.notFound(err, "assembly not found")
	}

	if user, err := s.users.Get(ctx, document, assemblyID); err == nil {
		return Resolution{ExistingUser: &user}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Resolution{}, fmt.Errorf("look up assembly user: %w", err)
	}

	if assembly.Status != asmmodels.StatusStarted {
		return Resolution{}, dErrors.New(dErrors.CodeRegistrationClosed, "registration is closed for this assembly")
	}

	if assembly.Config.AccessMethod != asmmodels.AccessDocumentLookup {
		// Manual verification: no database matching, the verifier builds the
		// representation list by hand.
		return Resolution{}, nil
	}

	set, err := s.registrySet(ctx, assembly)
	if err != nil {
		return Resolution{}, err
	}

	matches := set.Matching(document)
	if len(matches) == 0 {
		return Resolution{}, dErrors.New(dErrors.CodeDocumentNotAssociated, "document is not associated with any registry")
	}

	var claimable []regmodels.Registry
	deleted := 0
	for _, r := range matches {
		switch {
		case r.IsDeleted:
			deleted++
		case r.Claimed:
			return Resolution{}, dErrors.New(dErrors.CodeAlreadyClaimed, "a matching registry is already claimed")
		default:
			claimable = append(claimable, r)
		}
	}
	if deleted == len(matches) {
		return Resolution{}, dErrors.New(dErrors.CodeBlockedVoter, "every matching registry is disabled")
	}
	return Resolution{Claimable: claimable}, nil
}

// ClaimTarget is one registry the user wants to represent. Manual targets are
// representations added by the verifier beyond the document matches.
type ClaimTarget struct {
	RegistryID    regmodels.RegistryID
	Role          models.Role
	Manual        bool
	ProxyFileName string
	ProxyFile     io.Reader
}

// ClaimRequest binds a document to a set of registries in one transaction.
type ClaimRequest struct {
	Document   string
	AssemblyID string
	Targets    []ClaimTarget
}

// Claim runs the claim transaction: every target registry flips to claimed
// and one AssemblyUser is created, or nothing happens at all. A document that
// already registered cannot claim again, whatever the targets; it logs in via
// Resolve instead. The store re-checks claimed=false at commit, so concurrent
// claims on the same registry produce one winner; losers get
// ConcurrentClaimConflict and may retry against a refreshed registry set.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (models.AssemblyUser, error) {
	assembly, err := s.assemblies.Get(ctx, req.AssemblyID)
	if err != nil {
		return models.AssemblyUser{}, s.notFound(err, "assembly not found")
	}
	if assembly.Status != asmmodels.StatusStarted {
		return models.AssemblyUser{}, dErrors.New(dErrors.CodeRegistrationClosed, "registration is closed for this assembly")
	}
	set, err := s.registrySet(ctx, assembly)
	if err != nil {
		return models.AssemblyUser{}, err
	}

	if err := s.validateTargets(assembly, set, req); err != nil {
		return models.AssemblyUser{}, err
	}

	user := models.AssemblyUser{
		Document:   req.Document,
		AssemblyID: req.AssemblyID,
		CreatedAt:  time.Now(),
	}
	for _, target := range req.Targets {
		rep := models.Representation{RegistryID: target.RegistryID, Role: target.Role}
		if target.ProxyFile != nil {
			url, err := s.files.Upload(ctx,
				path.Join("assemblies", req.AssemblyID, req.Document, target.ProxyFileName),
				target.ProxyFile)
			if err != nil {
				return models.AssemblyUser{}, fmt.Errorf("upload proxy file: %w", err)
			}
			rep.ProxyFileURL = url
		}
		user.Representations = append(user.Representations, rep)
	}
	if err := user.Validate(); err != nil {
		return models.AssemblyUser{}, err
	}

	entity, err := s.assemblyEntity(ctx, assembly)
	if err != nil {
		return models.AssemblyUser{}, err
	}

	err = s.tx.RunInTx(ctx, func(tx TxStores) error {
		// A document registers once per assembly; the check runs inside the
		// transactional boundary so the registry writes and the user write
		// stay all-or-nothing even against a racing duplicate.
		if _, err := tx.Users.Get(ctx, req.Document, req.AssemblyID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyClaimed, "document is already registered for this assembly")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("look up assembly user: %w", err)
		}
		if err := tx.Registries.CommitClaim(ctx, entity.ListID, user.RegistryIDs(), req.Document); err != nil {
			return err
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		var de *dErrors.Error
		switch {
		case errors.As(err, &de):
			return models.AssemblyUser{}, err
		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncClaimConflicts()
			s.auditor.Publish(audit.Event{
				Action:     audit.ActionClaimConflicted,
				AssemblyID: req.AssemblyID,
				Document:   req.Document,
			})
			return models.AssemblyUser{}, dErrors.Wrap(err, dErrors.CodeConcurrentClaimConflict,
				"a target registry was claimed concurrently")
		default:
			return models.AssemblyUser{}, fmt.Errorf("claim transaction: %w", err)
		}
	}

	s.metrics.IncClaimsCommitted()
	s.bus.PublishRegistries(entity.ListID)
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionClaimCommitted,
		AssemblyID: req.AssemblyID,
		Document:   req.Document,
		Detail:     fmt.Sprintf("registries=%d", len(user.Representations)),
	})
	s.auditor.Publish(audit.Event{
		Action:     audit.ActionUserRegistered,
		AssemblyID: req.AssemblyID,
		Document:   req.Document,
	})
	s.log.Info("claim committed",
		"assembly", req.AssemblyID, "document", req.Document, "registries", len(user.Representations))
	return user, nil
}

// validateTargets enforces the claim-set rules against a fresh snapshot:
// document matches are mandatory (a user cannot hide their own properties),
// manual additions need configuration permission and stay under the power
// limit, and every target must be claimable right now.
func (s *Service) validateTargets(assembly asmmodels.Assembly, set regmodels.RegistrySet, req ClaimRequest) error {
	if len(req.Targets) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one registry is required")
	}

	targeted := make(map[regmodels.RegistryID]ClaimTarget, len(req.Targets))
	manualCount := 0
	for _, target := range req.Targets {
		r, ok := set[target.RegistryID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "target registry does not exist")
		}
		if r.IsDeleted {
			return dErrors.New(dErrors.CodeBlockedVoter, "target registry is disabled")
		}
		if r.Claimed {
			return dErrors.New(dErrors.CodeAlreadyClaimed, "target registry is already claimed")
		}
		if !target.Role.IsValid() {
			return dErrors.New(dErrors.CodeBadRequest, "target role must be owner or proxy")
		}
		targeted[target.RegistryID] = target
		if target.Manual {
			manualCount++
		}
	}

	if manualCount > 0 && !assembly.Config.AllowExtraRepresentation {
		return dErrors.New(dErrors.CodeBadRequest, "additional representations are not allowed")
	}
	if limit := assembly.Config.MaxRepresentations; limit > 0 && len(req.Targets) > limit {
		return dErrors.New(dErrors.CodeBadRequest, "representation power limit exceeded")
	}

	if assembly.Config.AccessMethod == asmmodels.AccessDocumentLookup {
		for _, r := range set.Matching(req.Document) {
			if r.IsDeleted || r.Claimed {
				continue
			}
			if _, ok := targeted[r.ID]; !ok {
				return dErrors.New(dErrors.CodeBadRequest, "document-matched registries cannot be removed")
			}
		}
	}
	return nil
}

func (s *Service) registrySet(ctx context.Context, assembly asmmodels.Assembly) (regmodels.RegistrySet, error) {
	entity, err := s.assemblyEntity(ctx, assembly)
	if err != nil {
		return nil, err
	}
	set, err := s.registries.GetSet(ctx, entity.ListID)
	if err != nil {
		return nil, s.notFound(err, "registry set not found")
	}
	return set, nil
}

func (s *Service) assemblyEntity(ctx context.Context, assembly asmmodels.Assembly) (regmodels.Entity, error) {
	entity, err := s.registries.GetEntity(ctx, assembly.EntityID)
	if err != nil {
		return regmodels.Entity{}, s.notFound(err, "entity not found")
	}
	return entity, nil
}

func (s *Service) notFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	}
	return err
}
