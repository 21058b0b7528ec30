package models

import (
	"time"

	regmodels "asamblea/internal/registry/models"
	dErrors "asamblea/pkg/domain-errors"
)

// Status is the assembly lifecycle state.
//
// Usage: construct via ParseStatus at trust boundaries; direct casting
// bypasses validation.
type Status string

const (
	StatusCreate              Status = "create"
	StatusStarted             Status = "started"
	StatusRegistriesFinalized Status = "registries_finalized"
	StatusFinished            Status = "finished"
)

var validStatuses = map[Status]bool{
	StatusCreate:              true,
	StatusStarted:             true,
	StatusRegistriesFinalized: true,
	StatusFinished:            true,
}

func (s Status) IsValid() bool { return validStatuses[s] }

func (s Status) String() string { return string(s) }

// ParseStatus constructs a Status from external input.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid assembly status")
	}
	return s, nil
}

// transitions is the single source of truth for legal lifecycle moves.
// finished is terminal except for the explicit restart back to create.
var transitions = map[Status][]Status{
	StatusCreate:              {StatusStarted, StatusFinished},
	StatusStarted:             {StatusRegistriesFinalized, StatusFinished},
	StatusRegistriesFinalized: {StatusStarted, StatusFinished},
	StatusFinished:            {StatusCreate},
}

// CanTransition reports whether from→to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// VotingMode optionally forces one submission mode for the whole assembly.
// Empty means each user picks per question.
type VotingMode string

const (
	VotingModeIndividual VotingMode = "individual"
	VotingModeBlock      VotingMode = "block"
)

// AccessMethod controls how registrations are matched to registries.
type AccessMethod string

const (
	// AccessDocumentLookup matches the presented document against registry
	// owner documents; no match is a registration error.
	AccessDocumentLookup AccessMethod = "document_lookup"
	// AccessManual lets the verifier add representations by hand.
	AccessManual AccessMethod = "manual"
)

// Config carries the per-assembly registration flags.
type Config struct {
	AccessMethod AccessMethod `json:"access_method"`
	// AllowExtraRepresentation permits manually adding registries that were
	// not matched by document (proxy representations).
	AllowExtraRepresentation bool `json:"allow_extra_representation"`
	// MaxRepresentations caps registries bound to one user; 0 is unlimited.
	MaxRepresentations int `json:"max_representations"`
}

// Assembly is one meeting of an entity's owners.
type Assembly struct {
	ID            string
	EntityID      string
	Status        Status
	ScheduledAt   time.Time
	VotingMode    VotingMode
	BlockedVoters map[regmodels.RegistryID]struct{}
	Config        Config
}

// VoterBlocked reports whether a registry is barred from voting in this
// assembly (on top of the registry's own VoteBlocked flag).
func (a Assembly) VoterBlocked(id regmodels.RegistryID) bool {
	_, ok := a.BlockedVoters[id]
	return ok
}

// DueToStart reports whether the passive create→started transition applies.
func (a Assembly) DueToStart(now time.Time) bool {
	return a.Status == StatusCreate && !a.ScheduledAt.IsZero() && !now.Before(a.ScheduledAt)
}
