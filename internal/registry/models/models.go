package models

import (
	dErrors "asamblea/pkg/domain-errors"
)

// RegistryID identifies one votable unit inside an entity's registry list.
type RegistryID string

// Entity is a horizontal property (building, condominium) owning one registry
// list. ListID keys the aggregate registry collection in the store.
type Entity struct {
	ID     string
	Name   string
	ListID string
}

// Registry is one votable unit (an apartment, a parking slot) with an
// ownership coefficient expressed in percent.
//
// Invariant: Coefficient >= 0. A Registry is mutated only through the claim
// transaction, the admin vote-block toggle, or the admin delete toggle —
// every mutation is a compare-and-set on a single field, never a whole-record
// overwrite.
type Registry struct {
	ID                 RegistryID
	ListID             string
	Unit               string
	Group              string
	OwnerName          string
	OwnerDocument      string
	Coefficient        float64
	Claimed            bool
	ClaimOwnerDocument string
	VoteBlocked        bool
	IsDeleted          bool
}

// Validate enforces the registry invariants at trust boundaries.
func (r Registry) Validate() error {
	if r.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "registry id is required")
	}
	if r.Coefficient < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "registry coefficient must be >= 0")
	}
	return nil
}

// RegistrySet is the aggregate registry collection of one entity, keyed by
// RegistryID. Snapshots of this map are what subscribers receive; callers
// never write through it.
type RegistrySet map[RegistryID]Registry

// Matching returns the registries whose owner document equals doc, excluding
// nothing else; callers apply claim/deleted filters on top.
func (s RegistrySet) Matching(doc string) []Registry {
	var out []Registry
	for _, r := range s {
		if r.OwnerDocument == doc {
			out = append(out, r)
		}
	}
	return out
}
