package models

import (
	"time"

	regmodels "asamblea/internal/registry/models"
	dErrors "asamblea/pkg/domain-errors"
)

// Role says in which capacity a user represents a registry.
type Role string

const (
	RoleOwner Role = "owner"
	RoleProxy Role = "proxy"
)

func (r Role) IsValid() bool { return r == RoleOwner || r == RoleProxy }

// Representation binds one registry to the user, optionally backed by an
// uploaded proxy-authorization file.
type Representation struct {
	RegistryID   regmodels.RegistryID `json:"registry_id"`
	Role         Role                 `json:"role"`
	ProxyFileURL string               `json:"proxy_file_url,omitempty"`
}

// AssemblyUser is one registered attendee. The identity key is
// (Document, AssemblyID): created once, immutable, destroyed only on
// assembly restart.
type AssemblyUser struct {
	Document        string
	AssemblyID      string
	Representations []Representation
	CreatedAt       time.Time
}

// RegistryIDs lists the registries this user represents.
func (u AssemblyUser) RegistryIDs() []regmodels.RegistryID {
	out := make([]regmodels.RegistryID, 0, len(u.Representations))
	for _, rep := range u.Representations {
		out = append(out, rep.RegistryID)
	}
	return out
}

// Validate enforces the identity-key and representation invariants.
func (u AssemblyUser) Validate() error {
	if u.Document == "" {
		return dErrors.New(dErrors.CodeBadRequest, "document is required")
	}
	if u.AssemblyID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "assembly id is required")
	}
	if len(u.Representations) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "at least one representation is required")
	}
	seen := make(map[regmodels.RegistryID]bool, len(u.Representations))
	for _, rep := range u.Representations {
		if rep.RegistryID == "" {
			return dErrors.New(dErrors.CodeBadRequest, "representation registry id is required")
		}
		if !rep.Role.IsValid() {
			return dErrors.New(dErrors.CodeBadRequest, "representation role must be owner or proxy")
		}
		if seen[rep.RegistryID] {
			return dErrors.New(dErrors.CodeBadRequest, "duplicate registry in representations")
		}
		seen[rep.RegistryID] = true
	}
	return nil
}
