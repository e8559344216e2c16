package model

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated user acting on a request, as supplied by the
// external auth collaborator.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.ID == ownerID
}

// SystemActor is used by out-of-band tooling such as bill recovery.
func SystemActor() Actor {
	return Actor{ID: uuid.Nil, Name: "system", Role: RoleAdmin}
}
