package auth

import (
	"errors"

	"github.com/samber/lo"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
)

// Capability names, namespaced by app label.
const (
	PermMarkReturned = "catalog.can_mark_returned"
	PermEdit         = "catalog.can_edit"
)

const (
	RoleMember    = "MEMBER"
	RoleLibrarian = "LIBRARIAN"
)

// PermissionSet is the set of capabilities granted to a caller.
type PermissionSet map[string]struct{}

func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// HasAll reports whether every required permission is granted.
// An empty requirement is always satisfied.
func (s PermissionSet) HasAll(required ...string) bool {
	return lo.EveryBy(required, s.Has)
}

// Missing returns the required permissions that are not granted, in order.
func (s PermissionSet) Missing(required ...string) []string {
	return lo.Reject(required, func(p string, _ int) bool { return s.Has(p) })
}

// Caller is the authenticated principal of a request.
// The zero value is an anonymous caller.
type Caller struct {
	UserID      string
	Role        string
	Permissions PermissionSet
}

func (c Caller) IsAuthenticated() bool {
	return c.UserID != ""
}

// Require returns ErrUnauthenticated for anonymous callers and
// ErrPermissionDenied when any of the required permissions is missing.
func (c Caller) Require(required ...string) error {
	if !c.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !c.Permissions.HasAll(required...) {
		return ErrPermissionDenied
	}
	return nil
}
