package domain

import (
	"encoding/json"
	"sort"
)

// Permission is a room-scoped capability tag. It is distinct from the
// user's global application role: holding ADMIN in one room confers
// nothing in another.
type Permission string

const (
	PermissionAdmin  Permission = "ADMIN"
	PermissionMuted  Permission = "MUTED"
	PermissionBanned Permission = "BANNED"
)

// PermissionSet is a deduplicating set of capability tags. Granting a
// tag twice is a no-op.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) Grant(p Permission) {
	s[p] = struct{}{}
}

func (s PermissionSet) Revoke(p Permission) {
	delete(s, p)
}

func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// List returns the tags in stable order for API responses and logs.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}
