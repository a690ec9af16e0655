package rbac

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Permission represents an atomic capability such as create_user.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Role is a named bundle of permission references.
type Role struct {
	ID            int64
	Name          string
	PermissionIDs []int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User is an identity with an optional role and additive permission overrides.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	RoleID       *int64
	OverrideIDs  []int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries a partial update. Nil fields are left untouched; when
// SetRole is true RoleID replaces the current role, nil clearing it.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	SetRole      bool
	RoleID       *int64
}

// RoleView is a role with its permission references resolved.
type RoleView struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// UserView is a user with role and overrides resolved.
type UserView struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      *RoleView    `json:"role"`
	Overrides []Permission `json:"overrides"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// EffectiveSet is the set of permission names an identity holds.
type EffectiveSet map[string]struct{}

// NewEffectiveSet builds a set from the given names.
func NewEffectiveSet(names ...string) EffectiveSet {
	set := make(EffectiveSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s EffectiveSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the members sorted for stable output.
func (s EffectiveSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the set as a sorted array.
func (s EffectiveSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON reads the sorted name list written by MarshalJSON.
func (s *EffectiveSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewEffectiveSet(names...)
	return nil
}

// RoleSummary is the role portion of a Principal.
type RoleSummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Principal describes the authenticated actor of one request.
type Principal struct {
	ID                   int64        `json:"id"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Role                 *RoleSummary `json:"role"`
	Overrides            []string     `json:"overrides"`
	EffectivePermissions EffectiveSet `json:"effectivePermissions"`
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
