package users

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RoleRef is an optional role reference in a request body. A JSON null or an
// empty string clears the role; a positive integer, quoted or not, selects
// one. Set reports whether the key was present at all.
type RoleRef struct {
	Set     bool
	ID      *int64
	Invalid bool
}

// UnmarshalJSON accepts null, "", "12" and 12.
func (r *RoleRef) UnmarshalJSON(data []byte) error {
	r.Set, r.ID, r.Invalid = true, nil, false
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		r.Invalid = true
		return nil
	}
	r.ID = &id
	return nil
}

// CreateInput carries the fields of a new user.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	RoleID   *int64
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     RoleRef
}

// OverridePatch names permissions to add to and remove from a user's overrides.
type OverridePatch struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type createPayload struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	RoleID   RoleRef `json:"roleId"`
}

func (p *createPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
}

type updatePayload struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	RoleID   RoleRef `json:"roleId"`
}

func (p *updatePayload) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.Name)
	trim(p.Email)
}

type assignRolePayload struct {
	RoleID RoleRef `json:"roleId"`
}
