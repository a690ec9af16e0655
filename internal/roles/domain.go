package roles

import "strings"

// PermissionPatch names permissions to add to and remove from a role.
// Removal wins when a name appears in both lists.
type PermissionPatch struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type rolePayload struct {
	Name string `json:"name" validate:"required,min=2"`
}

func (p *rolePayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
}
