package rbac

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Resolver turns shallow records into resolved views. References are fetched
// in batches by id and assembled here rather than joined by the store.
type Resolver struct {
	permissions PermissionStore
	roles       RoleStore
}

// NewResolver constructs a Resolver.
func NewResolver(permissions PermissionStore, roles RoleStore) *Resolver {
	return &Resolver{permissions: permissions, roles: roles}
}

// Resolution is the resolved authorization state of one user.
type Resolution struct {
	Role      *RoleView
	Overrides []Permission
	Effective EffectiveSet
}

// EffectivePermissions returns names(rolePerms) ∪ names(overrides).
func EffectivePermissions(rolePerms, overrides []Permission) EffectiveSet {
	set := make(EffectiveSet, len(rolePerms)+len(overrides))
	for _, p := range rolePerms {
		set[p.Name] = struct{}{}
	}
	for _, p := range overrides {
		set[p.Name] = struct{}{}
	}
	return set
}

// Resolve loads the user's role and overrides and computes the effective set.
// A role or permission that no longer exists is treated as absent.
func (r *Resolver) Resolve(ctx context.Context, user User) (Resolution, error) {
	role, err := r.lookupRole(ctx, user.RoleID)
	if err != nil {
		return Resolution{}, err
	}

	var rolePerms, overrides []Permission
	g, gctx := errgroup.WithContext(ctx)
	if role != nil {
		g.Go(func() error {
			perms, err := r.byIDs(gctx, role.PermissionIDs)
			rolePerms = perms
			return err
		})
	}
	g.Go(func() error {
		perms, err := r.byIDs(gctx, user.OverrideIDs)
		overrides = perms
		return err
	})
	if err := g.Wait(); err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Overrides: overrides,
		Effective: EffectivePermissions(rolePerms, overrides),
	}
	if role != nil {
		view := roleView(*role, rolePerms)
		res.Role = &view
	}
	return res, nil
}

// Principal resolves the user and builds the request principal.
func (r *Resolver) Principal(ctx context.Context, user User) (*Principal, error) {
	res, err := r.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	p := &Principal{
		ID:                   user.ID,
		Name:                 user.Name,
		Email:                user.Email,
		Overrides:            permissionNames(res.Overrides),
		EffectivePermissions: res.Effective,
	}
	if res.Role != nil {
		p.Role = &RoleSummary{
			ID:          res.Role.ID,
			Name:        res.Role.Name,
			Permissions: permissionNames(res.Role.Permissions),
		}
	}
	return p, nil
}

// PopulateUser returns the user with role and overrides resolved.
func (r *Resolver) PopulateUser(ctx context.Context, user User) (UserView, error) {
	res, err := r.Resolve(ctx, user)
	if err != nil {
		return UserView{}, err
	}
	return userView(user, res.Role, res.Overrides), nil
}

// PopulateRole returns the role with its permissions resolved.
func (r *Resolver) PopulateRole(ctx context.Context, role Role) (RoleView, error) {
	perms, err := r.byIDs(ctx, role.PermissionIDs)
	if err != nil {
		return RoleView{}, err
	}
	return roleView(role, perms), nil
}

// PopulateRoles resolves many roles with a single permission lookup.
func (r *Resolver) PopulateRoles(ctx context.Context, roles []Role) ([]RoleView, error) {
	var ids []int64
	for _, role := range roles {
		ids = append(ids, role.PermissionIDs...)
	}
	index, err := r.permissionIndex(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, roleView(role, pick(index, role.PermissionIDs)))
	}
	return views, nil
}

// PopulateUsers resolves many users with one role listing and one permission lookup.
func (r *Resolver) PopulateUsers(ctx context.Context, users []User) ([]UserView, error) {
	roles, err := r.roles.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	roleIndex := make(map[int64]Role, len(roles))
	var ids []int64
	for _, role := range roles {
		roleIndex[role.ID] = role
		ids = append(ids, role.PermissionIDs...)
	}
	for _, u := range users {
		ids = append(ids, u.OverrideIDs...)
	}
	index, err := r.permissionIndex(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		var rv *RoleView
		if u.RoleID != nil {
			if role, ok := roleIndex[*u.RoleID]; ok {
				view := roleView(role, pick(index, role.PermissionIDs))
				rv = &view
			}
		}
		views = append(views, userView(u, rv, pick(index, u.OverrideIDs)))
	}
	return views, nil
}

func (r *Resolver) lookupRole(ctx context.Context, id *int64) (*Role, error) {
	if id == nil {
		return nil, nil
	}
	role, err := r.roles.GetRole(ctx, *id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *Resolver) byIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return []Permission{}, nil
	}
	perms, err := r.permissions.FindPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortByName(perms)
	return perms, nil
}

func (r *Resolver) permissionIndex(ctx context.Context, ids []int64) (map[int64]Permission, error) {
	perms, err := r.byIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]Permission, len(perms))
	for _, p := range perms {
		index[p.ID] = p
	}
	return index, nil
}

func pick(index map[int64]Permission, ids []int64) []Permission {
	out := make([]Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := index[id]; ok {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out
}

func sortByName(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
}

func roleView(role Role, perms []Permission) RoleView {
	return RoleView{
		ID:          role.ID,
		Name:        role.Name,
		Permissions: perms,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func userView(user User, role *RoleView, overrides []Permission) UserView {
	if overrides == nil {
		overrides = []Permission{}
	}
	return UserView{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      role,
		Overrides: overrides,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
