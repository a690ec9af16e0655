package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Service handles role business logic.
type Service struct {
	repo     rbac.RoleStore
	catalog  *rbac.Service
	resolver *rbac.Resolver
}

// NewService builds Service instance. catalog supplies name resolution for
// permission patches and must share storage with repo.
func NewService(repo rbac.RoleStore, catalog *rbac.Service) *Service {
	return &Service{repo: repo, catalog: catalog, resolver: catalog.Resolver()}
}

// ListRoles returns all roles ordered by name with permissions resolved.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.RoleView, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolver.PopulateRoles(ctx, roles)
}

// GetRole fetches one role with permissions resolved.
func (s *Service) GetRole(ctx context.Context, id int64) (rbac.RoleView, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return rbac.RoleView{}, err
	}
	return s.resolver.PopulateRole(ctx, role)
}

// CreateRole inserts an empty role with a unique name.
func (s *Service) CreateRole(ctx context.Context, name string) (rbac.RoleView, error) {
	name = strings.TrimSpace(name)
	if err := s.ensureUnique(ctx, 0, name); err != nil {
		return rbac.RoleView{}, err
	}
	role, err := s.repo.CreateRole(ctx, name, nil)
	if err != nil {
		return rbac.RoleView{}, err
	}
	return s.resolver.PopulateRole(ctx, role)
}

// RenameRole changes the role name.
func (s *Service) RenameRole(ctx context.Context, id int64, name string) (rbac.RoleView, error) {
	name = strings.TrimSpace(name)
	if err := s.ensureUnique(ctx, id, name); err != nil {
		return rbac.RoleView{}, err
	}
	role, err := s.repo.RenameRole(ctx, id, name)
	if err != nil {
		return rbac.RoleView{}, err
	}
	return s.resolver.PopulateRole(ctx, role)
}

// DeleteRole removes a role. Users holding it resolve as having no role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// PatchPermissions reconciles the role's permission set by name.
func (s *Service) PatchPermissions(ctx context.Context, id int64, patch PermissionPatch) (rbac.RoleView, error) {
	return s.catalog.ReconcileRolePermissions(ctx, id, patch.Add, patch.Remove)
}

func (s *Service) ensureUnique(ctx context.Context, id int64, name string) error {
	if name == "" {
		return shared.NewValidationError("name", "is required")
	}
	existing, err := s.repo.FindRoleByName(ctx, name)
	switch {
	case err == nil && existing.ID != id:
		return shared.ConflictError("role")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return err
	}
	return nil
}
