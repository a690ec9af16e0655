package users

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// PasswordHasher produces the stored password digest.
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// Service handles user business logic.
type Service struct {
	repo     rbac.UserStore
	roles    rbac.RoleStore
	catalog  *rbac.Service
	resolver *rbac.Resolver
	hasher   PasswordHasher
}

// NewService builds Service instance.
func NewService(repo rbac.UserStore, roles rbac.RoleStore, catalog *rbac.Service, hasher PasswordHasher) *Service {
	return &Service{repo: repo, roles: roles, catalog: catalog, resolver: catalog.Resolver(), hasher: hasher}
}

// ListUsers returns all users newest first with role and overrides resolved.
func (s *Service) ListUsers(ctx context.Context) ([]rbac.UserView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolver.PopulateUsers(ctx, users)
}

// GetUser fetches one user with role and overrides resolved.
func (s *Service) GetUser(ctx context.Context, id int64) (rbac.UserView, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return rbac.UserView{}, err
	}
	return s.resolver.PopulateUser(ctx, user)
}

// CreateUser inserts a user with an optional role and no overrides.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (rbac.UserView, error) {
	email := shared.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, 0, email); err != nil {
		return rbac.UserView{}, err
	}
	if err := s.ensureRole(ctx, in.RoleID); err != nil {
		return rbac.UserView{}, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return rbac.UserView{}, err
	}
	user, err := s.repo.CreateUser(ctx, rbac.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: digest,
		RoleID:       in.RoleID,
	})
	if err != nil {
		return rbac.UserView{}, err
	}
	return s.resolver.PopulateUser(ctx, user)
}

// UpdateUser applies a partial update.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateInput) (rbac.UserView, error) {
	var update rbac.UserUpdate
	update.Name = in.Name
	if in.Email != nil {
		email := shared.NormalizeEmail(*in.Email)
		if err := s.ensureEmailFree(ctx, id, email); err != nil {
			return rbac.UserView{}, err
		}
		update.Email = &email
	}
	if in.Role.Set {
		if in.Role.Invalid {
			return rbac.UserView{}, shared.NewValidationError("roleId", "must be a role id")
		}
		if err := s.ensureRole(ctx, in.Role.ID); err != nil {
			return rbac.UserView{}, err
		}
		update.SetRole, update.RoleID = true, in.Role.ID
	}
	if in.Password != nil {
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return rbac.UserView{}, err
		}
		update.PasswordHash = &digest
	}
	user, err := s.repo.UpdateUser(ctx, id, update)
	if err != nil {
		return rbac.UserView{}, err
	}
	return s.resolver.PopulateUser(ctx, user)
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// AssignRole sets or clears the user's role. An unknown role is a
// validation error on roleId, checked before the user lookup.
func (s *Service) AssignRole(ctx context.Context, id int64, roleID *int64) (rbac.UserView, error) {
	if err := s.ensureRole(ctx, roleID); err != nil {
		return rbac.UserView{}, err
	}
	user, err := s.repo.UpdateUser(ctx, id, rbac.UserUpdate{SetRole: true, RoleID: roleID})
	if err != nil {
		return rbac.UserView{}, err
	}
	return s.resolver.PopulateUser(ctx, user)
}

// PatchOverrides reconciles the user's override set by name.
func (s *Service) PatchOverrides(ctx context.Context, id int64, patch OverridePatch) (rbac.UserView, error) {
	return s.catalog.ReconcileUserOverrides(ctx, id, patch.Add, patch.Remove)
}

func (s *Service) ensureEmailFree(ctx context.Context, id int64, email string) error {
	existing, err := s.repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != id:
		return shared.ConflictError("email")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return err
	}
	return nil
}

func (s *Service) ensureRole(ctx context.Context, roleID *int64) error {
	if roleID == nil {
		return nil
	}
	_, err := s.roles.GetRole(ctx, *roleID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewValidationError("roleId", "role not found")
	}
	return err
}
