package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// PruneScheduler queues removal of dangling permission references.
type PruneScheduler interface {
	SchedulePrune(ctx context.Context) error
}

// Service orchestrates catalog operations and set reconciliation.
type Service struct {
	store    Store
	resolver *Resolver
	logger   *slog.Logger
	pruner   PruneScheduler
}

// NewService constructs a Service backed by the provided store.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, resolver: NewResolver(store, store), logger: logger}
}

// SetPruneScheduler registers the scheduler notified after permission deletes.
func (s *Service) SetPruneScheduler(p PruneScheduler) {
	s.pruner = p
}

// Resolver exposes the resolver sharing this service's store.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// GetPermission fetches a permission by ID.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.store.GetPermission(ctx, id)
}

// CreatePermission inserts a new uniquely named permission.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, shared.NewValidationError("name", "is required")
	}
	if _, err := s.store.FindPermissionByName(ctx, name); err == nil {
		return Permission{}, shared.ConflictError("permission")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Permission{}, err
	}
	return s.store.CreatePermission(ctx, name, strings.TrimSpace(description))
}

// UpdatePermission renames or re-describes a permission.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, shared.NewValidationError("name", "is required")
	}
	existing, err := s.store.FindPermissionByName(ctx, name)
	switch {
	case err == nil && existing.ID != id:
		return Permission{}, shared.ConflictError("permission")
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return Permission{}, err
	}
	return s.store.UpdatePermission(ctx, id, name, strings.TrimSpace(description))
}

// DeletePermission removes a permission. Roles and users keep the stale id
// until the prune job runs; resolution ignores it in the meantime.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if err := s.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	if s.pruner != nil {
		if err := s.pruner.SchedulePrune(ctx); err != nil && s.logger != nil {
			s.logger.Warn("schedule prune", slog.Int64("permission_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// ReconcileRolePermissions applies add-then-remove to a role's permission set.
func (s *Service) ReconcileRolePermissions(ctx context.Context, roleID int64, add, remove []string) (RoleView, error) {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return RoleView{}, err
	}
	next, err := s.reconcile(ctx, role.PermissionIDs, add, remove)
	if err != nil {
		return RoleView{}, err
	}
	role, err = s.store.SetRolePermissions(ctx, roleID, next)
	if err != nil {
		return RoleView{}, err
	}
	return s.resolver.PopulateRole(ctx, role)
}

// ReconcileUserOverrides applies add-then-remove to a user's override set.
func (s *Service) ReconcileUserOverrides(ctx context.Context, userID int64, add, remove []string) (UserView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return UserView{}, err
	}
	next, err := s.reconcile(ctx, user.OverrideIDs, add, remove)
	if err != nil {
		return UserView{}, err
	}
	user, err = s.store.SetUserOverrides(ctx, userID, next)
	if err != nil {
		return UserView{}, err
	}
	return s.resolver.PopulateUser(ctx, user)
}

// reconcile resolves names against the catalog and computes the new set.
// Unknown names are dropped rather than failing the batch.
func (s *Service) reconcile(ctx context.Context, current []int64, add, remove []string) ([]int64, error) {
	add = shared.NormalizeNames(add)
	remove = shared.NormalizeNames(remove)
	toAdd, err := s.lookup(ctx, add)
	if err != nil {
		return nil, err
	}
	toRemove, err := s.lookup(ctx, remove)
	if err != nil {
		return nil, err
	}
	s.logDropped(add, toAdd)
	s.logDropped(remove, toRemove)
	return Reconcile(current, permissionIDs(toAdd), permissionIDs(toRemove)), nil
}

func (s *Service) lookup(ctx context.Context, names []string) ([]Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	perms, err := s.store.FindPermissionsByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("rbac: resolve permission names: %w", err)
	}
	return perms, nil
}

func (s *Service) logDropped(requested []string, found []Permission) {
	if s.logger == nil || len(requested) == len(found) {
		return
	}
	known := NewEffectiveSet(permissionNames(found)...)
	var dropped []string
	for _, n := range requested {
		if !known.Has(n) {
			dropped = append(dropped, n)
		}
	}
	s.logger.Debug("rbac: ignoring unknown permissions", slog.Any("names", dropped))
}

// EnsureCatalog creates any missing permissions and returns all of them in
// the order given.
func (s *Service) EnsureCatalog(ctx context.Context, names []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(names))
	for _, name := range shared.NormalizeNames(names) {
		p, err := s.store.FindPermissionByName(ctx, name)
		if errors.Is(err, shared.ErrNotFound) {
			p, err = s.store.CreatePermission(ctx, name, "")
		}
		if err != nil {
			return nil, fmt.Errorf("rbac: ensure permission %s: %w", name, err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// EnsureRole creates the role if missing and sets its permissions.
func (s *Service) EnsureRole(ctx context.Context, name string, permissionIDs []int64) (Role, error) {
	role, err := s.store.FindRoleByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		return s.store.CreateRole(ctx, name, Reconcile(nil, permissionIDs, nil))
	}
	if err != nil {
		return Role{}, err
	}
	return s.store.SetRolePermissions(ctx, role.ID, Reconcile(nil, permissionIDs, nil))
}

// PruneReport summarises a prune run.
type PruneReport struct {
	Roles int
	Users int
}

// PruneDangling drops references to permissions that no longer exist.
// References are read before the catalog: ids are never reused, so an id
// seen on a record and missing from the later catalog read was deleted.
// Only those ids are stripped, in place, so grants made meanwhile survive.
func (s *Service) PruneDangling(ctx context.Context) (PruneReport, error) {
	var report PruneReport
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return report, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return report, err
	}
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return report, err
	}
	live := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		live[p.ID] = struct{}{}
	}
	var dead []int64
	collect := func(ids []int64) {
		for _, id := range ids {
			if _, ok := live[id]; !ok {
				dead = append(dead, id)
			}
		}
	}
	for _, role := range roles {
		collect(role.PermissionIDs)
	}
	for _, user := range users {
		collect(user.OverrideIDs)
	}
	if len(dead) == 0 {
		return report, nil
	}
	dead = Reconcile(dead, nil, nil)

	if report.Roles, err = s.store.RemoveRolePermissionRefs(ctx, dead); err != nil {
		return report, err
	}
	if report.Users, err = s.store.RemoveUserOverrideRefs(ctx, dead); err != nil {
		return report, err
	}
	return report, nil
}
