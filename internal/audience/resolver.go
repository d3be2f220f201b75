// Package audience turns abstract targeting specs into concrete recipient
// sets by querying the directory store.
package audience

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/hrplatform/go-notification-engine/internal/domain"
)

// Directory is the contract the resolver needs from the employee/user
// directory store.
type Directory interface {
	FindActiveUsers(ctx context.Context) ([]domain.User, error)
	FindActiveEmployeesByDepartment(ctx context.Context, departmentID string) ([]domain.Employee, error)
	FindUsersByRole(ctx context.Context, roles []string) ([]domain.User, error)
	FindUserAccountForEmployee(ctx context.Context, employeeID string) (*domain.User, error)
	FindUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

// Resolver resolves target specs against the directory at dispatch time.
// Results are never cached: directory membership changes between rule
// creation and firing.
type Resolver struct {
	dir Directory
	log zerolog.Logger
}

// NewResolver creates a resolver over the given directory
func NewResolver(dir Directory, log zerolog.Logger) *Resolver {
	return &Resolver{dir: dir, log: log.With().Str("component", "audience").Logger()}
}

// Resolve returns the de-duplicated recipient user IDs for a target spec.
// An empty result is not an error; a directory failure is.
func (r *Resolver) Resolve(ctx context.Context, spec domain.TargetSpec) ([]string, error) {
	switch t := spec.Target().(type) {
	case domain.AllTarget:
		users, err := r.dir.FindActiveUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving all users: %w", err)
		}
		return userIDs(users), nil

	case domain.DepartmentTarget:
		return r.resolveDepartment(ctx, t.DepartmentID)

	case domain.RolesTarget:
		users, err := r.dir.FindUsersByRole(ctx, t.Roles)
		if err != nil {
			return nil, fmt.Errorf("resolving users by role: %w", err)
		}
		return userIDs(users), nil

	case domain.UsersTarget:
		// The literal list, deliberately not filtered by active status:
		// callers may target inactive or pending users.
		return dedupe(t.UserIDs), nil

	default:
		return nil, fmt.Errorf("cannot resolve target spec: %v", spec.Validate())
	}
}

// resolveDepartment maps active employees of a department to their linked
// user accounts. Employees without a linked account are excluded, not errors.
func (r *Resolver) resolveDepartment(ctx context.Context, departmentID string) ([]string, error) {
	employees, err := r.dir.FindActiveEmployeesByDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("resolving department %s: %w", departmentID, err)
	}

	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		user, err := r.dir.FindUserAccountForEmployee(ctx, emp.ID.Hex())
		if err != nil {
			return nil, fmt.Errorf("resolving user account for employee %s: %w", emp.ID.Hex(), err)
		}
		if user == nil {
			r.log.Debug().Str("employee_id", emp.ID.Hex()).Msg("employee has no linked user account, skipping")
			continue
		}
		ids = append(ids, user.ID.Hex())
	}
	return dedupe(ids), nil
}

func userIDs(users []domain.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.Hex())
	}
	return dedupe(ids)
}

// dedupe removes duplicates and returns a stable, sorted slice
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
