package org

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/logging"
)

// Store is the full persistence port of the org service.
type Store interface {
	ScopeReader
	InsertNode(ctx context.Context, n Node) (Node, error)
	InsertEmployee(ctx context.Context, e Employee) (Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	ListEmployeesOwnedBy(ctx context.Context, ownerIDs []string) ([]Employee, error)
}

// Service manages hierarchy membership and employee lifecycle, always through
// the resolver.
type Service struct {
	store    Store
	resolver *Resolver
}

// NewService creates a service.
func NewService(store Store, resolver *Resolver) *Service {
	return &Service{store: store, resolver: resolver}
}

// Resolver exposes the scope resolver used by the service.
func (s *Service) Resolver() *Resolver { return s.resolver }

// CreateSubAdmin adds an hr/manager node under the calling main admin. Only
// main admins own sub-admins, which keeps the hierarchy two levels deep.
func (s *Service) CreateSubAdmin(ctx context.Context, ident Identity, in NewSubAdmin) (Node, error) {
	if !ident.IsMainAdmin {
		return Node{}, apperrors.New(apperrors.ErrForbidden, "only a main admin can create sub-admins")
	}
	if in.Role != RoleHR && in.Role != RoleManager {
		return Node{}, fmt.Errorf("%w: role must be hr or manager", apperrors.ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return Node{}, fmt.Errorf("%w: name and email required", apperrors.ErrValidation)
	}
	node, err := s.store.InsertNode(ctx, Node{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      in.Role,
		CreatedBy: ident.ID,
	})
	if err != nil {
		return Node{}, err
	}
	logging.FromContext(ctx).Info("sub-admin created",
		slog.String("node_id", node.ID),
		slog.String("role", string(node.Role)),
		slog.String("created_by", ident.ID))
	return node, nil
}

// CreateEmployee adds an employee owned by the caller, or by another node in
// the caller's subject scope when OwnerID is set.
func (s *Service) CreateEmployee(ctx context.Context, ident Identity, in NewEmployee) (Employee, error) {
	if !ident.IsOrgNode() {
		return Employee{}, apperrors.New(apperrors.ErrForbidden, "employees cannot create employees")
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return Employee{}, fmt.Errorf("%w: name and email required", apperrors.ErrValidation)
	}
	if in.Salary.IsNegative() {
		return Employee{}, fmt.Errorf("%w: salary must not be negative", apperrors.ErrValidation)
	}
	owner := ident.ID
	if in.OwnerID != "" && in.OwnerID != ident.ID {
		scope, err := s.resolver.SubjectScope(ctx, ident)
		if err != nil {
			return Employee{}, err
		}
		if !scope.Contains(in.OwnerID) {
			return Employee{}, apperrors.New(apperrors.ErrForbidden, "owner is outside your organization scope")
		}
		owner = in.OwnerID
	}
	emp, err := s.store.InsertEmployee(ctx, Employee{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Salary:    in.Salary,
		CreatedBy: owner,
	})
	if err != nil {
		return Employee{}, err
	}
	logging.FromContext(ctx).Info("employee created",
		slog.String("employee_id", emp.ID),
		slog.String("owner_id", owner))
	return emp, nil
}

// DeleteEmployee removes an employee the caller's scope contains.
func (s *Service) DeleteEmployee(ctx context.Context, ident Identity, employeeID string) error {
	if !ident.IsOrgNode() {
		return apperrors.New(apperrors.ErrForbidden, "employees cannot delete employees")
	}
	if _, err := s.resolver.AuthorizeEmployee(ctx, ident, employeeID); err != nil {
		return err
	}
	if err := s.store.DeleteEmployee(ctx, employeeID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("employee deleted",
		slog.String("employee_id", employeeID),
		slog.String("deleted_by", ident.ID))
	return nil
}

// ListEmployees returns every employee in the caller's scope.
func (s *Service) ListEmployees(ctx context.Context, ident Identity) ([]Employee, error) {
	if !ident.IsOrgNode() {
		emp, err := s.store.FindEmployee(ctx, ident.ID)
		if err != nil {
			return nil, err
		}
		return []Employee{*emp}, nil
	}
	scope, err := s.resolver.SubjectScope(ctx, ident)
	if err != nil {
		return nil, err
	}
	emps, err := s.store.ListEmployeesOwnedBy(ctx, scope.IDs())
	if err != nil {
		return nil, err
	}
	if emps == nil {
		return []Employee{}, nil
	}
	return emps, nil
}
