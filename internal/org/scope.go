package org

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/logging"
)

// ScopeReader is the read port the resolver needs.
type ScopeReader interface {
	// ChildNodeIDs returns ids of nodes whose createdBy equals parentID.
	ChildNodeIDs(ctx context.Context, parentID string) ([]string, error)
	// EmployeeIDsOwnedBy returns distinct ids of employees whose createdBy is
	// in ownerIDs.
	EmployeeIDsOwnedBy(ctx context.Context, ownerIDs []string) ([]string, error)
	// FindNode returns the node with id.
	FindNode(ctx context.Context, id string) (*Node, error)
	// FindEmployee returns the employee with id.
	FindEmployee(ctx context.Context, id string) (*Employee, error)
}

// Set is an unordered id set.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains reports membership.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members sorted.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolver computes which hierarchy nodes and employees a caller may act on.
// It never writes.
type Resolver struct {
	reader ScopeReader
}

// NewResolver creates a resolver over reader.
func NewResolver(reader ScopeReader) *Resolver {
	return &Resolver{reader: reader}
}

// SubjectScope returns the node ids visible to ident. The hierarchy is two
// levels deep, so one child lookup from the root is complete.
func (r *Resolver) SubjectScope(ctx context.Context, ident Identity) (Set, error) {
	var root string
	switch {
	case ident.IsMainAdmin:
		root = ident.ID
	case ident.IsSubAdmin():
		root = ident.CreatedBy
	default:
		return NewSet(ident.ID), nil
	}
	if root == "" {
		return NewSet(ident.ID), nil
	}

	children, err := r.reader.ChildNodeIDs(ctx, root)
	if err != nil {
		return nil, apperrors.Transient(err, "resolve subject scope")
	}
	scope := NewSet(children...)
	scope[root] = struct{}{}
	return scope, nil
}

// EmployeeScope returns the employee ids owned by any node in ident's subject
// scope.
func (r *Resolver) EmployeeScope(ctx context.Context, ident Identity) (Set, error) {
	subjects, err := r.SubjectScope(ctx, ident)
	if err != nil {
		return nil, err
	}
	ids, err := r.reader.EmployeeIDsOwnedBy(ctx, subjects.IDs())
	if err != nil {
		return nil, apperrors.Transient(err, "resolve employee scope")
	}
	logging.FromContext(ctx).Debug("employee scope resolved",
		slog.String("caller_id", ident.ID),
		slog.Int("nodes", len(subjects)),
		slog.Int("employees", len(ids)))
	return NewSet(ids...), nil
}

// AuthorizeEmployee returns the employee when it exists and lies in ident's
// scope. An employee may always see itself.
func (r *Resolver) AuthorizeEmployee(ctx context.Context, ident Identity, employeeID string) (*Employee, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee id required", apperrors.ErrValidation)
	}
	emp, err := r.reader.FindEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if ident.Role == RoleEmployee && ident.ID == employeeID {
		return emp, nil
	}
	subjects, err := r.SubjectScope(ctx, ident)
	if err != nil {
		return nil, err
	}
	if !subjects.Contains(emp.CreatedBy) {
		logging.FromContext(ctx).Warn("employee outside caller scope",
			slog.String("caller_id", ident.ID),
			slog.String("employee_id", employeeID))
		return nil, apperrors.New(apperrors.ErrForbidden, "employee is outside your organization scope")
	}
	return emp, nil
}

// TenantOf returns the main-admin id that owns ident.
func (r *Resolver) TenantOf(ctx context.Context, ident Identity) (string, error) {
	switch {
	case ident.IsMainAdmin:
		return ident.ID, nil
	case ident.IsSubAdmin():
		if ident.CreatedBy == "" {
			return "", apperrors.New(apperrors.ErrValidation, "sub-admin identity has no owner")
		}
		return ident.CreatedBy, nil
	}
	owner := ident.CreatedBy
	if owner == "" {
		return "", apperrors.New(apperrors.ErrValidation, "identity has no owning organization")
	}
	node, err := r.reader.FindNode(ctx, owner)
	if err != nil {
		return "", err
	}
	return node.Root(), nil
}
