package org

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"hrattendance/internal/apperrors"
)

// Repository persists org nodes and employees in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ChildNodeIDs returns nodes created by parentID.
func (r *Repository) ChildNodeIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM org_nodes WHERE created_by = $1`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EmployeeIDsOwnedBy returns distinct employees created by any of ownerIDs.
func (r *Repository) EmployeeIDsOwnedBy(ctx context.Context, ownerIDs []string) ([]string, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT id FROM employees WHERE created_by = ANY($1)
	`, ownerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindNode returns a node by id.
func (r *Repository) FindNode(ctx context.Context, id string) (*Node, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, is_main_admin, COALESCE(created_by, '')
		FROM org_nodes WHERE id = $1
	`, id)
	var n Node
	if err := row.Scan(&n.ID, &n.Name, &n.Email, &n.Role, &n.IsMainAdmin, &n.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrNotFound, "organization node not found")
		}
		return nil, apperrors.Transient(err, "load organization node")
	}
	return &n, nil
}

// InsertNode writes a new node.
func (r *Repository) InsertNode(ctx context.Context, n Node) (Node, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	var createdBy any
	if n.CreatedBy != "" {
		createdBy = n.CreatedBy
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO org_nodes (id, name, email, role, is_main_admin, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.Name, n.Email, n.Role, n.IsMainAdmin, createdBy)
	if err != nil {
		return Node{}, mapWriteErr(err, "organization node")
	}
	return n, nil
}

const employeeColumns = `id, name, email, salary, created_by, is_verified, is_approved, created_at`

func scanEmployee(scan func(dest ...any) error) (*Employee, error) {
	var e Employee
	if err := scan(&e.ID, &e.Name, &e.Email, &e.Salary, &e.CreatedBy, &e.IsVerified, &e.IsApproved, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindEmployee returns an employee by id.
func (r *Repository) FindEmployee(ctx context.Context, id string) (*Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrNotFound, "employee not found")
		}
		return nil, apperrors.Transient(err, "load employee")
	}
	return e, nil
}

// ListEmployeesOwnedBy returns employees created by any of ownerIDs.
func (r *Repository) ListEmployeesOwnedBy(ctx context.Context, ownerIDs []string) ([]Employee, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE created_by = ANY($1)
		ORDER BY name, id
	`, ownerIDs)
	if err != nil {
		return nil, apperrors.Transient(err, "list employees")
	}
	defer rows.Close()
	var res []Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, apperrors.Transient(err, "list employees")
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Transient(err, "list employees")
	}
	return res, nil
}

// InsertEmployee writes a new employee.
func (r *Repository) InsertEmployee(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO employees (id, name, email, salary, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.Name, e.Email, e.Salary, e.CreatedBy).Scan(&e.CreatedAt)
	if err != nil {
		return Employee{}, mapWriteErr(err, "employee")
	}
	return e, nil
}

// DeleteEmployee removes an employee.
func (r *Repository) DeleteEmployee(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return apperrors.Transient(err, "delete employee")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.New(apperrors.ErrNotFound, "employee not found")
	}
	return nil
}

func mapWriteErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.Wrap(apperrors.ErrConflict, err, what+" already exists")
	}
	return apperrors.Transient(err, "save "+what)
}
