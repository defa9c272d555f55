package payroll

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"hrattendance/internal/apperrors"
)

// Repository persists payroll slips in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const slipColumns = `id, tenant_id, employee_id, month, year, base_salary, total_days, absent_days,
	late_days, daily_salary, deduction, net_salary, remarks, generated_by, generated_at`

func scanSlip(scan func(dest ...any) error) (Slip, error) {
	var s Slip
	var month int
	err := scan(&s.ID, &s.TenantID, &s.EmployeeID, &month, &s.Year, &s.BaseSalary, &s.TotalDays,
		&s.AbsentDays, &s.LateDays, &s.DailySalary, &s.Deduction, &s.NetSalary, &s.Remarks,
		&s.GeneratedBy, &s.GeneratedAt)
	s.Month = time.Month(month)
	return s, err
}

// SaveSlip upserts the slip for (employee, month, year).
func (r *Repository) SaveSlip(ctx context.Context, s Slip) (Slip, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO payroll_slips (id, tenant_id, employee_id, month, year, base_salary, total_days,
			absent_days, late_days, daily_salary, deduction, net_salary, remarks, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (employee_id, month, year) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			base_salary = EXCLUDED.base_salary,
			total_days = EXCLUDED.total_days,
			absent_days = EXCLUDED.absent_days,
			late_days = EXCLUDED.late_days,
			daily_salary = EXCLUDED.daily_salary,
			deduction = EXCLUDED.deduction,
			net_salary = EXCLUDED.net_salary,
			remarks = EXCLUDED.remarks,
			generated_by = EXCLUDED.generated_by,
			generated_at = NOW()
		RETURNING `+slipColumns,
		s.ID, s.TenantID, s.EmployeeID, int(s.Month), s.Year, s.BaseSalary, s.TotalDays,
		s.AbsentDays, s.LateDays, s.DailySalary.Round(4), s.Deduction, s.NetSalary, s.Remarks, s.GeneratedBy)
	saved, err := scanSlip(row.Scan)
	if err != nil {
		return Slip{}, apperrors.Transient(err, "save payroll slip")
	}
	return saved, nil
}

// FindSlip returns the slip or nil when none exists.
func (r *Repository) FindSlip(ctx context.Context, employeeID string, month time.Month, year int) (*Slip, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+slipColumns+` FROM payroll_slips
		WHERE employee_id = $1 AND month = $2 AND year = $3
	`, employeeID, int(month), year)
	s, err := scanSlip(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Transient(err, "load payroll slip")
	}
	return &s, nil
}
