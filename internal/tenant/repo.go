package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"hrattendance/internal/apperrors"
)

// Repository persists tenant settings in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored settings for tenantID, or defaults when none exist.
func (r *Repository) Get(ctx context.Context, tenantID string) (Settings, error) {
	var (
		attendance, payroll []byte
		updatedAt           time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT attendance, payroll, updated_at
		FROM tenant_settings WHERE tenant_id = $1
	`, tenantID).Scan(&attendance, &payroll, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(tenantID), nil
	}
	if err != nil {
		return Settings{}, apperrors.Transient(err, "load tenant settings")
	}
	s, err := decodeStored(tenantID, attendance, payroll)
	if err != nil {
		return Settings{}, apperrors.Transient(err, "load tenant settings")
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

// Save upserts the settings row.
func (r *Repository) Save(ctx context.Context, s Settings) (Settings, error) {
	attendance, err := json.Marshal(s.Attendance)
	if err != nil {
		return Settings{}, err
	}
	payroll, err := json.Marshal(s.Payroll)
	if err != nil {
		return Settings{}, err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, attendance, payroll)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE SET
			attendance = EXCLUDED.attendance,
			payroll = EXCLUDED.payroll,
			updated_at = NOW()
		RETURNING updated_at
	`, s.TenantID, attendance, payroll).Scan(&s.UpdatedAt)
	if err != nil {
		return Settings{}, apperrors.Transient(err, "save tenant settings")
	}
	return s, nil
}
