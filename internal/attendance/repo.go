package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"hrattendance/internal/apperrors"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, subject_id, subject_kind, tenant_id, work_date, check_in, check_out,
	COALESCE(login_time, ''), COALESCE(logout_time, ''), total_hours, status, remark,
	auto_closed, created_at, updated_at`

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	err := scan(&rec.ID, &rec.SubjectID, &rec.SubjectKind, &rec.TenantID, &rec.WorkDate,
		&rec.CheckIn, &rec.CheckOut, &rec.LoginTime, &rec.LogoutTime, &rec.TotalHours,
		&rec.Status, &rec.Remark, &rec.AutoClosed, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func dateArg(t time.Time) string { return t.Format("2006-01-02") }

// StartDay implements Store.
func (r *Repository) StartDay(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, subject_id, subject_kind, tenant_id, work_date, check_in, login_time, status, remark)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
		ON CONFLICT (subject_id, subject_kind, work_date) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			check_in = EXCLUDED.check_in,
			login_time = EXCLUDED.login_time,
			status = EXCLUDED.status,
			remark = EXCLUDED.remark,
			updated_at = NOW()
		WHERE attendance_records.check_in IS NULL
		RETURNING `+recordColumns,
		rec.ID, rec.SubjectID, rec.SubjectKind, rec.TenantID, dateArg(rec.WorkDate),
		rec.CheckIn, rec.LoginTime, rec.Status, rec.Remark)
	saved, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrAlreadyCheckedIn
	}
	if err != nil {
		return Record{}, apperrors.Transient(err, "record check-in")
	}
	return saved, nil
}

// FindDay implements Store.
func (r *Repository) FindDay(ctx context.Context, subj Subject, day time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE subject_id = $1 AND subject_kind = $2 AND work_date = $3::date
	`, subj.ID, subj.Kind, dateArg(day))
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Transient(err, "load attendance record")
	}
	return &rec, nil
}

// CloseDay implements Store.
func (r *Repository) CloseDay(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records SET
			check_out = $2,
			logout_time = $3,
			total_hours = $4,
			status = $5,
			remark = $6,
			auto_closed = $7,
			updated_at = NOW()
		WHERE id = $1 AND check_in IS NOT NULL AND check_out IS NULL
		RETURNING `+recordColumns,
		rec.ID, rec.CheckOut, rec.LogoutTime, rec.TotalHours, rec.Status, rec.Remark, rec.AutoClosed)
	saved, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrAlreadyCheckedOut
	}
	if err != nil {
		return Record{}, apperrors.Transient(err, "record check-out")
	}
	return saved, nil
}

// MarkAbsent implements Store.
func (r *Repository) MarkAbsent(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, subject_id, subject_kind, tenant_id, work_date, status, remark)
		VALUES ($1, $2, $3, $4, $5::date, $6, $6)
		ON CONFLICT (subject_id, subject_kind, work_date) DO UPDATE SET
			status = EXCLUDED.status,
			remark = EXCLUDED.remark,
			updated_at = NOW()
		WHERE attendance_records.check_in IS NULL
		RETURNING `+recordColumns,
		rec.ID, rec.SubjectID, rec.SubjectKind, rec.TenantID, dateArg(rec.WorkDate), StatusAbsent)
	saved, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrDayStarted
	}
	if err != nil {
		return Record{}, apperrors.Transient(err, "mark absent")
	}
	return saved, nil
}

// ListOpen implements Store.
func (r *Repository) ListOpen(ctx context.Context, day time.Time, afterID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 200
	}
	return r.query(ctx, "list open records", `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE work_date = $1::date AND check_in IS NOT NULL AND check_out IS NULL AND id > $2
		ORDER BY id
		LIMIT $3
	`, dateArg(day), afterID, limit)
}

// ListRange implements Store.
func (r *Repository) ListRange(ctx context.Context, kind SubjectKind, ids []string, from, to time.Time) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, "list attendance records", `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE subject_kind = $1 AND subject_id = ANY($2) AND work_date BETWEEN $3::date AND $4::date
		ORDER BY work_date, subject_id
	`, kind, ids, dateArg(from), dateArg(to))
}

func (r *Repository) query(ctx context.Context, op, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.Transient(err, op)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, apperrors.Transient(err, op)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Transient(err, op)
	}
	return res, nil
}
