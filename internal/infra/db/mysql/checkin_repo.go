package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinwell/checkin-api/internal/domain/analysis"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
)

type CheckInRepository struct {
	db *sql.DB
}

func NewCheckInRepository(db *sql.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

const checkinColumns = `id, tenant_id, patient_id, file_name, mime_type, size_bytes,
       submitted_at, status, assessment_json, mood_score,
       archive_url, error_code, duration_ms, notes`

// Save insert/update CheckIn record
func (r *CheckInRepository) Save(ctx context.Context, c *domain.CheckIn) error {
	const q = `
INSERT INTO checkins
(id, tenant_id, patient_id, file_name, mime_type, size_bytes,
 submitted_at, status, assessment_json, mood_score,
 archive_url, error_code, duration_ms, notes)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), assessment_json=VALUES(assessment_json),
 mood_score=VALUES(mood_score), archive_url=VALUES(archive_url),
 error_code=VALUES(error_code), duration_ms=VALUES(duration_ms);
`
	tenant := stringOrDash(c.TenantID)
	patient := stringOrDash(c.PatientID)
	submitted := c.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	assessment := sql.NullString{}
	mood := sql.NullInt64{}
	if c.Assessment != nil {
		b, err := json.Marshal(c.Assessment)
		if err != nil {
			return fmt.Errorf("marshal assessment: %w", err)
		}
		assessment = sql.NullString{String: string(b), Valid: true}
		mood = sql.NullInt64{Int64: int64(c.Assessment.MoodScore), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		c.ID, tenant, patient, c.FileName, c.MimeType, c.SizeBytes,
		submitted, string(c.Status), assessment, mood,
		c.ArchiveURL, c.ErrorCode, c.DurationMS, c.Notes,
	)
	return err
}

// Get by ID + Tenant
func (r *CheckInRepository) Get(ctx context.Context, tenant string, id domain.CheckInID) (*domain.CheckIn, error) {
	q := `
SELECT ` + checkinColumns + `
FROM checkins
WHERE tenant_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)
	return scanCheckIn(row)
}

// Latest check-ins per tenant
func (r *CheckInRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.CheckIn, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
SELECT ` + checkinColumns + `
FROM checkins
WHERE tenant_id=? ORDER BY submitted_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

// Paginate with offset + limit (classic pagination)
func (r *CheckInRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.CheckIn, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `
SELECT ` + checkinColumns + `
FROM checkins
WHERE tenant_id=?
ORDER BY submitted_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("querying checkins: %w", err)
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

// ListSince: analyzed check-ins for one patient, oldest first (insights feed)
func (r *CheckInRepository) ListSince(ctx context.Context, tenant, patient string, since time.Time) ([]*domain.CheckIn, error) {
	q := `
SELECT ` + checkinColumns + `
FROM checkins
WHERE tenant_id=? AND patient_id=? AND status=? AND submitted_at >= ?
ORDER BY submitted_at ASC;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, patient, string(domain.StatusAnalyzed), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (*domain.CheckIn, error) {
	var c domain.CheckIn
	var assessment sql.NullString
	var mood sql.NullInt64
	if err := row.Scan(
		&c.ID, &c.TenantID, &c.PatientID, &c.FileName, &c.MimeType, &c.SizeBytes,
		&c.SubmittedAt, &c.Status, &assessment, &mood,
		&c.ArchiveURL, &c.ErrorCode, &c.DurationMS, &c.Notes,
	); err != nil {
		return nil, err
	}
	if assessment.Valid && assessment.String != "" {
		var rec analysis.ClinicalAnalysis
		if err := json.Unmarshal([]byte(assessment.String), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal assessment for %s: %w", c.ID, err)
		}
		c.Assessment = &rec
	}
	return &c, nil
}

func collectCheckIns(rows *sql.Rows) ([]*domain.CheckIn, error) {
	var out []*domain.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
