package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/clinwell/checkin-api/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository { return &FaultRepository{db: db} }

func (r *FaultRepository) Save(ctx context.Context, f *domain.PipelineFault) error {
	const q = `
INSERT INTO pipeline_faults
  (tenant_id, checkin_id, stage, code, message, created_at)
VALUES (?,?,?,?,?,?)
`
	tenant := stringOrDash(f.TenantID)
	checkin := stringOrDash(f.CheckInID)
	stage := stringOrDash(f.Stage)
	code := stringOrDash(f.Code)
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, tenant, checkin, stage, code, msg, created)
	return err
}

func (r *FaultRepository) ListByCheckIn(ctx context.Context, tenant string, checkinID string, limit int) ([]*domain.PipelineFault, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, checkin_id, stage, code, message, created_at
FROM pipeline_faults
WHERE tenant_id = ? AND checkin_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, checkinID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.PipelineFault
	for rows.Next() {
		var f domain.PipelineFault
		var created time.Time
		if err := rows.Scan(&f.ID, &f.TenantID, &f.CheckInID, &f.Stage, &f.Code, &f.Message, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}
