package checkins

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, c *CheckIn) error
	Get(ctx context.Context, tenant string, id CheckInID) (*CheckIn, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*CheckIn, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*CheckIn, error)

	// ListSince feeds the insights engine: analyzed check-ins for one
	// patient going back sinceDays, oldest first.
	ListSince(ctx context.Context, tenant, patient string, since time.Time) ([]*CheckIn, error)
}

// ArchiveStore port (interface untuk penyimpanan arsip assessment)
type ArchiveStore interface {
	PutJSON(ctx context.Context, key string, payload []byte) (string, error)
}

// Prober port: optional pre-upload media inspection
type Prober interface {
	Probe(ctx context.Context, path string) (ProbeResult, error)
}

// ProbeResult hasil dari Prober
type ProbeResult struct {
	DurationSeconds float64
	HasVideoStream  bool
}
