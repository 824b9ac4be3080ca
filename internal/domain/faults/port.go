package faults

import (
	"context"
)

// Repository defines persistence for pipeline faults
type Repository interface {
	Save(ctx context.Context, f *PipelineFault) error
	ListByCheckIn(ctx context.Context, tenant string, checkinID string, limit int) ([]*PipelineFault, error)
}
