package ai

import "context"

// Narrator turns computed insight statistics (as JSON) into a short
// clinician-facing narrative paragraph.
type Narrator interface {
	Narrate(ctx context.Context, statsJSON string) (string, error)
}
