package ai

import "errors"

// ErrQuotaExceeded indicates the narrative provider returned a quota/limit
// error (HTTP 429 or similar). Insights fall back to stats-only output.
var ErrQuotaExceeded = errors.New("ai quota exceeded")
