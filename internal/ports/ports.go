package ports

import (
	"context"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

// Scanner creates scans and their per-source discovery jobs.
type Scanner interface {
	Create(ctx context.Context, projectID string, sources []string, requestedBy string) (domain.Scan, []domain.DiscoveryJob, error)
}

// StatusReader serves the polling read path. Implementations must never
// write, so polling at arbitrary frequency is safe.
type StatusReader interface {
	Get(ctx context.Context, scanID string) (domain.StatusReport, error)
}
