package ports

import (
	"context"
	"time"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

// ScanStore persists scan rows.
type ScanStore interface {
	// Create inserts the scan and all of its jobs atomically: either every
	// row exists afterwards or none do. Ids are assigned on insert. An
	// empty job set is refused with domain.ErrNoJobs.
	Create(ctx context.Context, scan *domain.Scan, jobs []*domain.DiscoveryJob) error

	// Get returns the scan or domain.ErrScanNotFound.
	Get(ctx context.Context, scanID string) (domain.Scan, error)
}

// JobStore persists discovery jobs and is the only coordination point
// between workers. All mutation goes through its atomic operations; callers
// must not cache job state across calls.
type JobStore interface {
	// Enqueue bulk-inserts pending jobs (pagination follow-ups).
	Enqueue(ctx context.Context, jobs []*domain.DiscoveryJob) error

	// ClaimNext atomically leases the oldest eligible job: pending and past
	// its backoff gate, or leased with an expired lease. Two concurrent
	// callers never receive the same job. found is false when nothing is
	// eligible.
	ClaimNext(ctx context.Context, workerID string, lease time.Duration) (job domain.DiscoveryJob, found bool, err error)

	// Ack completes a job and applies its discovered-count contribution to
	// the scan counters exactly once. Acking an already-terminal job is a
	// no-op.
	Ack(ctx context.Context, jobID string, discovered int) error

	// FailOrRetry records a failed attempt. The job goes back to pending
	// behind an exponential backoff gate while budget remains; it becomes
	// terminally failed when the budget is exhausted or terminal is true.
	FailOrRetry(ctx context.Context, jobID string, reason string, terminal bool) error

	// ListByScan returns every job of a scan ordered by creation.
	ListByScan(ctx context.Context, scanID string) ([]domain.DiscoveryJob, error)

	// CountByStatus reports queue depth per status across all scans.
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}
