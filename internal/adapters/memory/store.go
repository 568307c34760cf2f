// Package memory provides an in-process Store implementing the same ports as
// the Postgres adapter. It backs tests and local runs without a database; all
// operations take the store lock, which stands in for the claim transaction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

type Store struct {
	mu    sync.Mutex
	scans map[string]*domain.Scan
	jobs  map[string]*domain.DiscoveryJob
	order []string // job ids in insertion order, FIFO tie-break for ClaimNext
	seq   int
	retry domain.RetryPolicy

	// Now is the clock; tests override it to drive lease expiry.
	Now func() time.Time
}

func NewStore(retry domain.RetryPolicy) *Store {
	return &Store{
		scans: make(map[string]*domain.Scan),
		jobs:  make(map[string]*domain.DiscoveryJob),
		retry: retry,
		Now:   time.Now,
	}
}

// ScanStore

func (s *Store) Create(ctx context.Context, scan *domain.Scan, jobs []*domain.DiscoveryJob) error {
	if len(jobs) == 0 {
		return domain.ErrNoJobs
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scan.ID = uuid.NewString()
	cp := copyScan(scan)
	s.scans[scan.ID] = &cp
	for _, j := range jobs {
		j.ID = uuid.NewString()
		j.ScanID = scan.ID
		s.insertJobLocked(j)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, scanID string) (domain.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scan, ok := s.scans[scanID]
	if !ok {
		return domain.Scan{}, domain.ErrScanNotFound
	}
	return copyScan(scan), nil
}

// JobStore

func (s *Store) Enqueue(ctx context.Context, jobs []*domain.DiscoveryJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range jobs {
		if _, ok := s.scans[j.ScanID]; !ok {
			return domain.ErrScanNotFound
		}
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		s.insertJobLocked(j)
		s.refreshPlatformLocked(j.ScanID, j.Platform)
	}
	return nil
}

func (s *Store) ClaimNext(ctx context.Context, workerID string, lease time.Duration) (domain.DiscoveryJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for _, id := range s.order {
		j := s.jobs[id]
		if !claimable(j, now) {
			continue
		}
		exp := now.Add(lease)
		j.Status = domain.JobLeased
		j.ClaimedBy = workerID
		j.LeaseExpiresAt = &exp
		j.UpdatedAt = now
		s.refreshPlatformLocked(j.ScanID, j.Platform)
		return *j, true, nil
	}
	return domain.DiscoveryJob{}, false, nil
}

func claimable(j *domain.DiscoveryJob, now time.Time) bool {
	switch j.Status {
	case domain.JobPending:
		return !j.NotBefore.After(now)
	case domain.JobLeased:
		return j.LeaseExpiresAt != nil && j.LeaseExpiresAt.Before(now)
	default:
		return false
	}
}

func (s *Store) Ack(ctx context.Context, jobID string, discovered int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if j.Status.Terminal() {
		// Late or duplicate ack after completion or reclaim; counters were
		// applied on the first transition.
		return nil
	}
	j.Status = domain.JobComplete
	j.Error = nil
	j.LeaseExpiresAt = nil
	j.UpdatedAt = s.Now()

	scan := s.scans[j.ScanID]
	scan.TotalDiscovered += discovered
	s.refreshPlatformLocked(j.ScanID, j.Platform)
	s.finishIfDoneLocked(j.ScanID)
	return nil
}

func (s *Store) FailOrRetry(ctx context.Context, jobID string, reason string, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if j.Status.Terminal() {
		return nil
	}
	now := s.Now()
	j.Attempts++
	j.Error = &reason
	j.LeaseExpiresAt = nil
	j.UpdatedAt = now
	if terminal || j.Attempts >= j.MaxAttempts {
		j.Status = domain.JobFailed
	} else {
		j.Status = domain.JobPending
		j.NotBefore = now.Add(s.retry.RetryDelay(j.Attempts))
	}
	s.refreshPlatformLocked(j.ScanID, j.Platform)
	s.finishIfDoneLocked(j.ScanID)
	return nil
}

func (s *Store) ListByScan(ctx context.Context, scanID string) ([]domain.DiscoveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.DiscoveryJob
	for _, id := range s.order {
		if j := s.jobs[id]; j.ScanID == scanID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.JobStatus]int)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// internals (lock held)

func (s *Store) insertJobLocked(j *domain.DiscoveryJob) {
	s.seq++
	now := s.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	cp := *j
	s.jobs[j.ID] = &cp
	s.order = append(s.order, j.ID)
}

// refreshPlatformLocked recomputes the cached per-platform entry on the scan
// from the platform's latest job, so pagination follow-ups keep a platform
// non-terminal until the last page lands.
func (s *Store) refreshPlatformLocked(scanID, platform string) {
	scan, ok := s.scans[scanID]
	if !ok {
		return
	}
	var latest *domain.DiscoveryJob
	for _, id := range s.order {
		j := s.jobs[id]
		if j.ScanID == scanID && j.Platform == platform {
			latest = j
		}
	}
	if latest != nil {
		scan.Platforms[platform] = domain.PlatformStatusOf(*latest)
	}
}

func (s *Store) finishIfDoneLocked(scanID string) {
	scan, ok := s.scans[scanID]
	if !ok {
		return
	}
	var jobs []domain.DiscoveryJob
	for _, id := range s.order {
		if j := s.jobs[id]; j.ScanID == scanID {
			jobs = append(jobs, *j)
		}
	}
	status := domain.DeriveScanStatus(jobs)
	scan.Status = status
	if status != domain.ScanRunning && scan.CompletedAt == nil {
		now := s.Now()
		scan.CompletedAt = &now
	}
}

func copyScan(scan *domain.Scan) domain.Scan {
	cp := *scan
	cp.Platforms = make(map[string]domain.PlatformStatus, len(scan.Platforms))
	for k, v := range scan.Platforms {
		cp.Platforms[k] = v
	}
	if scan.CompletedAt != nil {
		t := *scan.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
