// Package status is the polling read path. It re-derives scan state from the
// current job rows on every call and never writes, so clients may poll it at
// arbitrary frequency.
package status

import (
	"context"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

type Service struct {
	scans ports.ScanStore
	jobs  ports.JobStore
}

func New(scans ports.ScanStore, jobs ports.JobStore) *Service {
	return &Service{scans: scans, jobs: jobs}
}

// Get aggregates a scan's jobs into the report a poller sees. The cached
// status fields on the scan row are refreshed by the stores, but the report
// is always recomputed from the jobs themselves.
func (s *Service) Get(ctx context.Context, scanID string) (domain.StatusReport, error) {
	scan, err := s.scans.Get(ctx, scanID)
	if err != nil {
		return domain.StatusReport{}, err
	}
	jobs, err := s.jobs.ListByScan(ctx, scanID)
	if err != nil {
		return domain.StatusReport{}, err
	}

	// Latest job per platform; ListByScan is ordered by creation, so the last
	// one seen wins (pagination follow-ups supersede the page before them).
	latest := make(map[string]domain.DiscoveryJob)
	var order []string
	for _, j := range jobs {
		if _, seen := latest[j.Platform]; !seen {
			order = append(order, j.Platform)
		}
		latest[j.Platform] = j
	}

	report := domain.StatusReport{Scan: scan}
	terminal := 0
	for _, platform := range order {
		j := latest[platform]
		ps := domain.PlatformStatusOf(j)
		if ps == domain.PlatformComplete || ps == domain.PlatformFailed {
			terminal++
		}
		report.Platforms = append(report.Platforms, domain.PlatformReport{
			Platform: platform,
			Status:   ps,
			Attempts: j.Attempts,
			Error:    j.Error,
		})
		report.Scan.Platforms[platform] = ps
	}
	if len(order) > 0 {
		report.ProgressPercent = 100 * terminal / len(order)
	}
	report.Scan.Status = domain.DeriveScanStatus(jobs)
	report.AllComplete = report.Scan.Status != domain.ScanRunning
	return report, nil
}
