// Package scans holds the scan manager: the entry point that fans a scan
// request out into one discovery job per active source.
package scans

import (
	"context"
	"fmt"
	"sort"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

type Service struct {
	store       ports.ScanStore
	resolver    ports.IntegrationResolver
	maxAttempts int
}

func New(store ports.ScanStore, resolver ports.IntegrationResolver, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	return &Service{store: store, resolver: resolver, maxAttempts: maxAttempts}
}

// Create makes one running scan plus one pending job per resolved source,
// atomically. sources narrows the scan to a subset; empty means every active
// integration of the project. The returned scan id is pollable immediately.
func (s *Service) Create(ctx context.Context, projectID string, sources []string, requestedBy string) (domain.Scan, []domain.DiscoveryJob, error) {
	if projectID == "" {
		return domain.Scan{}, nil, fmt.Errorf("project id is required")
	}

	active, err := s.resolver.Active(ctx, projectID)
	if err != nil {
		return domain.Scan{}, nil, fmt.Errorf("resolve integrations: %w", err)
	}

	platforms := selectPlatforms(active, sources)
	if len(platforms) == 0 {
		return domain.Scan{}, nil, domain.ErrNoActiveSources
	}

	scan := domain.NewScan(projectID, requestedBy, platforms)
	jobs := make([]*domain.DiscoveryJob, 0, len(platforms))
	for _, p := range platforms {
		j := domain.NewDiscoveryJob(p, s.maxAttempts)
		jobs = append(jobs, &j)
	}
	if err := s.store.Create(ctx, &scan, jobs); err != nil {
		return domain.Scan{}, nil, fmt.Errorf("create scan: %w", err)
	}

	out := make([]domain.DiscoveryJob, len(jobs))
	for i, j := range jobs {
		out[i] = *j
	}
	return scan, out, nil
}

// selectPlatforms intersects the active integrations with the requested
// sources; unknown or inactive requests are silently dropped.
func selectPlatforms(active []ports.Integration, requested []string) []string {
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[r] = true
	}
	var platforms []string
	for _, in := range active {
		if len(requested) > 0 && !want[in.Platform] {
			continue
		}
		platforms = append(platforms, in.Platform)
	}
	sort.Strings(platforms)
	return platforms
}
