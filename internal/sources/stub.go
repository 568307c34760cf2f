package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

// StubDiscoverer returns canned items after a short delay. Replace with the
// real per-source clients when wiring a production registry.
type StubDiscoverer struct {
	Platform string
	Items    int
	Delay    time.Duration
}

func (d StubDiscoverer) Discover(ctx context.Context, _ domain.Credentials, cursor string) (ports.DiscoveryResult, error) {
	if d.Delay > 0 {
		select {
		case <-ctx.Done():
			return ports.DiscoveryResult{}, ctx.Err()
		case <-time.After(d.Delay):
		}
	}
	items := make([]domain.RawItem, 0, d.Items)
	for i := 0; i < d.Items; i++ {
		items = append(items, domain.RawItem{
			Platform:  d.Platform,
			SourceID:  fmt.Sprintf("%s-%s-%d", d.Platform, cursor, i),
			SourceURL: fmt.Sprintf("https://%s.example.com/item/%d", d.Platform, i),
			Content:   "stub feedback item",
			PostedAt:  time.Now().UTC(),
		})
	}
	return ports.DiscoveryResult{Items: items}, nil
}
