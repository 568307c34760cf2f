package ports

import (
	"context"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

// DiscoveryResult is one page of items from a source. A non-empty NextCursor
// means the source paginates and a follow-up job should be enqueued.
type DiscoveryResult struct {
	Items      []domain.RawItem
	NextCursor string
}

// SourceDiscoverer is the per-source discovery collaborator, implemented
// outside this core (one per platform: scraper or API client).
type SourceDiscoverer interface {
	Discover(ctx context.Context, creds domain.Credentials, cursor string) (DiscoveryResult, error)
}

// DiscovererRegistry resolves the discoverer for a platform. It is an
// explicit constructed object handed to the dispatcher, never process-global
// state, so isolated dispatcher instances can coexist.
type DiscovererRegistry interface {
	Lookup(platform string) (SourceDiscoverer, bool)
	Platforms() []string
}

// Classifier is the downstream classification collaborator. Delivery is an
// explicit emit with an observable error; a classification failure never
// fails the job that produced the items.
type Classifier interface {
	Classify(ctx context.Context, scanID string, items []domain.RawItem) error
}

// Integration is one active source connection for a project.
type Integration struct {
	Platform    string
	Credentials domain.Credentials
}

// IntegrationResolver reports which sources are usable for a project.
// Authorization of the requesting user happens before this core is invoked.
type IntegrationResolver interface {
	Active(ctx context.Context, projectID string) ([]Integration, error)
}
