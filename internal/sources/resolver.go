package sources

import (
	"context"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
)

// StaticResolver treats every registered platform as an active integration
// for every project, with credentials supplied at construction. The real
// product resolves per-project integrations from its settings store; this
// keeps that collaborator behind the same interface.
type StaticResolver struct {
	registry *Registry
	creds    map[string]domain.Credentials
}

func NewStaticResolver(registry *Registry, creds map[string]domain.Credentials) *StaticResolver {
	if creds == nil {
		creds = make(map[string]domain.Credentials)
	}
	return &StaticResolver{registry: registry, creds: creds}
}

func (r *StaticResolver) Active(ctx context.Context, projectID string) ([]ports.Integration, error) {
	var out []ports.Integration
	for _, p := range r.registry.Platforms() {
		out = append(out, ports.Integration{Platform: p, Credentials: r.creds[p]})
	}
	return out, nil
}
