package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/svcgw/gateway/internal/config"
	"github.com/svcgw/gateway/internal/controlplane"
	"github.com/svcgw/gateway/internal/credential"
	"github.com/svcgw/gateway/internal/model"
)

// seedControlPlane loads the configured upstreams and routes into the
// control plane. Entities go through the normal create paths so file and
// API writes obey the same validation.
func seedControlPlane(ctx context.Context, cp *controlplane.Service, cfg *config.Config) error {
	for i, uc := range cfg.Upstreams {
		_, err := cp.CreateUpstream(ctx, model.Upstream{
			ID:            uc.ID,
			Alias:         uc.Alias,
			Tenant:        uc.Tenant,
			BaseURL:       uc.BaseURL,
			Timeout:       uc.Timeout,
			CredentialRef: uc.CredentialRef,
		})
		if err != nil {
			return fmt.Errorf("seed upstream %d: %w", i, err)
		}
	}

	for i, rc := range cfg.Routes {
		upstreamID := rc.UpstreamID
		if rc.Upstream != "" {
			u, err := cp.UpstreamByAlias(rc.Tenant, rc.Upstream)
			if err != nil {
				return fmt.Errorf("seed route %d: unknown upstream alias %q", i, rc.Upstream)
			}
			upstreamID = u.ID
		}
		_, err := cp.CreateRoute(ctx, model.Route{
			ID:            rc.ID,
			Tenant:        rc.Tenant,
			UpstreamID:    upstreamID,
			Methods:       rc.Methods,
			PathPattern:   rc.PathPattern,
			RewritePrefix: rc.RewritePrefix,
		})
		if err != nil {
			return fmt.Errorf("seed route %d: %w", i, err)
		}
	}

	return nil
}

// seedCredentials loads static secrets and the tenant hierarchy into a
// memory resolver.
func seedCredentials(resolver *credential.MemoryResolver, cfg *config.Config) {
	for _, tc := range cfg.Tenants {
		if tc.Parent != uuid.Nil {
			resolver.SetParent(tc.ID, tc.Parent)
		}
	}
	for _, sc := range cfg.Credential.Secrets {
		resolver.Put(sc.Tenant, sc.Ref, []byte(sc.Value))
	}
}
