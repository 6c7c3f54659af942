package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/config"
	"github.com/svcgw/gateway/internal/controlplane"
)

// ApplyConfig replaces the seeded upstreams and routes with the ones from a
// reloaded configuration file. Entities created through the management API
// are replaced too; the file is the source of truth when reload is enabled.
// Listener addresses and collaborator endpoints are not reloadable.
//
// The new entities are validated in full against a scratch control plane
// before the live tables are touched, so a config that loads but fails
// entity validation leaves the previous entities serving.
func (s *Server) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	scratch := controlplane.New(zap.NewNop())
	if err := seedControlPlane(ctx, scratch, cfg); err != nil {
		return err
	}

	for _, r := range s.cp.ListRoutes(ctx) {
		if err := s.cp.DeleteRoute(ctx, r.ID); err != nil {
			return fmt.Errorf("clear route %s: %w", r.ID, err)
		}
	}
	for _, u := range s.cp.ListUpstreams(ctx) {
		if err := s.cp.DeleteUpstream(ctx, u.ID); err != nil {
			return fmt.Errorf("clear upstream %s: %w", u.ID, err)
		}
	}

	if err := seedControlPlane(ctx, s.cp, cfg); err != nil {
		return err
	}

	s.logger.Info("configuration applied",
		zap.Int("upstreams", len(cfg.Upstreams)),
		zap.Int("routes", len(cfg.Routes)),
	)
	return nil
}
