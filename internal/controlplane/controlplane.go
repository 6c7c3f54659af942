// Package controlplane manages the durable gateway configuration: the
// upstream and route tables. It is the only writer of configuration; the
// data plane sees read-only snapshots.
package controlplane

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
	"github.com/svcgw/gateway/internal/routing"
	"github.com/svcgw/gateway/internal/store"
)

// DefaultUpstreamTimeout bounds outbound calls when an upstream does not
// configure its own timeout.
const DefaultUpstreamTimeout = 30 * time.Second

var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"DELETE": true, "PATCH": true, "OPTIONS": true,
}

// Service is the control plane. All mutations are atomic with respect to a
// single entity; the referential checks (route → upstream) are enforced
// here, not in the stores.
type Service struct {
	upstreams *store.Table[model.Upstream]
	routes    *store.Table[model.Route]
	logger    *zap.Logger
}

// New creates an empty control plane.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstreams: store.NewTable[model.Upstream](),
		routes:    store.NewTable[model.Route](),
		logger:    logger,
	}
}

// CreateUpstream validates and inserts an upstream. A zero ID is assigned;
// a caller-supplied ID that already exists fails with Conflict rather than
// silently overwriting.
func (s *Service) CreateUpstream(ctx context.Context, u model.Upstream) (model.Upstream, error) {
	if err := validateUpstream(&u); err != nil {
		return model.Upstream{}, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Alias != "" {
		if s.upstreams.Any(func(o model.Upstream) bool { return o.Tenant == u.Tenant && o.Alias == u.Alias }) {
			return model.Upstream{}, gwerror.Newf(gwerror.KindConflict, "upstream alias %q already exists in tenant", u.Alias)
		}
	}

	if err := s.upstreams.Put(u.ID.String(), u); err != nil {
		if errors.Is(err, store.ErrExists) {
			return model.Upstream{}, gwerror.Newf(gwerror.KindConflict, "upstream %s already exists", u.ID)
		}
		return model.Upstream{}, gwerror.Wrap(err, gwerror.KindInternal, "upstream insert failed")
	}

	s.logger.Info("upstream created",
		zap.String("upstream_id", u.ID.String()),
		zap.String("alias", u.Alias),
		zap.String("tenant_id", u.Tenant.String()),
	)
	return u, nil
}

// UpdateUpstream replaces an existing upstream's attributes. The tenant
// scope of an upstream is immutable once created.
func (s *Service) UpdateUpstream(ctx context.Context, u model.Upstream) (model.Upstream, error) {
	if err := validateUpstream(&u); err != nil {
		return model.Upstream{}, err
	}
	existing, err := s.GetUpstream(ctx, u.ID)
	if err != nil {
		return model.Upstream{}, err
	}
	if existing.Tenant != u.Tenant {
		return model.Upstream{}, gwerror.New(gwerror.KindInvalidRequest, "upstream tenant cannot be changed")
	}
	if u.Alias != "" && u.Alias != existing.Alias {
		if s.upstreams.Any(func(o model.Upstream) bool { return o.Tenant == u.Tenant && o.Alias == u.Alias }) {
			return model.Upstream{}, gwerror.Newf(gwerror.KindConflict, "upstream alias %q already exists in tenant", u.Alias)
		}
	}
	if err := s.upstreams.Replace(u.ID.String(), u); err != nil {
		return model.Upstream{}, gwerror.Wrap(err, gwerror.KindInternal, "upstream replace failed")
	}
	return u, nil
}

// GetUpstream returns an upstream by ID.
func (s *Service) GetUpstream(ctx context.Context, id uuid.UUID) (model.Upstream, error) {
	u, err := s.upstreams.Get(id.String())
	if err != nil {
		return model.Upstream{}, gwerror.Newf(gwerror.KindNotFound, "upstream %s not found", id)
	}
	return u, nil
}

// ListUpstreams returns a snapshot of all upstreams.
func (s *Service) ListUpstreams(ctx context.Context) []model.Upstream {
	return s.upstreams.Snapshot()
}

// DeleteUpstream removes an upstream. Fails with Conflict while any route
// still references it, so the data plane never discovers a dangling
// reference at request time.
func (s *Service) DeleteUpstream(ctx context.Context, id uuid.UUID) error {
	if s.routes.Any(func(r model.Route) bool { return r.UpstreamID == id }) {
		return gwerror.Newf(gwerror.KindConflict, "upstream %s is still referenced by routes; delete routes first", id)
	}
	if err := s.upstreams.Delete(id.String()); err != nil {
		return gwerror.Newf(gwerror.KindNotFound, "upstream %s not found", id)
	}
	s.logger.Info("upstream deleted", zap.String("upstream_id", id.String()))
	return nil
}

// CreateRoute validates and inserts a route. The target upstream must
// exist, and the pattern must not overlap any existing route in the same
// tenant for any shared method; ambiguous inserts are rejected here so
// request-time matching is first-and-only-match.
func (s *Service) CreateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	if err := validateRoute(&r); err != nil {
		return model.Route{}, err
	}
	if _, err := s.upstreams.Get(r.UpstreamID.String()); err != nil {
		return model.Route{}, gwerror.Newf(gwerror.KindInvalidReference, "upstream %s does not exist", r.UpstreamID)
	}
	if conflict, ok := s.findOverlap(r, uuid.Nil); ok {
		return model.Route{}, gwerror.Newf(gwerror.KindConflict,
			"pattern %q overlaps existing route %s (%q)", r.PathPattern, conflict.ID, conflict.PathPattern)
	}

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if err := s.routes.Put(r.ID.String(), r); err != nil {
		if errors.Is(err, store.ErrExists) {
			return model.Route{}, gwerror.Newf(gwerror.KindConflict, "route %s already exists", r.ID)
		}
		return model.Route{}, gwerror.Wrap(err, gwerror.KindInternal, "route insert failed")
	}

	s.logger.Info("route created",
		zap.String("route_id", r.ID.String()),
		zap.String("tenant_id", r.Tenant.String()),
		zap.String("pattern", r.PathPattern),
		zap.String("upstream_id", r.UpstreamID.String()),
	)
	return r, nil
}

// UpdateRoute replaces an existing route, revalidating the upstream
// reference and pattern disjointness against all other routes.
func (s *Service) UpdateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	if err := validateRoute(&r); err != nil {
		return model.Route{}, err
	}
	if _, err := s.routes.Get(r.ID.String()); err != nil {
		return model.Route{}, gwerror.Newf(gwerror.KindNotFound, "route %s not found", r.ID)
	}
	if _, err := s.upstreams.Get(r.UpstreamID.String()); err != nil {
		return model.Route{}, gwerror.Newf(gwerror.KindInvalidReference, "upstream %s does not exist", r.UpstreamID)
	}
	if conflict, ok := s.findOverlap(r, r.ID); ok {
		return model.Route{}, gwerror.Newf(gwerror.KindConflict,
			"pattern %q overlaps existing route %s (%q)", r.PathPattern, conflict.ID, conflict.PathPattern)
	}
	if err := s.routes.Replace(r.ID.String(), r); err != nil {
		return model.Route{}, gwerror.Wrap(err, gwerror.KindInternal, "route replace failed")
	}
	return r, nil
}

// GetRoute returns a route by ID.
func (s *Service) GetRoute(ctx context.Context, id uuid.UUID) (model.Route, error) {
	r, err := s.routes.Get(id.String())
	if err != nil {
		return model.Route{}, gwerror.Newf(gwerror.KindNotFound, "route %s not found", id)
	}
	return r, nil
}

// ListRoutes returns a snapshot of all routes.
func (s *Service) ListRoutes(ctx context.Context) []model.Route {
	return s.routes.Snapshot()
}

// DeleteRoute removes a route by ID.
func (s *Service) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	if err := s.routes.Delete(id.String()); err != nil {
		return gwerror.Newf(gwerror.KindNotFound, "route %s not found", id)
	}
	s.logger.Info("route deleted", zap.String("route_id", id.String()))
	return nil
}

// RouteSnapshot is the data plane read path: a copied slice the caller can
// scan without holding any table lock.
func (s *Service) RouteSnapshot() []model.Route {
	return s.routes.Snapshot()
}

// UpstreamByID is the data plane read path for resolving a route target.
func (s *Service) UpstreamByID(id uuid.UUID) (model.Upstream, error) {
	u, err := s.upstreams.Get(id.String())
	if err != nil {
		// A matched route pointing at a missing upstream is a referential
		// integrity violation; DeleteUpstream should have prevented it.
		return model.Upstream{}, gwerror.Newf(gwerror.KindInternal, "route references missing upstream %s", id)
	}
	return u, nil
}

// UpstreamByAlias resolves an upstream by alias, preferring the caller's
// tenant over the global scope.
func (s *Service) UpstreamByAlias(tenant model.TenantID, alias string) (model.Upstream, error) {
	if u, ok := s.upstreams.Find(func(o model.Upstream) bool { return o.Tenant == tenant && o.Alias == alias }); ok {
		return u, nil
	}
	if u, ok := s.upstreams.Find(func(o model.Upstream) bool { return o.Tenant == model.GlobalTenant && o.Alias == alias }); ok {
		return u, nil
	}
	return model.Upstream{}, gwerror.Newf(gwerror.KindNotFound, "upstream alias %q not found", alias)
}

// findOverlap scans for a route in the same tenant whose pattern and
// methods overlap r. excludeID skips the route being updated.
func (s *Service) findOverlap(r model.Route, excludeID uuid.UUID) (model.Route, bool) {
	return s.routes.Find(func(o model.Route) bool {
		if o.ID == excludeID || o.Tenant != r.Tenant {
			return false
		}
		return routing.MethodsOverlap(o.Methods, r.Methods) && routing.Overlaps(o.PathPattern, r.PathPattern)
	})
}

func validateUpstream(u *model.Upstream) error {
	parsed, err := url.Parse(u.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return gwerror.Newf(gwerror.KindInvalidRequest, "base_url %q is not a valid http(s) URL", u.BaseURL)
	}
	if u.Timeout <= 0 {
		u.Timeout = DefaultUpstreamTimeout
	}
	if u.CredentialRef != "" {
		if err := model.ValidateSecretRef(u.CredentialRef); err != nil {
			return gwerror.Wrap(err, gwerror.KindInvalidRequest, "invalid credential_ref")
		}
	}
	return nil
}

func validateRoute(r *model.Route) error {
	if r.UpstreamID == uuid.Nil {
		return gwerror.New(gwerror.KindInvalidRequest, "route requires an upstream_id")
	}
	if err := routing.ValidatePattern(r.PathPattern); err != nil {
		return gwerror.Wrap(err, gwerror.KindInvalidRequest, "invalid path_pattern")
	}
	for i, m := range r.Methods {
		upper := strings.ToUpper(m)
		if !validMethods[upper] {
			return gwerror.Newf(gwerror.KindInvalidRequest, "invalid method %q", m)
		}
		r.Methods[i] = upper
	}
	return nil
}
