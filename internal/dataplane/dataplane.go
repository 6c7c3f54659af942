// Package dataplane runs the request pipeline: route resolution, policy
// decision, credential attachment, and upstream dispatch. Stages run
// strictly in order and the first failure short-circuits the rest, so a
// denied or unroutable request never reaches credential resolution or the
// upstream.
package dataplane

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/controlplane"
	"github.com/svcgw/gateway/internal/credential"
	"github.com/svcgw/gateway/internal/dispatch"
	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
	"github.com/svcgw/gateway/internal/policy"
	"github.com/svcgw/gateway/internal/routing"
)

// hopByHop lists headers that are connection-scoped and never forwarded in
// either direction.
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// UpstreamRecorder observes outbound call durations, keyed by the
// upstream's alias or ID.
type UpstreamRecorder interface {
	RecordUpstream(upstream string, duration time.Duration)
}

// Service wires the pipeline stages together.
type Service struct {
	cp         *controlplane.Service
	creds      credential.Resolver
	pep        *policy.Enforcer
	dispatcher dispatch.Dispatcher
	recorder   UpstreamRecorder
	logger     *zap.Logger
}

// New creates a data plane over the given collaborators. A nil recorder
// disables upstream duration recording.
func New(cp *controlplane.Service, creds credential.Resolver, pep *policy.Enforcer, dispatcher dispatch.Dispatcher, recorder UpstreamRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cp:         cp,
		creds:      creds,
		pep:        pep,
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
	}
}

// Proxy runs one request through the full pipeline.
func (s *Service) Proxy(ctx context.Context, req *model.ProxyRequest) (*model.ProxyResult, error) {
	route, err := s.resolveRoute(req)
	if err != nil {
		return nil, err
	}

	upstream, err := s.cp.UpstreamByID(route.UpstreamID)
	if err != nil {
		return nil, err
	}

	decision, err := s.pep.Authorize(ctx, req.Sec, &upstream)
	if err != nil {
		return nil, err
	}

	secret, err := s.attachCredential(ctx, &upstream)
	if err != nil {
		return nil, err
	}
	if secret != nil {
		defer secret.Zero()
	}

	out := s.buildOutbound(req, &route, &upstream, secret)
	start := time.Now()
	resp, err := s.dispatcher.Dispatch(ctx, out)
	s.recordUpstream(&upstream, time.Since(start))
	if err != nil {
		return nil, classifyDispatchError(err)
	}

	s.logger.Debug("proxy completed",
		zap.String("route_id", route.ID.String()),
		zap.String("upstream_id", upstream.ID.String()),
		zap.Int("status", resp.StatusCode),
	)

	return &model.ProxyResult{
		StatusCode:  resp.StatusCode,
		Header:      stripHopByHop(resp.Header),
		Body:        resp.Body,
		Constraints: decision.Constraints,
	}, nil
}

// resolveRoute scans the route snapshot for the caller's tenant, falling
// back to the global scope. Patterns within a scope are disjoint by
// construction, so the first match is the only match.
func (s *Service) resolveRoute(req *model.ProxyRequest) (model.Route, error) {
	routes := s.cp.RouteSnapshot()

	var global *model.Route
	for i := range routes {
		r := &routes[i]
		if !r.AllowsMethod(req.Method) || !routing.Match(r.PathPattern, req.Path) {
			continue
		}
		switch r.Tenant {
		case req.Sec.Tenant:
			return *r, nil
		case model.GlobalTenant:
			if global == nil {
				global = r
			}
		}
	}
	if global != nil {
		return *global, nil
	}
	return model.Route{}, gwerror.Newf(gwerror.KindNotFound, "no route matches %s %s", req.Method, req.Path)
}

// attachCredential resolves the upstream's credential in the scope of the
// tenant that owns the upstream, not the caller. A missing credential on an
// upstream that requires one means the target is misconfigured; the request
// fails before any dispatch.
func (s *Service) attachCredential(ctx context.Context, upstream *model.Upstream) (*model.SecretValue, error) {
	if !upstream.RequiresAuth() {
		return nil, nil
	}

	secret, err := s.creds.Resolve(ctx, upstream.Tenant, upstream.CredentialRef)
	if err != nil {
		s.logger.Error("credential resolution failed",
			zap.String("upstream_id", upstream.ID.String()),
			zap.Error(err),
		)
		return nil, gwerror.Wrap(err, gwerror.KindDependencyUnavailable, "credential store unavailable")
	}
	if secret == nil {
		s.logger.Warn("credential not found for upstream",
			zap.String("upstream_id", upstream.ID.String()),
			zap.String("credential_ref", upstream.CredentialRef),
		)
		return nil, gwerror.New(gwerror.KindDependencyUnavailable, "upstream credential unavailable")
	}
	return secret, nil
}

// buildOutbound prepares the single upstream call. Headers are copied with
// hop-by-hop and caller Authorization stripped; the credential, when
// present, is injected only here so it exists solely on the outbound
// request.
func (s *Service) buildOutbound(req *model.ProxyRequest, route *model.Route, upstream *model.Upstream, secret *model.SecretValue) *dispatch.OutboundRequest {
	path := routing.Rewrite(route.PathPattern, route.RewritePrefix, req.Path)
	target := strings.TrimSuffix(upstream.BaseURL, "/") + path
	if req.RawQuery != "" {
		target += "?" + req.RawQuery
	}

	header := stripHopByHop(req.Header)
	header.Del("Authorization")
	header.Del("Host")
	if secret != nil {
		header.Set("Authorization", "Bearer "+string(secret.Bytes()))
	}

	return &dispatch.OutboundRequest{
		Method:  req.Method,
		URL:     target,
		Header:  header,
		Body:    req.Body,
		Timeout: effectiveTimeout(req.Timeout, upstream.Timeout),
	}
}

// effectiveTimeout composes the caller's bound with the upstream's. The
// earlier deadline wins; zero means no caller bound.
func effectiveTimeout(caller, upstream time.Duration) time.Duration {
	if caller > 0 && caller < upstream {
		return caller
	}
	return upstream
}

// recordUpstream reports the outbound call duration, failed calls
// included.
func (s *Service) recordUpstream(upstream *model.Upstream, d time.Duration) {
	if s.recorder == nil {
		return
	}
	label := upstream.Alias
	if label == "" {
		label = upstream.ID.String()
	}
	s.recorder.RecordUpstream(label, d)
}

func classifyDispatchError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return gwerror.Wrap(err, gwerror.KindTimeout, "upstream call exceeded its deadline")
	case errors.Is(err, context.Canceled):
		// The caller went away; nothing will read the response.
		return err
	default:
		return gwerror.Wrap(err, gwerror.KindUpstreamUnreachable, "upstream is unreachable")
	}
}

func stripHopByHop(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, k := range hopByHop {
		out.Del(k)
	}
	return out
}
