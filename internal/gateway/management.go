package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/middleware"
	"github.com/svcgw/gateway/internal/model"
)

// maxManagementBody bounds management API request bodies.
const maxManagementBody = 1 << 20

// upstreamPayload is the management API representation of an upstream.
// Timeout travels as a duration string ("20s") rather than nanoseconds.
type upstreamPayload struct {
	ID            uuid.UUID `json:"id,omitempty"`
	Alias         string    `json:"alias,omitempty"`
	Tenant        uuid.UUID `json:"tenant_id"`
	BaseURL       string    `json:"base_url"`
	Timeout       string    `json:"timeout,omitempty"`
	CredentialRef string    `json:"credential_ref,omitempty"`
}

func (p *upstreamPayload) toModel() (model.Upstream, error) {
	u := model.Upstream{
		ID:            p.ID,
		Alias:         p.Alias,
		Tenant:        p.Tenant,
		BaseURL:       p.BaseURL,
		CredentialRef: p.CredentialRef,
	}
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return model.Upstream{}, gwerror.Newf(gwerror.KindInvalidRequest, "invalid timeout %q", p.Timeout)
		}
		u.Timeout = d
	}
	return u, nil
}

func upstreamToPayload(u model.Upstream) upstreamPayload {
	return upstreamPayload{
		ID:            u.ID,
		Alias:         u.Alias,
		Tenant:        u.Tenant,
		BaseURL:       u.BaseURL,
		Timeout:       u.Timeout.String(),
		CredentialRef: u.CredentialRef,
	}
}

// routePayload is the management API representation of a route.
type routePayload struct {
	ID            uuid.UUID `json:"id,omitempty"`
	Tenant        uuid.UUID `json:"tenant_id"`
	UpstreamID    uuid.UUID `json:"upstream_id"`
	Methods       []string  `json:"methods,omitempty"`
	PathPattern   string    `json:"path_pattern"`
	RewritePrefix string    `json:"rewrite_prefix,omitempty"`
}

func (p *routePayload) toModel() model.Route {
	return model.Route{
		ID:            p.ID,
		Tenant:        p.Tenant,
		UpstreamID:    p.UpstreamID,
		Methods:       p.Methods,
		PathPattern:   p.PathPattern,
		RewritePrefix: p.RewritePrefix,
	}
}

func routeToPayload(r model.Route) routePayload {
	return routePayload{
		ID:            r.ID,
		Tenant:        r.Tenant,
		UpstreamID:    r.UpstreamID,
		Methods:       r.Methods,
		PathPattern:   r.PathPattern,
		RewritePrefix: r.RewritePrefix,
	}
}

// managementRouter builds the control plane CRUD API.
func (s *Server) managementRouter() http.Handler {
	router := httprouter.New()

	router.POST("/gateway/v1/upstreams", s.createUpstream)
	router.GET("/gateway/v1/upstreams", s.listUpstreams)
	router.GET("/gateway/v1/upstreams/:id", s.getUpstream)
	router.PUT("/gateway/v1/upstreams/:id", s.updateUpstream)
	router.DELETE("/gateway/v1/upstreams/:id", s.deleteUpstream)

	router.POST("/gateway/v1/routes", s.createRoute)
	router.GET("/gateway/v1/routes", s.listRoutes)
	router.GET("/gateway/v1/routes/:id", s.getRoute)
	router.PUT("/gateway/v1/routes/:id", s.updateRoute)
	router.DELETE("/gateway/v1/routes/:id", s.deleteRoute)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, gwerror.New(gwerror.KindNotFound, "unknown management endpoint"))
	})
	return router
}

func (s *Server) createUpstream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload upstreamPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := payload.toModel()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.cp.CreateUpstream(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, upstreamToPayload(created))
}

func (s *Server) listUpstreams(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	upstreams := s.cp.ListUpstreams(r.Context())
	payloads := make([]upstreamPayload, 0, len(upstreams))
	for _, u := range upstreams {
		payloads = append(payloads, upstreamToPayload(u))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) getUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.cp.GetUpstream(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upstreamToPayload(u))
}

func (s *Server) updateUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload upstreamPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := payload.toModel()
	if err != nil {
		writeError(w, r, err)
		return
	}
	u.ID = id
	updated, err := s.cp.UpdateUpstream(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upstreamToPayload(updated))
}

func (s *Server) deleteUpstream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cp.DeleteUpstream(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload routePayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.cp.CreateRoute(r.Context(), payload.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, routeToPayload(created))
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	routes := s.cp.ListRoutes(r.Context())
	payloads := make([]routePayload, 0, len(routes))
	for _, rt := range routes {
		payloads = append(payloads, routeToPayload(rt))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := s.cp.GetRoute(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeToPayload(rt))
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload routePayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	route := payload.toModel()
	route.ID = id
	updated, err := s.cp.UpdateRoute(r.Context(), route)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeToPayload(updated))
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := parseID(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cp.DeleteRoute(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(ps httprouter.Params) (uuid.UUID, error) {
	id, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		return uuid.Nil, gwerror.New(gwerror.KindInvalidRequest, "id must be a UUID")
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxManagementBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return gwerror.Wrap(err, gwerror.KindInvalidRequest, "malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	gwerror.AsError(err).
		WithRequestID(middleware.RequestIDFromContext(r.Context())).
		WriteJSON(w)
}
