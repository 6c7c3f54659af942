package gateway

import (
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/middleware"
	"github.com/svcgw/gateway/internal/model"
)

// ProxyPathPrefix is where the data plane is mounted.
const ProxyPathPrefix = "/gateway/v1/proxy"

// TimeoutHeader lets callers supply their own deadline for the upstream
// call; it can only tighten the upstream's configured timeout.
const TimeoutHeader = "X-Gateway-Timeout"

// ConstraintsHeader carries policy constraints back to the caller.
const ConstraintsHeader = "X-Gateway-Constraints"

// proxyHandler is the data plane entry point. Everything after the mount
// prefix is the logical request path used for route matching.
func (s *Server) proxyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sec, ok := middleware.SecurityContextFromContext(r.Context())
		if !ok {
			s.rejected(w, r, gwerror.New(gwerror.KindForbidden, "caller identity is required"))
			return
		}

		req, err := s.buildProxyRequest(sec, r)
		if err != nil {
			s.rejected(w, r, err)
			return
		}

		res, err := s.dp.Proxy(r.Context(), req)
		if err != nil {
			s.rejected(w, r, err)
			return
		}

		for k, vv := range res.Header {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		if len(res.Constraints) > 0 {
			w.Header().Set(ConstraintsHeader, strings.Join(res.Constraints, ","))
		}
		w.WriteHeader(res.StatusCode)
		w.Write(res.Body)

		s.collector.RecordRequest(r.Method, res.StatusCode, time.Since(start))
	})
}

func (s *Server) buildProxyRequest(sec model.SecurityContext, r *http.Request) (*model.ProxyRequest, error) {
	path := strings.TrimPrefix(r.URL.Path, ProxyPathPrefix)
	if path == "" {
		path = "/"
	}

	var timeout time.Duration
	if raw := r.Header.Get(TimeoutHeader); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, gwerror.Newf(gwerror.KindInvalidRequest, "invalid %s header", TimeoutHeader)
		}
		timeout = d
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.maxBodyBytes))
	if err != nil {
		return nil, gwerror.Wrap(err, gwerror.KindInvalidRequest, "request body too large or unreadable")
	}

	return &model.ProxyRequest{
		Sec:      sec,
		Method:   r.Method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
		Timeout:  timeout,
	}, nil
}

// rejected writes a gateway-generated error and counts it.
func (s *Server) rejected(w http.ResponseWriter, r *http.Request, err error) {
	ge := gwerror.AsError(err).WithRequestID(middleware.RequestIDFromContext(r.Context()))
	if ge.Kind == gwerror.KindInternal {
		s.logger.Error("proxy pipeline failure",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.collector.RecordRejection(string(ge.Kind))
	ge.WriteJSON(w)
}
