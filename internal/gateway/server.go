// Package gateway assembles the HTTP surface: the proxy data plane, the
// management API, and the admin endpoints, plus server lifecycle.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/svcgw/gateway/internal/config"
	"github.com/svcgw/gateway/internal/controlplane"
	"github.com/svcgw/gateway/internal/credential"
	"github.com/svcgw/gateway/internal/dataplane"
	"github.com/svcgw/gateway/internal/dispatch"
	"github.com/svcgw/gateway/internal/metrics"
	"github.com/svcgw/gateway/internal/middleware"
	"github.com/svcgw/gateway/internal/policy"
)

// Server owns the gateway's HTTP listeners and wiring.
type Server struct {
	cfg       *config.Config
	cp        *controlplane.Service
	dp        *dataplane.Service
	collector *metrics.Collector
	logger    *zap.Logger

	proxySrv *http.Server
	adminSrv *http.Server

	maxBodyBytes int64
	startTime    time.Time
}

// NewServer wires the full gateway from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cp := controlplane.New(logger.Named("controlplane"))

	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	evaluator, err := policy.NewHTTPEvaluator(cfg.Policy.URL, cfg.Policy.Timeout)
	if err != nil {
		return nil, fmt.Errorf("policy evaluator: %w", err)
	}
	pep := policy.NewEnforcer(evaluator, logger.Named("policy"))

	transport := dispatch.NewTransport(mergeTransport(cfg.Transport))
	dispatcher := dispatch.NewHTTPDispatcher(transport, logger.Named("dispatch"))
	collector := metrics.NewCollector()

	s := &Server{
		cfg:          cfg,
		cp:           cp,
		dp:           dataplane.New(cp, resolver, pep, dispatcher, collector, logger.Named("dataplane")),
		collector:    collector,
		logger:       logger,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		startTime:    time.Now(),
	}

	if err := seedControlPlane(context.Background(), cp, cfg); err != nil {
		return nil, err
	}

	s.proxySrv = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	s.adminSrv = &http.Server{
		Addr:         cfg.Server.AdminAddress,
		Handler:      s.adminHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s, nil
}

func buildResolver(cfg *config.Config) (credential.Resolver, error) {
	switch cfg.Credential.Mode {
	case "http":
		return credential.NewHTTPResolver(cfg.Credential.URL, cfg.Credential.Timeout)
	default:
		resolver := credential.NewMemoryResolver()
		seedCredentials(resolver, cfg)
		return resolver, nil
	}
}

func mergeTransport(tc config.TransportConfig) dispatch.TransportConfig {
	out := dispatch.DefaultTransportConfig
	if tc.MaxIdleConns > 0 {
		out.MaxIdleConns = tc.MaxIdleConns
	}
	if tc.MaxIdleConnsPerHost > 0 {
		out.MaxIdleConnsPerHost = tc.MaxIdleConnsPerHost
	}
	if tc.MaxConnsPerHost > 0 {
		out.MaxConnsPerHost = tc.MaxConnsPerHost
	}
	if tc.IdleConnTimeout > 0 {
		out.IdleConnTimeout = tc.IdleConnTimeout
	}
	if tc.DialTimeout > 0 {
		out.DialTimeout = tc.DialTimeout
	}
	if tc.TLSHandshakeTimeout > 0 {
		out.TLSHandshakeTimeout = tc.TLSHandshakeTimeout
	}
	if tc.DisableKeepAlives {
		out.DisableKeepAlives = true
	}
	if tc.InsecureSkipVerify {
		out.InsecureSkipVerify = true
	}
	return out
}

// Handler builds the main listener handler: the proxy data plane behind
// caller authentication, and the management API beside it.
func (s *Server) Handler() http.Handler {
	base := middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.AccessLog(s.logger.Named("access")),
	)
	proxyChain := base.Append(middleware.SecurityContext(middleware.SecurityContextConfig{
		JWTSecret:    []byte(s.cfg.Auth.JWTSecret),
		TrustHeaders: s.cfg.Auth.TrustHeaders,
	}))

	mux := http.NewServeMux()
	mux.Handle(ProxyPathPrefix+"/", proxyChain.Then(s.proxyHandler()))
	mux.Handle("/gateway/v1/", base.Then(s.managementRouter()))
	return mux
}

// adminHandler serves health, readiness, metrics and stats.
func (s *Server) adminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", s.collector.Handler())
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
			"upstreams":      len(s.cp.ListUpstreams(ctx)),
			"routes":         len(s.cp.ListRoutes(ctx)),
		})
	})
	return mux
}

// Run starts both listeners and blocks until a shutdown signal or a
// listener failure. Shutdown drains in-flight requests within the grace
// period.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("proxy listener starting", zap.String("address", s.proxySrv.Addr))
		if err := s.proxySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("proxy listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.logger.Info("admin listener starting", zap.String("address", s.adminSrv.Addr))
		if err := s.adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("admin listener: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down", zap.Duration("grace", s.cfg.Server.ShutdownGrace))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownGrace)
		defer cancel()
		if err := s.proxySrv.Shutdown(shutdownCtx); err != nil {
			s.proxySrv.Close()
		}
		return s.adminSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
