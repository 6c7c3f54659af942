// Package dispatch performs the single outbound HTTP call to an upstream.
// It makes exactly one attempt per request; retries would duplicate
// non-idempotent calls, so failure classification is left to the caller.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// maxResponseBody bounds how much of an upstream response is buffered.
const maxResponseBody = 32 << 20

// OutboundRequest is a fully prepared upstream call: the URL is final and
// the headers already carry any injected credential.
type OutboundRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Timeout bounds this single attempt. It composes with any deadline
	// already on the context; the earlier of the two wins.
	Timeout time.Duration
}

// OutboundResponse is the upstream's answer, buffered and returned verbatim.
// Upstream error statuses are data, not dispatch failures.
type OutboundResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Dispatcher sends one prepared request to an upstream.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *OutboundRequest) (*OutboundResponse, error)
}

// HTTPDispatcher dispatches over a shared tuned transport.
type HTTPDispatcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPDispatcher creates a dispatcher. A nil transport uses the default
// transport config.
func NewHTTPDispatcher(transport http.RoundTripper, logger *zap.Logger) *HTTPDispatcher {
	if transport == nil {
		transport = NewTransport(DefaultTransportConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDispatcher{
		client: &http.Client{
			Transport: transport,
			// Redirects from the upstream go back to the caller untouched.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Dispatch performs the single attempt. A context deadline hit maps to
// context.DeadlineExceeded so the caller can classify it as a timeout;
// every other transport failure surfaces as an unreachable upstream.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req *OutboundRequest) (*OutboundResponse, error) {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, fmt.Errorf("invalid outbound url: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build outbound request: %w", err)
	}
	for k, vv := range req.Header {
		httpReq.Header[k] = vv
	}

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("upstream call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	d.logger.Debug("upstream dispatched",
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return &OutboundResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}
