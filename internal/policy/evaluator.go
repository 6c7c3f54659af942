// Package policy enforces per-request authorization by delegating to an
// external policy decision point. The gateway holds no policy rules of its
// own; it builds the evaluation request, calls the decision point, and
// fails closed on anything other than an explicit allow.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/svcgw/gateway/internal/model"
)

const defaultEvalTimeout = 5 * time.Second

// maxEvalResponse bounds the decision point response body.
const maxEvalResponse = 1 << 20

// Evaluator is the client side of the policy decision point. An error means
// the decision point could not be reached or answered garbage; it is never
// interpreted as an allow.
type Evaluator interface {
	Evaluate(ctx context.Context, req *model.EvaluationRequest) (*model.EvaluationResponse, error)
}

// HTTPEvaluator calls a JSON-over-HTTP decision point.
type HTTPEvaluator struct {
	url    string
	client *http.Client
}

// NewHTTPEvaluator creates an evaluator posting to evalURL. A zero timeout
// uses the default.
func NewHTTPEvaluator(evalURL string, timeout time.Duration) (*HTTPEvaluator, error) {
	if _, err := url.ParseRequestURI(evalURL); err != nil {
		return nil, fmt.Errorf("invalid policy evaluator url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultEvalTimeout
	}
	return &HTTPEvaluator{
		url:    evalURL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Evaluate posts the evaluation request and decodes the decision. Any
// non-200 status is an evaluator failure, not a deny; the enforcement point
// turns it into a deny.
func (e *HTTPEvaluator) Evaluate(ctx context.Context, req *model.EvaluationRequest) (*model.EvaluationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build evaluation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("policy evaluator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxEvalResponse))
		return nil, fmt.Errorf("policy evaluator returned status %d", resp.StatusCode)
	}

	var out model.EvaluationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEvalResponse)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode evaluation response: %w", err)
	}
	return &out, nil
}
