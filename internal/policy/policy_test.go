package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
)

// fakeEvaluator records the last request and returns a canned response.
type fakeEvaluator struct {
	lastReq *model.EvaluationRequest
	resp    *model.EvaluationResponse
	err     error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req *model.EvaluationRequest) (*model.EvaluationResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestAuthorizeBuildsInvokeRequest(t *testing.T) {
	fake := &fakeEvaluator{resp: &model.EvaluationResponse{Decision: true}}
	e := NewEnforcer(fake, nil)

	owner := uuid.New()
	sec := model.SecurityContext{Tenant: uuid.New(), Subject: uuid.New()}
	up := &model.Upstream{ID: uuid.New(), Tenant: owner}

	d, err := e.Authorize(context.Background(), sec, up)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !d.Allow {
		t.Error("expected allow")
	}

	req := fake.lastReq
	if req.ResourceType != model.ResourceProxyTarget {
		t.Errorf("resource type = %q", req.ResourceType)
	}
	if req.Action != model.ActionInvoke {
		t.Errorf("action = %q", req.Action)
	}
	if req.Tenant != sec.Tenant || req.Subject != sec.Subject.String() {
		t.Error("caller identity not carried into evaluation request")
	}
	if got := req.ResourceProperties[model.PropOwnerTenantID]; got != owner.String() {
		t.Errorf("owner_tenant_id = %q, want %q", got, owner)
	}
}

func TestAuthorizeDenyIsForbidden(t *testing.T) {
	fake := &fakeEvaluator{resp: &model.EvaluationResponse{Decision: false, DenyReason: "tenant mismatch"}}
	e := NewEnforcer(fake, nil)

	d, err := e.Authorize(context.Background(), model.SecurityContext{}, &model.Upstream{})
	if d.Allow {
		t.Error("expected deny")
	}
	if gwerror.KindOf(err) != gwerror.KindForbidden {
		t.Errorf("error kind = %v, want forbidden", gwerror.KindOf(err))
	}
	// The engine's internal reason must not surface to callers.
	if d.Reason == "tenant mismatch" {
		t.Error("deny reason leaked to caller")
	}
}

func TestAuthorizeEvaluatorErrorFailsClosed(t *testing.T) {
	fake := &fakeEvaluator{err: errors.New("connection refused")}
	e := NewEnforcer(fake, nil)

	d, err := e.Authorize(context.Background(), model.SecurityContext{}, &model.Upstream{})
	if d.Allow {
		t.Error("evaluator failure must deny")
	}
	if gwerror.KindOf(err) != gwerror.KindForbidden {
		t.Errorf("error kind = %v, want forbidden", gwerror.KindOf(err))
	}
}

func TestAuthorizePassesConstraintsThrough(t *testing.T) {
	fake := &fakeEvaluator{resp: &model.EvaluationResponse{
		Decision:    true,
		Constraints: []string{"rate:100", "region:eu"},
	}}
	e := NewEnforcer(fake, nil)

	d, err := e.Authorize(context.Background(), model.SecurityContext{}, &model.Upstream{})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if len(d.Constraints) != 2 || d.Constraints[0] != "rate:100" {
		t.Errorf("constraints = %v", d.Constraints)
	}
}

func TestHTTPEvaluatorRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"decision":true,"constraints":["audit"]}`))
	}))
	defer srv.Close()

	e, err := NewHTTPEvaluator(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPEvaluator: %v", err)
	}
	resp, err := e.Evaluate(context.Background(), &model.EvaluationRequest{Action: model.ActionInvoke})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !resp.Decision || len(resp.Constraints) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHTTPEvaluatorNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, _ := NewHTTPEvaluator(srv.URL, time.Second)
	if _, err := e.Evaluate(context.Background(), &model.EvaluationRequest{}); err == nil {
		t.Error("expected error for 503 response")
	}
}
