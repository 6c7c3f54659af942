package controlplane

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
)

func newTestService() *Service {
	return New(nil)
}

func mustCreateUpstream(t *testing.T, s *Service, u model.Upstream) model.Upstream {
	t.Helper()
	created, err := s.CreateUpstream(context.Background(), u)
	if err != nil {
		t.Fatalf("CreateUpstream: %v", err)
	}
	return created
}

func TestCreateUpstreamAssignsIDAndDefaults(t *testing.T) {
	s := newTestService()
	u := mustCreateUpstream(t, s, model.Upstream{BaseURL: "https://api.example.com"})

	if u.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
	if u.Timeout != DefaultUpstreamTimeout {
		t.Errorf("Timeout = %v, want default %v", u.Timeout, DefaultUpstreamTimeout)
	}
}

func TestCreateUpstreamDuplicateIDConflicts(t *testing.T) {
	s := newTestService()
	id := uuid.New()
	mustCreateUpstream(t, s, model.Upstream{ID: id, BaseURL: "https://a.example.com"})

	_, err := s.CreateUpstream(context.Background(), model.Upstream{ID: id, BaseURL: "https://b.example.com"})
	if gwerror.KindOf(err) != gwerror.KindConflict {
		t.Errorf("duplicate create error kind = %v, want conflict", gwerror.KindOf(err))
	}
}

func TestCreateUpstreamValidation(t *testing.T) {
	s := newTestService()
	tests := []struct {
		name string
		u    model.Upstream
	}{
		{"bad url", model.Upstream{BaseURL: "not a url"}},
		{"bad scheme", model.Upstream{BaseURL: "ftp://example.com"}},
		{"bad credential ref", model.Upstream{BaseURL: "https://a.example.com", CredentialRef: "my:key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUpstream(context.Background(), tt.u)
			if gwerror.KindOf(err) != gwerror.KindInvalidRequest {
				t.Errorf("error kind = %v, want invalid_request", gwerror.KindOf(err))
			}
		})
	}
}

func TestAliasUniquePerTenant(t *testing.T) {
	s := newTestService()
	tenant := uuid.New()
	mustCreateUpstream(t, s, model.Upstream{Alias: "openai", Tenant: tenant, BaseURL: "https://a.example.com"})

	_, err := s.CreateUpstream(context.Background(), model.Upstream{Alias: "openai", Tenant: tenant, BaseURL: "https://b.example.com"})
	if gwerror.KindOf(err) != gwerror.KindConflict {
		t.Errorf("error kind = %v, want conflict", gwerror.KindOf(err))
	}

	// Same alias in another tenant is fine.
	if _, err := s.CreateUpstream(context.Background(), model.Upstream{Alias: "openai", Tenant: uuid.New(), BaseURL: "https://c.example.com"}); err != nil {
		t.Errorf("cross-tenant alias reuse should succeed: %v", err)
	}
}

func TestCreateRouteReferentialIntegrity(t *testing.T) {
	s := newTestService()
	_, err := s.CreateRoute(context.Background(), model.Route{
		UpstreamID:  uuid.New(),
		PathPattern: "/v1/models",
	})
	if gwerror.KindOf(err) != gwerror.KindInvalidReference {
		t.Errorf("error kind = %v, want invalid_reference", gwerror.KindOf(err))
	}
}

func TestDeleteUpstreamBlockedByRoutes(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	u := mustCreateUpstream(t, s, model.Upstream{BaseURL: "https://a.example.com"})

	r, err := s.CreateRoute(ctx, model.Route{UpstreamID: u.ID, PathPattern: "/v1/models"})
	if err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}

	if err := s.DeleteUpstream(ctx, u.ID); gwerror.KindOf(err) != gwerror.KindConflict {
		t.Errorf("delete referenced upstream kind = %v, want conflict", gwerror.KindOf(err))
	}

	if err := s.DeleteRoute(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRoute: %v", err)
	}
	if err := s.DeleteUpstream(ctx, u.ID); err != nil {
		t.Errorf("delete after routes removed: %v", err)
	}
}

func TestDeleteUpstreamNotFound(t *testing.T) {
	s := newTestService()
	if err := s.DeleteUpstream(context.Background(), uuid.New()); gwerror.KindOf(err) != gwerror.KindNotFound {
		t.Errorf("error kind = %v, want not_found", gwerror.KindOf(err))
	}
}

func TestCreateRouteRejectsOverlap(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	tenant := uuid.New()
	u := mustCreateUpstream(t, s, model.Upstream{BaseURL: "https://a.example.com"})

	if _, err := s.CreateRoute(ctx, model.Route{Tenant: tenant, UpstreamID: u.ID, Methods: []string{"GET"}, PathPattern: "/proxy/*"}); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}

	// Overlapping pattern, same tenant, shared method: rejected.
	_, err := s.CreateRoute(ctx, model.Route{Tenant: tenant, UpstreamID: u.ID, Methods: []string{"GET"}, PathPattern: "/proxy/items"})
	if gwerror.KindOf(err) != gwerror.KindConflict {
		t.Errorf("overlap error kind = %v, want conflict", gwerror.KindOf(err))
	}

	// Disjoint method set: allowed.
	if _, err := s.CreateRoute(ctx, model.Route{Tenant: tenant, UpstreamID: u.ID, Methods: []string{"POST"}, PathPattern: "/proxy/items"}); err != nil {
		t.Errorf("method-disjoint route should succeed: %v", err)
	}

	// Same pattern in another tenant: allowed.
	if _, err := s.CreateRoute(ctx, model.Route{Tenant: uuid.New(), UpstreamID: u.ID, Methods: []string{"GET"}, PathPattern: "/proxy/*"}); err != nil {
		t.Errorf("cross-tenant route should succeed: %v", err)
	}
}

func TestRouteMethodNormalization(t *testing.T) {
	s := newTestService()
	u := mustCreateUpstream(t, s, model.Upstream{BaseURL: "https://a.example.com"})

	r, err := s.CreateRoute(context.Background(), model.Route{UpstreamID: u.ID, Methods: []string{"get"}, PathPattern: "/v1"})
	if err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if r.Methods[0] != "GET" {
		t.Errorf("method not normalized: %q", r.Methods[0])
	}

	_, err = s.CreateRoute(context.Background(), model.Route{UpstreamID: u.ID, Methods: []string{"FETCH"}, PathPattern: "/v2"})
	if gwerror.KindOf(err) != gwerror.KindInvalidRequest {
		t.Errorf("invalid method kind = %v, want invalid_request", gwerror.KindOf(err))
	}
}

func TestUpstreamByAliasPrefersTenantOverGlobal(t *testing.T) {
	s := newTestService()
	tenant := uuid.New()
	global := mustCreateUpstream(t, s, model.Upstream{Alias: "shared", BaseURL: "https://global.example.com"})
	own := mustCreateUpstream(t, s, model.Upstream{Alias: "shared", Tenant: tenant, BaseURL: "https://own.example.com"})

	got, err := s.UpstreamByAlias(tenant, "shared")
	if err != nil {
		t.Fatalf("UpstreamByAlias: %v", err)
	}
	if got.ID != own.ID {
		t.Errorf("resolved %s, want tenant-scoped %s", got.ID, own.ID)
	}

	other, err := s.UpstreamByAlias(uuid.New(), "shared")
	if err != nil {
		t.Fatalf("UpstreamByAlias global: %v", err)
	}
	if other.ID != global.ID {
		t.Errorf("resolved %s, want global %s", other.ID, global.ID)
	}
}

func TestUpdateUpstream(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	u := mustCreateUpstream(t, s, model.Upstream{BaseURL: "https://a.example.com", Timeout: 5 * time.Second})

	u.Timeout = 10 * time.Second
	updated, err := s.UpdateUpstream(ctx, u)
	if err != nil {
		t.Fatalf("UpdateUpstream: %v", err)
	}
	if updated.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", updated.Timeout)
	}

	u.Tenant = uuid.New()
	if _, err := s.UpdateUpstream(ctx, u); gwerror.KindOf(err) != gwerror.KindInvalidRequest {
		t.Errorf("tenant change kind = %v, want invalid_request", gwerror.KindOf(err))
	}
}
