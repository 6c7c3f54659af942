package credential

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHTTPResolverFetchesSecret(t *testing.T) {
	tenant := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/secrets/openai-key" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Tenant-Id"); got != tenant.String() {
			t.Errorf("X-Tenant-Id = %q, want %q", got, tenant)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":"sk-test","owner_tenant_id":"` + tenant.String() + `","sharing":"subtree","is_inherited":false}`))
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewHTTPResolver: %v", err)
	}
	v, err := r.Resolve(context.Background(), tenant, "openai-key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v == nil || string(v.Bytes()) != "sk-test" {
		t.Errorf("unexpected secret %v", v)
	}
}

func TestHTTPResolverNotFoundMapsToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r, _ := NewHTTPResolver(srv.URL, time.Second)
	v, err := r.Resolve(context.Background(), uuid.New(), "missing")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil secret for 404, got %v", v)
	}
}

func TestHTTPResolverServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, _ := NewHTTPResolver(srv.URL, time.Second)
	if _, err := r.Resolve(context.Background(), uuid.New(), "some-key"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestHTTPResolverRejectsInvalidRef(t *testing.T) {
	r, _ := NewHTTPResolver("http://credstore.internal", time.Second)
	if _, err := r.Resolve(context.Background(), uuid.New(), "bad:ref"); err == nil {
		t.Error("expected error for invalid ref")
	}
}

func TestNewHTTPResolverRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPResolver("not a url", 0); err == nil {
		t.Error("expected error for invalid base URL")
	}
}
