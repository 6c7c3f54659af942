package model

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TenantID identifies a tenant. The zero value (nil UUID) is the global scope.
type TenantID = uuid.UUID

// GlobalTenant is the nil tenant ID used for globally visible configuration.
var GlobalTenant = uuid.Nil

// Upstream is a configured backend target the gateway can proxy to.
type Upstream struct {
	ID      uuid.UUID `json:"id"`
	Alias   string    `json:"alias"`
	Tenant  TenantID  `json:"tenant_id"`
	BaseURL string    `json:"base_url"`

	// Timeout bounds a single outbound call to this upstream.
	Timeout time.Duration `json:"timeout"`

	// CredentialRef names the secret injected on outbound calls.
	// Empty means the upstream requires no auth injection.
	CredentialRef string `json:"credential_ref,omitempty"`
}

// RequiresAuth reports whether outbound calls need an injected credential.
func (u *Upstream) RequiresAuth() bool {
	return u.CredentialRef != ""
}

// Route maps an inbound request pattern to an upstream, scoped to a tenant.
//
// PathPattern supports `{name}` single-segment variables and a trailing `*`
// wildcard. RewritePrefix, when set, replaces the static prefix of the
// pattern in the outbound path.
type Route struct {
	ID            uuid.UUID `json:"id"`
	Tenant        TenantID  `json:"tenant_id"`
	UpstreamID    uuid.UUID `json:"upstream_id"`
	Methods       []string  `json:"methods"`
	PathPattern   string    `json:"path_pattern"`
	RewritePrefix string    `json:"rewrite_prefix,omitempty"`
}

// AllowsMethod reports whether the route accepts the given HTTP method.
// An empty method list allows all methods.
func (r *Route) AllowsMethod(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// SecurityContext carries the authenticated caller identity established by
// the inbound auth middleware before the data plane is invoked.
type SecurityContext struct {
	Tenant  TenantID
	Subject uuid.UUID
}

// ProxyRequest is the gateway-internal envelope for one inbound request.
// It is built once per request and stays immutable after construction;
// header injection at the credential-attachment step happens on the
// outbound request, never on this envelope.
type ProxyRequest struct {
	Sec      SecurityContext
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte

	// Timeout is the caller-supplied bound, zero for none. The effective
	// deadline is min(Timeout, upstream timeout).
	Timeout time.Duration
}

// ProxyResult is the caller-facing outcome of a completed proxy pipeline.
type ProxyResult struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	Constraints []string
}
