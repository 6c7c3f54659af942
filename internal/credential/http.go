package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/svcgw/gateway/internal/model"
)

const defaultResolveTimeout = 5 * time.Second

// maxSecretResponse bounds the credential store response body.
const maxSecretResponse = 1 << 20

// HTTPResolver talks to a remote credential store over JSON/HTTP.
// Hierarchical resolution happens inside the store; the gateway only sees
// the final outcome. 404 means not found or inaccessible and is mapped to
// a nil secret, never to an error.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// getSecretResponse mirrors the credential store's GET response. The value
// is decoded straight into a SecretValue and never re-serialized.
type getSecretResponse struct {
	Value         string `json:"value"`
	OwnerTenantID string `json:"owner_tenant_id"`
	Sharing       string `json:"sharing"`
	IsInherited   bool   `json:"is_inherited"`
}

// NewHTTPResolver creates a resolver for the credential store at baseURL.
// A zero timeout uses the default.
func NewHTTPResolver(baseURL string, timeout time.Duration) (*HTTPResolver, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid credential store url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &HTTPResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Resolve fetches the secret for the tenant. The tenant travels in a header
// so the reference never needs URL-encoding beyond its validated charset.
func (r *HTTPResolver) Resolve(ctx context.Context, tenant model.TenantID, ref string) (*model.SecretValue, error) {
	if err := model.ValidateSecretRef(ref); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/secrets/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build secret request: %w", err)
	}
	req.Header.Set("X-Tenant-Id", tenant.String())
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credential store request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Not found or inaccessible; the store does not distinguish the
		// two to prevent enumeration.
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxSecretResponse))
		return nil, nil
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxSecretResponse))
		return nil, fmt.Errorf("credential store returned status %d", resp.StatusCode)
	}

	var body getSecretResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSecretResponse)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode secret response: %w", err)
	}
	return model.SecretFromString(body.Value), nil
}
