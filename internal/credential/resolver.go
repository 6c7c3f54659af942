// Package credential consumes the external credential store capability.
// The gateway never stores secrets itself; it resolves them per request and
// discards them as soon as the outbound call completes.
package credential

import (
	"context"
	"sync"

	"github.com/svcgw/gateway/internal/model"
)

// Resolver maps a tenant and credential reference to a secret value,
// resolving hierarchically across the tenant ancestry chain. A nil value
// with a nil error means no credential exists anywhere in the chain; that
// is a normal outcome, not a failure of the resolver.
type Resolver interface {
	Resolve(ctx context.Context, tenant model.TenantID, ref string) (*model.SecretValue, error)
}

// MemoryResolver is an in-memory hierarchical resolver used for tests and
// for credentials seeded from static configuration.
type MemoryResolver struct {
	mu      sync.RWMutex
	secrets map[model.TenantID]map[string][]byte
	parents map[model.TenantID]model.TenantID
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		secrets: make(map[model.TenantID]map[string][]byte),
		parents: make(map[model.TenantID]model.TenantID),
	}
}

// Put stores a secret for a tenant.
func (m *MemoryResolver) Put(tenant model.TenantID, ref string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.secrets[tenant]
	if !ok {
		t = make(map[string][]byte)
		m.secrets[tenant] = t
	}
	t[ref] = value
}

// Delete removes a tenant's own secret.
func (m *MemoryResolver) Delete(tenant model.TenantID, ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.secrets[tenant]; ok {
		delete(t, ref)
	}
}

// SetParent links a tenant to its ancestor for hierarchical resolution.
func (m *MemoryResolver) SetParent(tenant, parent model.TenantID) {
	m.mu.Lock()
	m.parents[tenant] = parent
	m.mu.Unlock()
}

// Resolve walks the tenant ancestry chain from the tenant upward and
// returns the first matching secret. Each call returns a fresh copy so the
// caller can zero it without affecting the stored value.
func (m *MemoryResolver) Resolve(ctx context.Context, tenant model.TenantID, ref string) (*model.SecretValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[model.TenantID]bool)
	for cur := tenant; !seen[cur]; {
		seen[cur] = true
		if t, ok := m.secrets[cur]; ok {
			if v, ok := t[ref]; ok {
				cp := make([]byte, len(v))
				copy(cp, v)
				return model.NewSecretValue(cp), nil
			}
		}
		parent, ok := m.parents[cur]
		if !ok {
			break
		}
		cur = parent
	}
	return nil, nil
}
