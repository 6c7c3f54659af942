package model

// Resource type and action names for policy evaluation of proxied calls.
const (
	// ResourceProxyTarget identifies a proxied upstream target.
	ResourceProxyTarget = "gateway.proxy.target"

	// ActionInvoke is the action name for proxying a request to an upstream.
	ActionInvoke = "invoke"

	// PropOwnerTenantID is the resource property carrying the owning tenant
	// of the proxy target.
	PropOwnerTenantID = "owner_tenant_id"
)

// EvaluationRequest is the input to the external policy decision point.
type EvaluationRequest struct {
	Tenant             TenantID          `json:"tenant_id"`
	Subject            string            `json:"subject"`
	ResourceType       string            `json:"resource_type"`
	ResourceProperties map[string]string `json:"resource_properties,omitempty"`
	Action             string            `json:"action"`
}

// EvaluationResponse is the raw decision returned by the policy decision point.
// Constraints are opaque to the gateway and passed through for downstream
// enforcement. Absence of an explicit allow is a deny.
type EvaluationResponse struct {
	Decision    bool     `json:"decision"`
	Constraints []string `json:"constraints,omitempty"`
	DenyReason  string   `json:"deny_reason,omitempty"`
}

// Decision is the normalized output of the policy enforcement point.
type Decision struct {
	Allow       bool
	Constraints []string

	// Reason is a caller-safe denial message. It never carries the policy
	// engine's internal error text.
	Reason string
}
