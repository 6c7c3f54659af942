package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
)

// deniedReason is the only denial text callers ever see. The decision
// point's own deny reason and any evaluator error stay in the server log.
const deniedReason = "access to the requested upstream is not permitted"

// Enforcer is the policy enforcement point for proxied calls. It shapes the
// evaluation request for the invoke action and normalizes the outcome.
type Enforcer struct {
	eval   Evaluator
	logger *zap.Logger
}

// NewEnforcer creates an enforcement point backed by eval.
func NewEnforcer(eval Evaluator, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{eval: eval, logger: logger}
}

// Authorize asks the decision point whether sec may invoke the upstream.
// Evaluator failures deny: the detailed cause is logged server-side and the
// caller sees the same generic reason as a policy deny.
func (e *Enforcer) Authorize(ctx context.Context, sec model.SecurityContext, upstream *model.Upstream) (model.Decision, error) {
	req := &model.EvaluationRequest{
		Tenant:       sec.Tenant,
		Subject:      sec.Subject.String(),
		ResourceType: model.ResourceProxyTarget,
		ResourceProperties: map[string]string{
			model.PropOwnerTenantID: upstream.Tenant.String(),
		},
		Action: model.ActionInvoke,
	}

	resp, err := e.eval.Evaluate(ctx, req)
	if err != nil {
		e.logger.Error("policy evaluation failed, denying",
			zap.String("tenant_id", sec.Tenant.String()),
			zap.String("upstream_id", upstream.ID.String()),
			zap.Error(err),
		)
		return model.Decision{Allow: false, Reason: deniedReason},
			gwerror.Wrap(err, gwerror.KindForbidden, deniedReason)
	}

	if !resp.Decision {
		e.logger.Info("policy denied invoke",
			zap.String("tenant_id", sec.Tenant.String()),
			zap.String("upstream_id", upstream.ID.String()),
			zap.String("deny_reason", resp.DenyReason),
		)
		return model.Decision{Allow: false, Reason: deniedReason},
			gwerror.New(gwerror.KindForbidden, deniedReason)
	}

	return model.Decision{Allow: true, Constraints: resp.Constraints}, nil
}
