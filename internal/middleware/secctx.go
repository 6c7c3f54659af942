package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/svcgw/gateway/internal/gwerror"
	"github.com/svcgw/gateway/internal/model"
)

// Header names accepted when header trust is enabled.
const (
	TenantHeader  = "X-Tenant-Id"
	SubjectHeader = "X-Subject-Id"
)

type secCtxKey struct{}

// gatewayClaims are the JWT claims the gateway cares about.
type gatewayClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// SecurityContextConfig configures caller authentication.
type SecurityContextConfig struct {
	// JWTSecret verifies HS256 bearer tokens when set.
	JWTSecret []byte

	// TrustHeaders accepts tenant and subject identity headers instead of a
	// token. Only safe behind an authenticating front proxy.
	TrustHeaders bool
}

// SecurityContext authenticates the caller and stores the resulting
// identity in the request context. Requests without a verifiable identity
// are rejected before any routing happens.
func SecurityContext(cfg SecurityContextConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sec, err := authenticate(cfg, r)
			if err != nil {
				gwerror.AsError(err).
					WithRequestID(RequestIDFromContext(r.Context())).
					WriteJSON(w)
				return
			}
			ctx := context.WithValue(r.Context(), secCtxKey{}, sec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(cfg SecurityContextConfig, r *http.Request) (model.SecurityContext, error) {
	if auth := r.Header.Get("Authorization"); len(cfg.JWTSecret) > 0 && strings.HasPrefix(auth, "Bearer ") {
		return fromToken(cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
	}
	if cfg.TrustHeaders {
		return fromHeaders(r)
	}
	return model.SecurityContext{}, gwerror.New(gwerror.KindForbidden, "caller identity is required")
}

func fromToken(secret []byte, raw string) (model.SecurityContext, error) {
	claims := &gatewayClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return model.SecurityContext{}, gwerror.Wrap(err, gwerror.KindForbidden, "invalid bearer token")
	}

	tenant, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return model.SecurityContext{}, gwerror.New(gwerror.KindForbidden, "token is missing a valid tenant_id claim")
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.SecurityContext{}, gwerror.New(gwerror.KindForbidden, "token is missing a valid sub claim")
	}
	return model.SecurityContext{Tenant: tenant, Subject: subject}, nil
}

func fromHeaders(r *http.Request) (model.SecurityContext, error) {
	tenant, err := uuid.Parse(r.Header.Get(TenantHeader))
	if err != nil {
		return model.SecurityContext{}, gwerror.Newf(gwerror.KindForbidden, "missing or invalid %s header", TenantHeader)
	}
	subject, err := uuid.Parse(r.Header.Get(SubjectHeader))
	if err != nil {
		return model.SecurityContext{}, gwerror.Newf(gwerror.KindForbidden, "missing or invalid %s header", SubjectHeader)
	}
	return model.SecurityContext{Tenant: tenant, Subject: subject}, nil
}

// SecurityContextFromContext extracts the authenticated caller identity.
func SecurityContextFromContext(ctx context.Context) (model.SecurityContext, bool) {
	sec, ok := ctx.Value(secCtxKey{}).(model.SecurityContext)
	return sec, ok
}
