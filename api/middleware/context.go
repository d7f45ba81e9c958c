package middleware

import (
	"context"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/enums"
)

type contextKey string

const (
	ctxUsername contextKey = "username"
	ctxRoles    contextKey = "roles"
	ctxAdvisor  contextKey = "advisor_code"
)

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

func RolesFromContext(ctx context.Context) enums.RoleSet {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRoles).(enums.RoleSet); ok {
		return v
	}
	return nil
}

func AdvisorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdvisor).(string); ok {
		return v
	}
	return ""
}

// ScopeFromContext assembles the ledger view scope for the current caller.
func ScopeFromContext(ctx context.Context) ledger.ViewScope {
	return ledger.ViewScope{
		Roles:       RolesFromContext(ctx),
		AdvisorCode: AdvisorFromContext(ctx),
	}
}

// WithPrincipal injects the caller's identity into the context.
func WithPrincipal(ctx context.Context, username string, roles enums.RoleSet, advisorCode string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUsername, username)
	ctx = context.WithValue(ctx, ctxRoles, roles)
	return context.WithValue(ctx, ctxAdvisor, advisorCode)
}
