package middleware

import (
	"net/http"

	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// RequireAnyRole gates a route to callers carrying at least one of the
// listed roles.
func RequireAnyRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RolesFromContext(r.Context()).HasAny(roles...) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
