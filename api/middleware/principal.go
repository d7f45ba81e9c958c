package middleware

import (
	"net/http"
	"strings"

	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

const userHeader = "X-PT-User"

// Principal resolves the caller announced by the identity proxy against the
// staff directory and injects username, roles, and advisor code into the
// request context. An unknown or missing user is rejected.
func Principal(users directory.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimSpace(r.Header.Get(userHeader))
			if username == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "user identity required"))
				return
			}

			user, err := users.FindByUsername(r.Context(), username)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "unknown user"))
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), user.Username, enums.ParseRoleSet(user.UserType), user.ServiceAdvisorCode)
			if logg != nil {
				ctx = logg.WithActor(ctx, user.Username)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
