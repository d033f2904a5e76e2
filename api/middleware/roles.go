package middleware

import (
	"net/http"

	"github.com/exrstore/exr-backend/api/responses"
	"github.com/exrstore/exr-backend/pkg/enums"
	pkgerrors "github.com/exrstore/exr-backend/pkg/errors"
	"github.com/exrstore/exr-backend/pkg/logger"
)

// RequireRole gates a subtree to callers whose role carries at least the
// power of the given role.
func RequireRole(minimum enums.AccountRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := enums.ParseAccountRole(RoleFromContext(r.Context()))
			if err != nil || !role.AtLeast(minimum) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
