package middleware

import (
	"net/http"

	"github.com/wareline/wareline-backend/api/responses"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
)

// RequireWarehouseScope rejects actors whose scope resolves to nothing, such
// as staff without a home warehouse. Movement mutations always act on behalf
// of a warehouse, so an empty scope can never satisfy them.
func RequireWarehouseScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActorScope(r.Context()).Empty {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no warehouse assigned"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
