package middleware

import (
	"net/http"

	"ridefuture-be/internal/auth"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware attaches the caller's identity when an access token is
// present. Anonymous requests pass through; a bad token is rejected.
func AuthMiddleware(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.FromRequest(r)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("rejected access token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims != nil {
				ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.IsStaff)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "authentication credentials were not provided", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsStaffFromContext(r.Context()) {
			utils.WriteJSONError(w, "you do not have permission to perform this action", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}
