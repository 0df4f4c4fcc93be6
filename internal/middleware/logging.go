package middleware

import (
	"net/http"

	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/utils"
)

// LoggingMiddleware logs every HTTP request with the authenticated user id
// when AuthMiddleware ran before it.
func LoggingMiddleware(next http.Handler) http.Handler {
	return logger.LoggingMiddlewareWithUser(utils.GetUserIDFromContext)(next)
}
