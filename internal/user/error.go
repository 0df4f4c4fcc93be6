package user

import "ridefuture-be/internal/apperror"

var (
	ErrUserNotFound = apperror.NotFound("user not found")
	ErrEmailExists  = apperror.Conflict("email already registered")
	ErrInvalidCode  = apperror.Unauthorized("invalid or expired temporary password")
	ErrInactiveUser = apperror.Forbidden("user account is disabled")
)
