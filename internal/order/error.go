package order

import "ridefuture-be/internal/apperror"

var (
	ErrOrderNotFound     = apperror.NotFound("order not found")
	ErrItemNotFound      = apperror.NotFound("order item not found")
	ErrInsufficientStock = apperror.Conflict("insufficient stock to fulfil the order")
	ErrNotPending        = apperror.Conflict("order is no longer pending")
	ErrPaymentIncomplete = apperror.Conflict("payment has not been completed")
	ErrInvalidTransition = apperror.Conflict("status transition not allowed")
	ErrForbidden         = apperror.Forbidden("you do not have access to this order")
)
