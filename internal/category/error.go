package category

import "ridefuture-be/internal/apperror"

var (
	ErrCategoryNotFound           = apperror.NotFound("category not found")
	ErrCategoryExists             = apperror.Conflict("category with this name or slug already exists")
	ErrCharacteristicTypeNotFound = apperror.NotFound("characteristic type not found")
)
