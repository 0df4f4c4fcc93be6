package product

import "ridefuture-be/internal/apperror"

var (
	ErrProductNotFound      = apperror.NotFound("product not found")
	ErrProductExists        = apperror.Conflict("product with this slug already exists")
	ErrProductInUse         = apperror.Conflict("product is referenced by existing orders")
	ErrGalleryImageNotFound = apperror.NotFound("gallery image not found")
	ErrAlreadyCommented     = apperror.Conflict("you have already commented on this product")
)
