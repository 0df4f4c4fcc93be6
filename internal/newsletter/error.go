package newsletter

import "ridefuture-be/internal/apperror"

var ErrAlreadySubscribed = apperror.NewValidation("email", "this email is already subscribed")
