package utils

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserStaffKey contextKey = "is_staff"
)
