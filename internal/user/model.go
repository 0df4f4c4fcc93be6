package user

import (
	"time"
)

// Name given to accounts created implicitly by a login request.
const (
	DefaultFirstName = "New"
	DefaultLastName  = "User"
)

type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	IsActive           bool      `json:"is_active"`
	IsStaff            bool      `json:"is_staff"`
	IsSuperuser        bool      `json:"-"`
	PaymentCustomerRef *string   `json:"-"`
	DateJoined         time.Time `json:"date_joined"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// LoginCode is the stored hash of a one-time code and its expiry.
type LoginCode struct {
	Hash      string
	ExpiresAt time.Time
}

type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

func (in UpdateProfileInput) HasChanges() bool {
	return in.FirstName != nil || in.LastName != nil || in.Email != nil
}
