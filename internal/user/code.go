package user

import (
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CodeTTL is how long an emailed login code stays valid.
const CodeTTL = 10 * time.Minute

func HashCode(code string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	return string(bytes), err
}

func CheckCodeHash(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// NormalizeEmail lowercases the address and rejects anything net/mail cannot parse.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
