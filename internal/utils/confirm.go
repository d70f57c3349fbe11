package utils

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NewConfirmationCode generates a fresh single-use confirmation code and
// the bcrypt hash to store for it. Only the hash is ever persisted; the
// plain code exists just long enough to be mailed to the user.
func NewConfirmationCode() (code string, hash string, err error) {
	code = uuid.NewString()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(h), nil
}

// CheckConfirmationCode verifies a supplied code against the stored hash.
func CheckConfirmationCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
