// Package secretstore hashes and verifies the administrative passwords
// used to protect the iscsid CLI/config surface. This is distinct from
// CHAP credential storage: CHAP needs the plaintext shared secret to
// compute MD5(identifier||secret||challenge), so it is never bcrypt-hashed
// (see internal/target.StaticCredentialStore). Grounded on the teacher's
// pkg/identity/credential.go.
package secretstore

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost balances hashing time against resistance to offline attack.
const DefaultCost = 10

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt silently truncates beyond this.
)

var (
	ErrPasswordTooShort  = errors.New("secretstore: password must be at least 8 characters")
	ErrPasswordTooLong   = errors.New("secretstore: password must be at most 72 characters")
	ErrInvalidCredential = errors.New("secretstore: invalid credential")
)

// ValidatePassword checks password length bounds before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash bcrypt-hashes password at DefaultCost.
func Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash, returning
// ErrInvalidCredential on mismatch rather than bcrypt's internal error.
func Verify(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}
