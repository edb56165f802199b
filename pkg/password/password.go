package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost matching the registration hashes already in the table.
const hashCost = 10

// Hash returns a salted bcrypt hash of the plaintext password. bcrypt embeds
// a fresh random salt per call, so two hashes of the same password differ.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password: empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash. A mismatch is a
// normal false result; only a malformed stored hash yields an error.
func Verify(plain, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
