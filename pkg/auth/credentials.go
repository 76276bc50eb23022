package auth

import (
	"crypto/subtle"
	"errors"
)

// AdminCredentials holds the single identity allowed to log in. The password is kept only as a bcrypt hash.
type AdminCredentials struct {
	email        string
	passwordHash string
}

// NewAdminCredentials hashes password once so that logins never compare plain text.
func NewAdminCredentials(email, password string) (*AdminCredentials, error) {
	if email == "" || password == "" {
		return nil, errors.New("admin email and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &AdminCredentials{email: email, passwordHash: hash}, nil
}

// Email is the configured admin identity.
func (c *AdminCredentials) Email() string {
	return c.email
}

// Verify reports whether email and password match the admin identity exactly.
func (c *AdminCredentials) Verify(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(c.email)) == 1
	passwordOK := CheckPasswordHash(password, c.passwordHash)
	return emailOK && passwordOK
}
