package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/parisxmas/OxiDB/OxiForms/internal/apperr"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

// CredentialVerifier checks a username and password and returns the matching
// administrator. A mismatch is reported as *apperr.AuthError.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

// StaticVerifier accepts the single administrator it was configured with.
type StaticVerifier struct {
	username string
	hash     string
}

// NewStaticVerifier builds a verifier for username. passwordHash is a bcrypt
// hash; when it is empty, password is hashed instead.
func NewStaticVerifier(username, password, passwordHash string) (*StaticVerifier, error) {
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if passwordHash == "" {
		if password == "" {
			return nil, errors.New("admin password or password hash is required")
		}
		h, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = h
	}
	return &StaticVerifier{username: username, hash: passwordHash}, nil
}

// Verify runs the bcrypt comparison even for an unknown username, so the
// response time does not reveal which half was wrong.
func (v *StaticVerifier) Verify(_ context.Context, username, password string) (*models.User, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passOK := CheckPassword(password, v.hash)
	if !userOK || !passOK {
		return nil, &apperr.AuthError{}
	}
	return &models.User{ID: v.username, Username: v.username, PasswordHash: v.hash}, nil
}
