package services

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// OperatorService authenticates the single shop operator. There are no user accounts; the
// username and bcrypt hash come from configuration.
type OperatorService interface {
	Enabled() bool
	Authenticate(username, password string) error
}

type operatorService struct {
	username     string
	passwordHash []byte
}

// NewOperatorService returns a disabled service when passwordHash is empty.
func NewOperatorService(username, passwordHash string) OperatorService {
	return &operatorService{username: username, passwordHash: []byte(passwordHash)}
}

func (s *operatorService) Enabled() bool {
	return len(s.passwordHash) > 0
}

func (s *operatorService) Authenticate(username, password string) error {
	if !s.Enabled() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a hash suitable for OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
