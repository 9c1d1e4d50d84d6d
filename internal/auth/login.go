package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatescan/terminal/internal/repo"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password; callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("invalid username or password")

// LoginService authenticates gate operators and issues session tokens.
type LoginService struct {
	users repo.GateUserRepo
	jwt   *JWTService
}

func NewLoginService(users repo.GateUserRepo, jwtService *JWTService) *LoginService {
	return &LoginService{users: users, jwt: jwtService}
}

// Login verifies the operator's password and returns a signed session token.
func (s *LoginService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwt.SignOperatorToken(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}
