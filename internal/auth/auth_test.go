package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/repo"
)

type fakeUserRepo struct {
	users map[string]model.GateUser
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (model.GateUser, error) {
	for _, u := range f.users {
		if u.ID.String() == id {
			return u, nil
		}
	}
	return model.GateUser{}, repo.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (model.GateUser, error) {
	u, ok := f.users[username]
	if !ok {
		return model.GateUser{}, repo.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) CreateIfMissing(_ context.Context, username string, passwordHash []byte) error {
	if _, ok := f.users[username]; ok {
		return nil
	}
	f.users[username] = model.GateUser{ID: uuid.New(), Username: username, PasswordHash: passwordHash}
	return nil
}

func newUserRepo(t *testing.T, username, password string) (*fakeUserRepo, model.GateUser) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.GateUser{ID: uuid.New(), Username: username, PasswordHash: hash}
	return &fakeUserRepo{users: map[string]model.GateUser{username: user}}, user
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	operatorID := uuid.New()

	token, err := svc.SignOperatorToken(operatorID, "operator")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.Equal(t, "operator", claims.Username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", time.Hour).SignOperatorToken(uuid.New(), "operator")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", time.Hour).VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute)
	token, err := svc.SignOperatorToken(uuid.New(), "operator")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}

func TestLoginIssuesToken(t *testing.T) {
	users, user := newUserRepo(t, "operator", "gate1234")
	jwtSvc := NewJWTService("test-secret", time.Hour)
	svc := NewLoginService(users, jwtSvc)

	token, err := svc.Login(context.Background(), "operator", "gate1234")
	require.NoError(t, err)

	claims, err := jwtSvc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.OperatorID)
}

func TestLoginWrongPassword(t *testing.T) {
	users, _ := newUserRepo(t, "operator", "gate1234")
	svc := NewLoginService(users, NewJWTService("test-secret", time.Hour))

	_, err := svc.Login(context.Background(), "operator", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	users, _ := newUserRepo(t, "operator", "gate1234")
	svc := NewLoginService(users, NewJWTService("test-secret", time.Hour))

	_, err := svc.Login(context.Background(), "nobody", "gate1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
