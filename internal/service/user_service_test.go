package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost/internal/credential"
	"inkpost/internal/domain"
	"inkpost/internal/repository"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.userSvc.Register(ctx, "  alice ", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotContains(t, stored.PasswordHash, "secret1")
	assert.True(t, credential.Verify(stored.PasswordHash, "secret1"))

	got, err := f.userSvc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.userSvc.Register(ctx, "alice", "secret1", "")
	require.NoError(t, err)

	for name, creds := range map[string][2]string{
		"wrong password":    {"alice", "wrong"},
		"unknown user":      {"mallory", "secret1"},
		"empty password":    {"alice", ""},
		"padded password":   {"alice", " secret1 "},
		"blank username":    {"  ", "secret1"},
		"overlong username": {"abcdefghijklmnopqrstuvwxyz", "secret1"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.userSvc.Authenticate(ctx, creds[0], creds[1])
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthenticateCorruptStoredCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.userSvc.Register(ctx, "alice", "secret1", "")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdatePasswordHash(ctx, user.ID, "not-a-credential"))

	_, err = f.userSvc.Authenticate(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.userSvc.Register(ctx, "", "secret1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.userSvc.Register(ctx, "alice", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.userSvc.Register(ctx, "alice", "secret1", "")
	require.NoError(t, err)
	_, err = f.userSvc.Register(ctx, "alice", "another", "")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, err := NewUserService(UserServiceConfig{Users: f.users, RegisterSecret: "letmein", Logger: quietLogger()})
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "secret1", "nope")
	assert.ErrorIs(t, err, ErrInvalidRegistrationPassword)

	_, err = svc.Register(ctx, "alice", "secret1", "letmein")
	require.NoError(t, err)
}

func TestAuthenticateUpgradesAlgorithm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.userSvc.Register(ctx, "alice", "secret1", "")
	require.NoError(t, err)

	argon, err := credential.NewHasher(credential.AlgorithmArgon2ID)
	require.NoError(t, err)
	upgraded, err := NewUserService(UserServiceConfig{Users: f.users, Hasher: argon, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = upgraded.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	cred, err := credential.Parse(stored.PasswordHash)
	require.NoError(t, err)
	assert.Equal(t, credential.AlgorithmArgon2ID, cred.Algorithm)

	// Older verifiers still read the upgraded credential.
	_, err = f.userSvc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
}

type brokenUsers struct {
	repository.UserRepository
	err error
}

func (b brokenUsers) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, b.err
}

func TestAuthenticateStorageFailure(t *testing.T) {
	f := newFixture(t)
	broken := errors.New("disk on fire")
	svc, err := NewUserService(UserServiceConfig{Users: brokenUsers{f.users, broken}, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice", "secret1")
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
