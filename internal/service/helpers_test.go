package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"inkpost/internal/credential"
	"inkpost/internal/repository"
	"inkpost/internal/repository/sqlite"
	"inkpost/internal/session"
)

type fixture struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	readings repository.WeatherRepository
	userSvc  UserService
	postSvc  PostService
	gate     *session.Gate
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		users:    sqlite.NewUserRepository(db),
		posts:    sqlite.NewPostRepository(db),
		readings: sqlite.NewWeatherRepository(db),
	}
	require.NoError(t, sqlite.InitAll(context.Background(), f.users, f.posts, f.readings))

	hasher, err := credential.NewHasher(credential.DefaultAlgorithm)
	require.NoError(t, err)
	f.userSvc, err = NewUserService(UserServiceConfig{Users: f.users, Hasher: hasher, Logger: quietLogger()})
	require.NoError(t, err)

	f.gate = session.NewGate(f.userSvc, f.userSvc, quietLogger())
	f.postSvc = NewPostService(f.posts, f.gate, quietLogger())
	return f
}

// login registers username and returns an authenticated session state.
func (f *fixture) login(t *testing.T, username string) session.State {
	t.Helper()
	ctx := context.Background()
	_, err := f.userSvc.Register(ctx, username, "secret1", "")
	require.NoError(t, err)
	st, err := f.gate.Login(ctx, session.Anonymous, username, "secret1")
	require.NoError(t, err)
	return st
}
