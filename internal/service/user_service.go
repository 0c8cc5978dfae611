package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inkpost/internal/credential"
	"inkpost/internal/domain"
	"inkpost/internal/repository"
	"inkpost/internal/session"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = session.ErrInvalidCredentials
	// ErrInvalidRegistrationPassword indicates the registration secret is incorrect.
	ErrInvalidRegistrationPassword = errors.New("invalid registration password")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type UserServiceConfig struct {
	Users  repository.UserRepository
	Hasher *credential.Hasher
	// RegisterSecret gates registration when non-empty.
	RegisterSecret string
	Logger         *logrus.Logger
}

type userService struct {
	users          repository.UserRepository
	hasher         *credential.Hasher
	registerSecret string
	logger         *logrus.Logger
	// decoy is verified against when the username is unknown so both paths
	// run a digest computation.
	decoy string
}

func NewUserService(cfg UserServiceConfig) (UserService, error) {
	if cfg.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if cfg.Hasher == nil {
		hasher, err := credential.NewHasher(credential.DefaultAlgorithm)
		if err != nil {
			return nil, err
		}
		cfg.Hasher = hasher
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	decoy, err := cfg.Hasher.Hash("inkpost-decoy")
	if err != nil {
		return nil, fmt.Errorf("prepare decoy credential: %w", err)
	}
	return &userService{
		users:          cfg.Users,
		hasher:         cfg.Hasher,
		registerSecret: cfg.RegisterSecret,
		logger:         cfg.Logger,
		decoy:          decoy.String(),
	}, nil
}

func (s *userService) Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error) {
	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if s.registerSecret != "" &&
		subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	cred, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		PasswordHash: cred.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

// Authenticate returns ErrInvalidCredentials for an unknown username, a
// wrong password and an unreadable stored credential alike. Storage
// failures other than a miss are returned wrapped.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username, err := domain.NormalizeUsername(username)
	if err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			credential.Verify(s.decoy, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !credential.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	return sanitizeUser(user), nil
}

// rehash upgrades a stored credential to the configured algorithm. A failure
// is logged and the login still succeeds.
func (s *userService) rehash(ctx context.Context, user *domain.User, password string) {
	cred, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WithField("user_id", user.ID).Warnf("rehash password: %v", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, cred.String()); err != nil {
		s.logger.WithField("user_id", user.ID).Warnf("store rehashed password: %v", err)
		return
	}
	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"algorithm": cred.Algorithm,
	}).Info("password credential upgraded")
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
