package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/usermgmt/usersvc/internal/events"
	"github.com/usermgmt/usersvc/internal/password"
	"github.com/usermgmt/usersvc/internal/store"
	"github.com/usermgmt/usersvc/types"
)

// ErrInvalidCredentials is returned by VerifyLogin for an unknown email and for
// a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) error
	Delete(ctx context.Context, id int64) error
	SearchByName(ctx context.Context, substr string) ([]types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo    UserRepository
	hasher  *password.Hasher
	emitter *events.Emitter
	logger  zerolog.Logger

	// dummyHash is compared against when the email is unknown so both login
	// failure paths spend the same bcrypt work.
	dummyHash string
}

func NewUserService(repo UserRepository, hasher *password.Hasher, emitter *events.Emitter, logger zerolog.Logger) (*UserService, error) {
	if emitter == nil {
		emitter = events.NewEmitter(nil, "", logger)
	}
	dummy, err := hasher.Hash("usersvc-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &UserService{
		repo:      repo,
		hasher:    hasher,
		emitter:   emitter,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	return user.Public(), nil
}

func (s *UserService) Search(ctx context.Context, name string) ([]types.User, error) {
	return s.repo.SearchByName(ctx, name)
}

// Create hashes password and stores a new user.
func (s *UserService) Create(ctx context.Context, name, email, plaintext string) (types.User, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return types.User{}, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	s.emitter.Emit(ctx, events.UserCreated, user.ID, user.Name, user.Email)
	return user.Public(), nil
}

// Update changes name and email. The password hash cannot be changed here.
func (s *UserService) Update(ctx context.Context, id int64, name, email string) (types.User, error) {
	user := types.User{ID: id, Name: name, Email: email}
	if err := s.repo.Update(ctx, user); err != nil {
		return types.User{}, err
	}

	s.logger.Info().Int64("user_id", id).Msg("user updated")
	s.emitter.Emit(ctx, events.UserUpdated, id, name, email)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	s.emitter.Emit(ctx, events.UserDeleted, id, "", "")
	return nil
}

// VerifyLogin returns the full user record when email and password match.
// Storage faults are returned as-is; every other failure is ErrInvalidCredentials.
func (s *UserService) VerifyLogin(ctx context.Context, email, plaintext string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.hasher.Verify(plaintext, s.dummyHash)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}
