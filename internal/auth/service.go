package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the user persistence consumed by the service; *Repo is the
// postgres implementation.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
}

// TokenIssuer is satisfied by *TokenStore.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	Users      UserStore
	Tokens     TokenIssuer
	Log        *zap.Logger
	BcryptCost int
}

func (s *Service) Register(ctx context.Context, name, email, password string) (User, string, error) {
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return User{}, "", err
	}

	user, err := s.Users.CreateUser(ctx, name, email, string(hash))
	if err != nil {
		return User{}, "", err
	}
	s.Log.Info("user registered", zap.String("user_id", user.ID))

	token, err := s.Tokens.Issue(ctx, user.ID)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(ctx, user.ID)
	if err != nil {
		return "", err
	}
	s.Log.Info("user logged in", zap.String("user_id", user.ID))
	return token, nil
}

func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	return s.Users.FindByID(ctx, userID)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.Tokens.Revoke(ctx, token)
}
