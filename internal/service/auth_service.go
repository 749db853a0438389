package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"strategyhub/internal/auth"
	"strategyhub/internal/models"
	"strategyhub/internal/repository"
)

const maxUsernameLen = 20

// bcrypt only hashes the first 72 bytes and refuses longer input.
const maxPasswordLen = 72

type AuthService struct {
	Repo       repository.UserRepository
	JWT        auth.JWT
	BcryptCost int
	Logger     *zap.Logger
}

func (s *AuthService) Register(ctx context.Context, username, password string) (auth.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return auth.TokenPair{}, ErrMissingCredentials
	}
	if len(username) > maxUsernameLen {
		return auth.TokenPair{}, ErrUsernameTooLong
	}
	if len(password) > maxPasswordLen {
		return auth.TokenPair{}, ErrPasswordTooLong
	}
	existing, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if existing != nil {
		return auth.TokenPair{}, ErrUsernameTaken
	}
	hash, err := auth.HashPassword(password, s.BcryptCost)
	if err != nil {
		return auth.TokenPair{}, err
	}
	user := &models.User{Username: username, Password: hash, IsActive: true}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return auth.TokenPair{}, ErrUsernameTaken
		}
		return auth.TokenPair{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", zap.Uint64("user_id", user.ID), zap.String("username", user.Username))
	}
	return s.JWT.Issue(user.ID, user.Username)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (auth.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return auth.TokenPair{}, ErrMissingCredentials
	}
	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return auth.TokenPair{}, ErrInactiveUser
	}
	return s.JWT.Issue(user.ID, user.Username)
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.JWT.VerifyType(strings.TrimSpace(refreshToken), auth.TokenTypeRefresh)
	if err != nil {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if user == nil || user.Username != claims.Subject {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return auth.TokenPair{}, ErrInactiveUser
	}
	return s.JWT.Issue(user.ID, user.Username)
}

func (s *AuthService) Me(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
