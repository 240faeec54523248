package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vterekhov/recordsync/internal/server/auth"
	"github.com/vterekhov/recordsync/internal/server/config"
	"github.com/vterekhov/recordsync/internal/server/repositories/repomanager"
	"github.com/vterekhov/recordsync/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers actors and mints their bearer tokens.
type AuthService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	cfg   *config.Config
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{db: db, repos: repos, cfg: cfg}
}

// Register creates an actor and returns its ID.
func (s *AuthService) Register(ctx context.Context, name, secret string) (string, error) {
	if name == "" || secret == "" {
		return "", fmt.Errorf("%w: name and secret required", ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user, err := s.repos.Users(s.db).Create(ctx, name, hash)
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return user.ID, nil
}

// Login verifies credentials and returns the actor ID with a signed token.
func (s *AuthService) Login(ctx context.Context, name, secret string) (string, string, error) {
	user, err := s.repos.Users(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", "", ErrUnauthorized
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.Secret, []byte(secret)); err != nil {
		return "", "", ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, []byte(s.cfg.SecretKey), s.cfg.TokenValidityDuration)
	if err != nil {
		return "", "", err
	}
	return user.ID, token, nil
}
