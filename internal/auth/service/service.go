// Package service implements admin authentication: bcrypt credentials,
// short-lived JWT access tokens, and DB-backed refresh tokens.
package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"printstore_backend/internal/auth/password"
	"printstore_backend/internal/auth/repository"
	"printstore_backend/internal/auth/token"
	"printstore_backend/platform/apperr"
	"printstore_backend/platform/config"
	"printstore_backend/platform/logger"
)

const accessTokenType = "access"

// Store is the slice of the auth repository the service needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*repository.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*repository.User, error)
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// Service provides admin authentication.
type Service struct {
	store Store
	cfg   config.AuthServiceConfig
	log   *logger.Logger
}

func New(store Store, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, log: log}
}

// TokenPair is the result of a successful sign-in or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn checks credentials and issues a token pair. Credential failures
// are indistinguishable from unknown accounts.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load account", err)
	}
	if user == nil {
		s.log.AuthEvent("signin", email, false, "unknown account")
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("signin", email, false, "bad password")
		return nil, apperr.Unauthorized("invalid credentials")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.AuthEvent("signin", email, true, "")
	return pair, nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.store.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if time.Now().After(expiresAt) {
		_ = s.store.RevokeRefreshToken(ctx, hash)
		return nil, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load account", err)
	}
	if user == nil {
		_ = s.store.RevokeRefreshToken(ctx, hash)
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	if err := s.store.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to rotate refresh token", err)
	}
	return s.issueTokens(ctx, user)
}

// SignOut revokes one refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.store.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// Profile is the authenticated admin's own view.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Roles []string  `json:"roles"`
}

// Me returns the profile of the authenticated admin.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load account", err)
	}
	if user == nil {
		return nil, apperr.NotFound("account not found")
	}
	roles, err := s.store.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load roles", err)
	}
	return &Profile{ID: user.ID, Email: user.Email, Name: user.Name, Roles: roles}, nil
}

func (s *Service) issueTokens(ctx context.Context, user *repository.User) (*TokenPair, error) {
	roles, err := s.store.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load roles", err)
	}

	accessToken, err := s.signJWT(user, roles)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to sign access token", err)
	}

	refreshToken, err := token.GenerateRandomToken(48)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate refresh token", err)
	}
	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.store.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store refresh token", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) signJWT(user *repository.User, roles []string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"name":  user.Name,
		"type":  accessTokenType,
		"roles": roles,
		"exp":   now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
