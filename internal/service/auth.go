// Package service contains the business logic that sits between the HTTP
// handlers and the stores
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"
	"mediband/api/internal/session"
	"mediband/api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const userIDLength = 16

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type PasswordHasher interface {
	GenerateFromPassword(p string) (string, error)
	VerifyPasswd(p, encoded string) (bool, error)
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// ClientInfo describes where a login came from, kept on the session.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type AuthResult struct {
	User    *model.User
	Session *model.Session
	Token   string
}

type Authenticator struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions *session.Manager

	// Verified against on unknown emails so both failure paths cost the same
	dummyHash string
}

func NewAuthenticator(users UserRepository, hasher PasswordHasher, sessions *session.Manager) (*Authenticator, error) {
	dummy, err := hasher.GenerateFromPassword("mediband-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher, %w", err)
	}

	return &Authenticator{
		users:     users,
		hasher:    hasher,
		sessions:  sessions,
		dummyHash: dummy,
	}, nil
}

// Register creates the account and logs it in straight away.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*AuthResult, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)

	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: fullname, email and password are required", apperr.ErrInvalidInput)
	}
	if err := validators.EmailValidator(in.Email); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	if err := validators.PasswordValidator(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	// Fast path, the unique index still decides a race
	_, err := a.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperr.ErrDuplicateEmail
	case !errors.Is(err, apperr.ErrUserNotFound):
		return nil, err
	}

	hash, err := a.hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	id, err := gonanoid.New(userIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	u := &model.User{
		ID:           id,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
	}

	if err := a.users.Create(ctx, u); err != nil {
		return nil, err
	}

	zap.L().Info("User registered", zap.String("userID", u.ID))

	return a.startSession(ctx, u, client)
}

// Login never tells an unknown email apart from a wrong password.
func (a *Authenticator) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperr.ErrInvalidInput)
	}

	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrUserNotFound) {
			return nil, err
		}

		_, _ = a.hasher.VerifyPasswd(password, a.dummyHash)
		return nil, apperr.ErrInvalidCredentials
	}

	ok, err := a.hasher.VerifyPasswd(password, u.PasswordHash)
	if err != nil {
		zap.L().Error("Stored password hash is unreadable", zap.Error(err), zap.String("userID", u.ID))
		return nil, apperr.ErrInvalidCredentials
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials
	}

	return a.startSession(ctx, u, client)
}

func (a *Authenticator) startSession(ctx context.Context, u *model.User, client ClientInfo) (*AuthResult, error) {
	token, s, err := a.sessions.Create(ctx, u.ID, client.IP, client.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStorage, err)
	}

	return &AuthResult{User: u, Session: s, Token: token}, nil
}

// Authenticate resolves a session token to its user. A session whose user
// no longer exists is destroyed.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.User, *model.Session, error) {
	s, err := a.sessions.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrInvalidToken) {
			return nil, nil, apperr.ErrUnauthenticated
		}

		return nil, nil, fmt.Errorf("%w: %w", apperr.ErrStorage, err)
	}

	u, err := a.users.FindByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			if err := a.sessions.Destroy(ctx, token); err != nil {
				zap.L().Warn("Failed to destroy orphaned session", zap.Error(err), zap.String("sessionID", s.ID))
			}
			return nil, nil, apperr.ErrUnauthenticated
		}

		return nil, nil, err
	}

	return u, s, nil
}

// Logout ends the session behind token. Logging out twice, or without a
// session, succeeds.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if err := a.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorage, err)
	}

	return nil
}
