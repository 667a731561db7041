// Package store persists users and medical records through gorm
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u. A second user with the same email fails with
// apperr.ErrDuplicateEmail, also when two registrations race.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if err == nil {
		return nil
	}

	if isUniqueViolation(err) {
		return apperr.ErrDuplicateEmail
	}

	return fmt.Errorf("failed to create user, %w: %w", apperr.ErrStorage, err)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, "email = ?", email)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *UserStore) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User

	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to look up user, %w: %w", apperr.ErrStorage, err)
	}

	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
