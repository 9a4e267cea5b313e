// internal/service/user/user_service.go
package user

import (
	"context"
	"fmt"
	"strings"

	"rebill-service/internal/domain/user"
	xerrors "rebill-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type UserService struct {
	users  user.Repository
	logger *zap.Logger
}

func NewUserService(users user.Repository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", xerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", xerrors.ErrInvalidInput)
	}

	u := &user.User{
		Email:  email,
		Name:   strings.TrimSpace(req.Name),
		Active: true,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: email already registered", xerrors.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]user.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
