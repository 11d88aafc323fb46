package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

// UserService reads and edits the signed-in user's profile.
type UserService interface {
	Profile(ctx context.Context) (*models.User, error)
	Update(ctx context.Context, in models.UserUpdate) (*models.User, error)
}

type userService struct {
	api API
}

func NewUserService(api API) UserService {
	return &userService{api: api}
}

func (s *userService) Profile(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.api.Get(ctx, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &u, nil
}

func (s *userService) Update(ctx context.Context, in models.UserUpdate) (*models.User, error) {
	var u models.User
	if err := s.api.Put(ctx, "/users/me", in, &u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}
