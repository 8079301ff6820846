// internal/services/user_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cardswap/cardswap-backend/internal/models"
	"github.com/cardswap/cardswap-backend/internal/store"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// UserService keeps the local profile of accounts issued by the auth service.
type UserService struct {
	store store.Store
}

type UpdateUserProfileRequest struct {
	Username    string `json:"username,omitempty" validate:"omitempty,username"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	PushEnabled *bool  `json:"push_enabled,omitempty"`
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// EnsureUser returns the profile for a token subject, creating it on first sight.
func (s *UserService) EnsureUser(ctx context.Context, userID uuid.UUID, username string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, upstream("load user", err)
	}

	if username == "" {
		username = userID.String()
	}
	user = &models.User{
		BaseModel:         models.BaseModel{ID: userID},
		Username:          username,
		DefaultPercentage: hundredPercent,
		PushEnabled:       true,
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, upstream("create user", err)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, upstream("load user", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.EnsureUser(ctx, userID, req.Username)
	if err != nil {
		return nil, err
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.PushEnabled != nil {
		user.PushEnabled = *req.PushEnabled
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, upstream("update profile", err)
	}
	return user, nil
}
