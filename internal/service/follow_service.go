package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/repository"
)

type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Author resolves the profile a follow link points at.
func (s *FollowService) Author(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// Follow subscribes the user to username. Following yourself or an author
// already followed changes nothing.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	if err := s.follows.Create(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}

// Unfollow removes the subscription if it exists.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	if err := s.follows.Delete(ctx, userID, author.ID); err != nil {
		return nil, err
	}
	return author, nil
}
