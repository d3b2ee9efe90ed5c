package service

import (
	"context"
	"log/slog"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentialsMessage = "Please enter a correct username and password."

type UserService struct {
	userRepo repository.UserRepository
	cost     int
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Signup validates the form and stores a user with a bcrypt hash.
func (s *UserService) Signup(ctx context.Context, form validation.SignupForm) (*models.User, error) {
	errs := form.Validate()
	if len(errs) == 0 {
		taken, err := s.userRepo.ExistsByUsername(ctx, form.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add(validation.FieldUsername, "A user with that username already exists.")
		}
	}
	if len(errs) > 0 {
		middleware.FormRejections.WithLabelValues("signup").Inc()
		return nil, models.NewFieldErrors(errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks username and password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if models.IsNotFound(err) {
			// Keep timing close to the wrong-password path.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3hLwKJcPNXvYcRZGJZZNY6e"), []byte(password))
			return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
	}
	return user, nil
}
