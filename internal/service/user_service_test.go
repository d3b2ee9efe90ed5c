package service

import (
	"context"
	"testing"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_SignupAndAuthenticate(t *testing.T) {
	db := setupDB(t)
	svc := NewUserService(repository.NewUserRepository(db)).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	user, err := svc.Signup(ctx, validation.SignupForm{Username: "leo", Email: "leo@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "correct horse", user.Password)

	_, err = svc.Signup(ctx, validation.SignupForm{Username: "leo", Password: "another one"})
	appErr := assertValidationError(t, err)
	assert.Contains(t, appErr.Fields, validation.FieldUsername)

	_, err = svc.Signup(ctx, validation.SignupForm{Username: "bad name", Password: "1"})
	appErr = assertValidationError(t, err)
	assert.Contains(t, appErr.Fields, validation.FieldPassword)

	got, err := svc.Authenticate(ctx, "leo", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "leo", "wrong password")
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", "whatever1")
	assertCode(t, err, models.CodeUnauthorized)

	byID, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "leo", byID.Username)
}
