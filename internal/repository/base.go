// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/observability"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the AppError taxonomy.
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// traced starts a repository span and returns the context plus a finisher.
func traced(ctx context.Context, table, method string) (context.Context, func(error)) {
	ctx, span := observability.StartRepositorySpan(ctx, table, method)
	return ctx, func(err error) {
		if models.IsNotFound(err) {
			err = nil
		}
		observability.EndSpan(span, err)
	}
}
