package repository

import (
	"context"

	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores follower to author subscriptions.
type FollowRepository interface {
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// Create is a no-op when the pair already exists or userID == authorID.
	Create(ctx context.Context, userID, authorID uint) error
	// Delete is a no-op when the pair does not exist.
	Delete(ctx context.Context, userID, authorID uint) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, userID, authorID uint) (_ bool, err error) {
	ctx, done := traced(ctx, "follows", "Exists")
	defer func() { done(err) }()

	var n int64
	err = r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *followRepository) Create(ctx context.Context, userID, authorID uint) (err error) {
	ctx, done := traced(ctx, "follows", "Create")
	defer func() { done(err) }()

	if userID == authorID {
		return nil
	}
	follow := models.Follow{UserID: userID, AuthorID: authorID}
	err = r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&follow).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, userID, authorID uint) (err error) {
	ctx, done := traced(ctx, "follows", "Delete")
	defer func() { done(err) }()

	err = r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
