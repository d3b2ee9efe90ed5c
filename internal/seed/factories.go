// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded user can log in with.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db      *gorm.DB
	opts    Options
	faker   *gofakeit.Faker
	follows repository.FollowRepository
	groups  repository.GroupRepository

	// password hash shared by all seeded users
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to db. db may be nil when
// opts.DryRun is set.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	f := &Factory{
		db:     db,
		opts:   opts.withDefaults(),
		faker:  gofakeit.New(opts.RandomSeed),
		nextID: 1000,
	}
	if db != nil {
		f.follows = repository.NewFollowRepository(db)
		f.groups = repository.NewGroupRepository(db)
	}
	return f
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

func (f *Factory) dryRunID() uint {
	f.nextID++
	return f.nextID
}

// CreateUser constructs and persists a user whose password is DefaultPassword.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 99999)),
		Email:    f.faker.Email(),
		Password: hash,
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.dryRunID()
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGroup upserts a group by slug.
func (f *Factory) CreateGroup(ctx context.Context, g GroupFixture) (*models.Group, error) {
	group := g.Model()
	if f.opts.DryRun {
		group.ID = f.dryRunID()
		log.Printf("[dry-run] CreateGroup: %s", group.Slug)
		return group, nil
	}
	if err := f.groups.Upsert(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// BuildPost constructs a post by author without persisting it. PubDate is
// spread over the last MaxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	post := &models.Post{
		Text:     f.faker.Paragraph(1, f.faker.Number(1, 5), 12, " "),
		PubDate:  time.Now().Add(-back),
		AuthorID: author.ID,
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePosts persists posts in a single batch insert.
func (f *Factory) CreatePosts(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.dryRunID()
		}
		log.Printf("[dry-run] CreatePosts: %d posts", len(posts))
		return nil
	}
	return f.db.WithContext(ctx).Omit("Author", "Group").CreateInBatches(posts, 100).Error
}

// CreateComment constructs and persists a comment by author on post.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     f.faker.Sentence(f.faker.Number(3, 15)),
	}
	if !post.PubDate.IsZero() {
		// A comment never predates its post.
		comment.Created = post.PubDate.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute)
		if comment.Created.After(time.Now()) {
			comment.Created = time.Now()
		}
	}
	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		comment.ID = f.dryRunID()
		return comment, nil
	}
	if err := f.db.WithContext(ctx).Omit("Author", "Post").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow makes user follow author. Self-follows and duplicates are ignored.
func (f *Factory) CreateFollow(ctx context.Context, user, author *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	return f.follows.Create(ctx, user.ID, author.ID)
}
