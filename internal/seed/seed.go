package seed

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users int
	Posts int
	// MaxDays bounds how far back post dates are spread.
	MaxDays int
	// MaxComments is the upper bound of comments per post.
	MaxComments int
	// MaxFollows is the upper bound of authors each user follows.
	MaxFollows int
	// Clean removes existing content before seeding.
	Clean bool
	// DryRun builds everything in memory and writes nothing.
	DryRun bool
	// FastHash hashes the shared password with the minimum bcrypt cost.
	FastHash bool
	// RandomSeed makes runs reproducible; 0 picks a random seed.
	RandomSeed int64
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.MaxComments < 0 {
		o.MaxComments = 0
	}
	if o.MaxFollows < 0 {
		o.MaxFollows = 0
	}
	return o
}

// Summary counts what a run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d groups, %d users, %d posts, %d comments, %d follows",
		s.Groups, s.Users, s.Posts, s.Comments, s.Follows)
}

// Run seeds the default groups followed by random users, posts, comments and
// follows. db may be nil for a dry run.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	if db == nil && !opts.DryRun {
		return nil, fmt.Errorf("seed: database is required unless DryRun is set")
	}
	log.Printf("Seeding %d users and %d posts (dry-run=%v)", opts.Users, opts.Posts, opts.DryRun)

	if opts.Clean && !opts.DryRun {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	summary := &Summary{}

	groups := make([]*models.Group, 0, len(DefaultGroups))
	for _, fixture := range DefaultGroups {
		g, err := f.CreateGroup(ctx, fixture)
		if err != nil {
			return nil, fmt.Errorf("failed to create group %q: %w", fixture.Slug, err)
		}
		groups = append(groups, g)
	}
	summary.Groups = len(groups)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		var group *models.Group
		// Roughly a third of posts stay ungrouped.
		if f.faker.Number(1, 3) > 1 {
			group = groups[f.faker.Number(0, len(groups)-1)]
		}
		posts = append(posts, f.BuildPost(f.pickUser(users), group))
	}
	if err := f.CreatePosts(ctx, posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, p := range posts {
		for n := f.faker.Number(0, opts.MaxComments); n > 0; n-- {
			if _, err := f.CreateComment(ctx, f.pickUser(users), p); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			summary.Comments++
		}
	}

	if len(users) > 1 {
		for _, u := range users {
			seen := map[uint]bool{u.ID: true}
			for n := f.faker.Number(0, opts.MaxFollows); n > 0; n-- {
				author := f.pickUser(users)
				if seen[author.ID] {
					continue
				}
				seen[author.ID] = true
				if err := f.CreateFollow(ctx, u, author); err != nil {
					return nil, fmt.Errorf("failed to create follow: %w", err)
				}
				summary.Follows++
			}
		}
	}

	log.Printf("Seeding completed: %s", summary)
	return summary, nil
}

func (f *Factory) pickUser(users []*models.User) *models.User {
	return users[f.faker.Number(0, len(users)-1)]
}

// Clean deletes all users, groups and their content.
func Clean(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
