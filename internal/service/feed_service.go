package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/repository"
)

// PostPage is one page of a post listing.
type PostPage = pagination.Page[*models.Post]

// GroupFeed is a group with one page of its posts.
type GroupFeed struct {
	Group *models.Group
	Page  *PostPage
}

// ProfileFeed is an author's page as seen by a viewer.
type ProfileFeed struct {
	Author     *models.User
	PostsCount int64
	Following  bool
	Page       *PostPage
}

// FeedService builds the paginated post listings.
type FeedService struct {
	posts   repository.PostRepository
	groups  repository.GroupRepository
	users   repository.UserRepository
	follows repository.FollowRepository
	pager   pagination.Paginator
}

func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	pager pagination.Paginator,
) *FeedService {
	return &FeedService{
		posts:   posts,
		groups:  groups,
		users:   users,
		follows: follows,
		pager:   pager,
	}
}

func (s *FeedService) page(ctx context.Context, f repository.PostFilter, rawPage string) (*PostPage, error) {
	return pagination.Fetch(ctx, s.pager, rawPage,
		func(ctx context.Context) (int64, error) {
			return s.posts.Count(ctx, f)
		},
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.posts.Find(ctx, f, limit, offset)
		},
	)
}

// Index returns every post, newest first.
func (s *FeedService) Index(ctx context.Context, rawPage string) (*PostPage, error) {
	return s.page(ctx, repository.PostFilter{}, rawPage)
}

// Group returns the posts of the group with slug.
func (s *FeedService) Group(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// Profile returns username's posts. Following is false for anonymous viewers.
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, rawPage string) (*ProfileFeed, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 {
		if following, err = s.follows.Exists(ctx, viewerID, author.ID); err != nil {
			return nil, err
		}
	}

	return &ProfileFeed{
		Author:     author,
		PostsCount: page.Count,
		Following:  following,
		Page:       page,
	}, nil
}

// Following returns posts by authors the viewer follows.
func (s *FeedService) Following(ctx context.Context, viewerID uint, rawPage string) (*PostPage, error) {
	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}
	return s.page(ctx, repository.PostFilter{FollowerID: viewerID}, rawPage)
}
