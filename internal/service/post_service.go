package service

import (
	"context"
	"log/slog"
	"strings"

	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// FlagPostEditImage lets an edit replace the post image instead of keeping it.
const FlagPostEditImage = "post_edit_image"

// EditImagePolicy decides what an edit does with an uploaded image.
type EditImagePolicy string

const (
	EditImageKeep    EditImagePolicy = "keep"
	EditImageReplace EditImagePolicy = "replace"
)

const invalidGroupMessage = "Select a valid choice. That choice is not one of the available choices."

type PostService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	comments repository.CommentRepository
	images   *ImageService
	flags    *featureflags.Manager
}

// PostDetail is a post with its comments and its author's post count.
type PostDetail struct {
	Post       *models.Post
	PostsCount int64
	Comments   []*models.Comment
}

type CreatePostInput struct {
	AuthorID uint
	Form     validation.PostForm
	Image    *ImageUpload
}

type UpdatePostInput struct {
	EditorID uint
	PostID   uint
	Form     validation.PostForm
	Image    *ImageUpload
}

func NewPostService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	comments repository.CommentRepository,
	images *ImageService,
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		posts:    posts,
		groups:   groups,
		comments: comments,
		images:   images,
		flags:    flags,
	}
}

// EditImagePolicy returns the image policy in effect for editor.
func (s *PostService) EditImagePolicy(editorID uint) EditImagePolicy {
	if s.flags != nil && s.flags.Enabled(FlagPostEditImage, editorID) {
		return EditImageReplace
	}
	return EditImageKeep
}

// CanEdit reports whether viewer may edit or delete post.
func CanEdit(viewerID uint, post *models.Post) bool {
	return viewerID != 0 && post != nil && post.AuthorID == viewerID
}

// Groups lists the choices offered by the post form.
func (s *PostService) Groups(ctx context.Context) ([]*models.Group, error) {
	return s.groups.List(ctx)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Detail loads a post, its comments in order and the author's post count.
func (s *PostService) Detail(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.posts.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: post, PostsCount: count, Comments: comments}, nil
}

// validateForm runs field rules and checks the chosen group exists.
func (s *PostService) validateForm(ctx context.Context, form validation.PostForm) (models.FieldErrors, error) {
	errs := form.Validate()
	if form.GroupID != nil {
		if _, err := s.groups.GetByID(ctx, *form.GroupID); err != nil {
			if !models.IsNotFound(err) {
				return nil, err
			}
			errs.Add(validation.FieldGroup, invalidGroupMessage)
		}
	}
	return errs, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Login required")
	}

	errs, err := s.validateForm(ctx, in.Form)
	if err != nil {
		return nil, err
	}

	var stored *StoredImage
	if in.Image != nil {
		img, imgErrs := s.images.Validate(in.Image)
		for field, msgs := range imgErrs {
			for _, m := range msgs {
				errs.Add(field, m)
			}
		}
		if len(errs) == 0 {
			if stored, err = s.images.Store(ctx, in.Image, img); err != nil {
				return nil, err
			}
		}
	}
	if len(errs) > 0 {
		middleware.FormRejections.WithLabelValues("post").Inc()
		return nil, models.NewFieldErrors(errs)
	}

	post := &models.Post{
		Text:     strings.TrimSpace(in.Form.Text),
		AuthorID: in.AuthorID,
		GroupID:  in.Form.GroupID,
	}
	if stored != nil {
		post.Image = stored.Path
		post.Thumbnail = stored.Thumbnail
	}
	if err := s.posts.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.Path, stored.Thumbnail)
		}
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "post created",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("author_id", uint64(post.AuthorID)),
	)
	return s.posts.GetByID(ctx, post.ID)
}

// UpdatePost changes text and group. The image is replaced only when an
// upload is given and post_edit_image is enabled for the editor.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(in.EditorID, post) {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}

	errs, err := s.validateForm(ctx, in.Form)
	if err != nil {
		return nil, err
	}

	replace := in.Image != nil && s.EditImagePolicy(in.EditorID) == EditImageReplace
	var stored *StoredImage
	if replace {
		img, imgErrs := s.images.Validate(in.Image)
		for field, msgs := range imgErrs {
			for _, m := range msgs {
				errs.Add(field, m)
			}
		}
		if len(errs) == 0 {
			if stored, err = s.images.Store(ctx, in.Image, img); err != nil {
				return nil, err
			}
		}
	}
	if len(errs) > 0 {
		middleware.FormRejections.WithLabelValues("post").Inc()
		return nil, models.NewFieldErrors(errs)
	}

	oldImage, oldThumb := post.Image, post.Thumbnail
	post.Text = strings.TrimSpace(in.Form.Text)
	post.GroupID = in.Form.GroupID
	columns := []string{"text", "group_id"}
	if stored != nil {
		post.Image = stored.Path
		post.Thumbnail = stored.Thumbnail
		columns = append(columns, "image", "thumbnail")
	}

	if err := s.posts.Update(ctx, post, columns...); err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.Path, stored.Thumbnail)
		}
		return nil, err
	}
	if stored != nil {
		s.images.Remove(ctx, oldImage, oldThumb)
	}
	return s.posts.GetByID(ctx, post.ID)
}

// DeletePost removes a post with its comments and media. Returns the deleted post.
func (s *PostService) DeletePost(ctx context.Context, editorID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(editorID, post) {
		return nil, models.NewForbiddenError("Only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return nil, err
	}
	s.images.Remove(ctx, post.Image, post.Thumbnail)

	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.Uint64("author_id", uint64(post.AuthorID)),
	)
	return post, nil
}
