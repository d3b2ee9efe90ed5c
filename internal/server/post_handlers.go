package server

import (
	"errors"

	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return s.NotFound(c)
	}

	detail, err := s.postService.Detail(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err)
	}

	comments := make([]commentView, 0, len(detail.Comments))
	for _, cm := range detail.Comments {
		comments = append(comments, newCommentView(cm))
	}

	// A rejected comment comes back here with its error code in the query.
	form := formView{Values: map[string]any{validation.FieldText: ""}}
	if msg := validation.MessageForCode(c.Query("comment_error")); msg != "" {
		form.Errors = models.FieldErrors{validation.FieldText: {msg}}
	}

	return render(c, fiber.StatusOK, templatePostDetail, fiber.Map{
		"title":       postTitle(detail.Post),
		"post":        newPostView(detail.Post),
		"posts_count": detail.PostsCount,
		"is_edit":     service.CanEdit(viewer(c), detail.Post),
		"comments":    comments,
		"form":        form,
	})
}

// renderPostForm writes the create/edit page with the group choices.
func (s *Server) renderPostForm(c *fiber.Ctx, form formView, extra fiber.Map) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	ctx := fiber.Map{
		"form":    form,
		"is_edit": false,
		"groups":  newGroupChoices(groups),
	}
	for k, v := range extra {
		ctx[k] = v
	}
	return render(c, fiber.StatusOK, templateCreatePost, ctx)
}

// PostCreateForm handles GET /create/
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, formView{Values: postFormValues(validation.PostForm{})}, nil)
}

// PostCreate handles POST /create/. Success redirects to the author's profile;
// invalid input re-renders the form with errors and stores nothing.
func (s *Server) PostCreate(c *fiber.Ctx) error {
	form, errs := parsePostForm(c)
	upload, err := uploadedImage(c)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		errs = mergeFieldErrors(errs, form.Validate())
		return s.renderPostForm(c, formView{Values: postFormValues(form), Errors: errs}, nil)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: viewer(c),
		Form:     form,
		Image:    upload,
	})
	if err != nil {
		fields := fieldErrors(err)
		if fields == nil {
			return s.fail(c, err)
		}
		return s.renderPostForm(c, formView{Values: postFormValues(form), Errors: fields}, nil)
	}

	return c.Redirect(profileURL(post.Author.Username), fiber.StatusFound)
}

// loadEditablePost resolves the post of an edit or delete request. ok is
// false when a response (404 or the detail redirect) was already written.
func (s *Server) loadEditablePost(c *fiber.Ctx) (post *models.Post, ok bool, err error) {
	id, valid := parseID(c, "id")
	if !valid {
		return nil, false, s.NotFound(c)
	}
	post, err = s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return nil, false, s.fail(c, err)
	}
	if !service.CanEdit(viewer(c), post) {
		return nil, false, c.Redirect(postURL(post.ID), fiber.StatusFound)
	}
	return post, true, nil
}

func (s *Server) editPageExtras(c *fiber.Ctx, post *models.Post) fiber.Map {
	return fiber.Map{
		"is_edit":      true,
		"post_id":      post.ID,
		"image":        service.URL(post.Image),
		"image_policy": s.postService.EditImagePolicy(viewer(c)),
	}
}

// PostEditForm handles GET /posts/:id/edit/. Non-authors are sent to the
// detail page without an error.
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	post, ok, err := s.loadEditablePost(c)
	if !ok {
		return err
	}
	form := validation.PostForm{Text: post.Text, GroupID: post.GroupID}
	return s.renderPostForm(c, formView{Values: postFormValues(form)}, s.editPageExtras(c, post))
}

// PostEdit handles POST /posts/:id/edit/
func (s *Server) PostEdit(c *fiber.Ctx) error {
	post, ok, err := s.loadEditablePost(c)
	if !ok {
		return err
	}

	form, errs := parsePostForm(c)
	upload, err := uploadedImage(c)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		errs = mergeFieldErrors(errs, form.Validate())
		return s.renderPostForm(c, formView{Values: postFormValues(form), Errors: errs}, s.editPageExtras(c, post))
	}

	updated, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		EditorID: viewer(c),
		PostID:   post.ID,
		Form:     form,
		Image:    upload,
	})
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(post.ID), fiber.StatusFound)
		}
		fields := fieldErrors(err)
		if fields == nil {
			return s.fail(c, err)
		}
		return s.renderPostForm(c, formView{Values: postFormValues(form), Errors: fields}, s.editPageExtras(c, post))
	}

	return c.Redirect(postURL(updated.ID), fiber.StatusFound)
}

// PostDelete handles POST /posts/:id/delete/ and returns to the author's profile.
func (s *Server) PostDelete(c *fiber.Ctx) error {
	post, ok, err := s.loadEditablePost(c)
	if !ok {
		return err
	}

	deleted, err := s.postService.DeletePost(c.UserContext(), viewer(c), post.ID)
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(post.ID), fiber.StatusFound)
		}
		return s.fail(c, err)
	}
	return c.Redirect(profileURL(deleted.Author.Username), fiber.StatusFound)
}

// fieldErrors returns the per-field errors of a validation failure, or nil.
func fieldErrors(err error) models.FieldErrors {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation || len(appErr.Fields) == 0 {
		return nil
	}
	return appErr.Fields
}
