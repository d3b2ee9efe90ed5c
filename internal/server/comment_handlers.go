package server

import (
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/. Both outcomes land on the
// post detail page; a rejected comment is stored nowhere and only its error
// code travels in the redirect.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return s.NotFound(c)
	}

	_, err := s.commentService.AddComment(c.UserContext(), service.CreateCommentInput{
		AuthorID: viewer(c),
		PostID:   id,
		Form:     validation.CommentForm{Text: c.FormValue("text")},
	})
	if err != nil {
		if models.IsValidation(err) {
			return c.Redirect(postURL(id)+"?comment_error="+validation.CodeRequired, fiber.StatusFound)
		}
		return s.fail(c, err)
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}
