package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint. A
// malformed id names no page, so the caller should answer 404.
func parseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// viewer returns the signed-in user id, 0 for anonymous requests.
func viewer(c *fiber.Ctx) uint {
	id, _ := middleware.ViewerID(c)
	return id
}

// NotFound renders the custom not-found page.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return render(c, fiber.StatusNotFound, templateNotFound, fiber.Map{
		"path": c.Path(),
	})
}

// fail maps a service error onto the page flow: missing things 404,
// anonymous callers go to the login page, anything else reaches ErrorHandler.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return s.NotFound(c)
	case models.CodeUnauthorized:
		return c.Redirect(middleware.LoginRedirectURL(s.loginURL(), c.OriginalURL()), fiber.StatusFound)
	default:
		return err
	}
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// parsePostForm reads the text and group fields of a post form. A group
// value that is not an id is reported as a field error straight away.
func parsePostForm(c *fiber.Ctx) (validation.PostForm, models.FieldErrors) {
	form := validation.PostForm{Text: c.FormValue("text")}
	errs := models.FieldErrors{}

	raw := strings.TrimSpace(c.FormValue("group"))
	if raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			errs.Add(validation.FieldGroup, "Select a valid choice. That choice is not one of the available choices.")
		} else {
			groupID := uint(id)
			form.GroupID = &groupID
		}
	}
	return form, errs
}

// uploadedImage returns the image part of a multipart form, or nil when
// none was sent.
func uploadedImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	fh, err := c.FormFile(validation.FieldImage)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil, nil
	}
	content, err := readFormFile(fh)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{Filename: fh.Filename, Content: content}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return content, nil
}

// postFormValues echoes a post form back to the page.
func postFormValues(form validation.PostForm) map[string]any {
	values := map[string]any{
		validation.FieldText:  form.Text,
		validation.FieldGroup: nil,
	}
	if form.GroupID != nil {
		values[validation.FieldGroup] = *form.GroupID
	}
	return values
}

func mergeFieldErrors(dst, src models.FieldErrors) models.FieldErrors {
	if dst == nil {
		dst = models.FieldErrors{}
	}
	for field, msgs := range src {
		for _, m := range msgs {
			dst.Add(field, m)
		}
	}
	return dst
}
