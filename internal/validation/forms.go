package validation

import (
	"strings"

	"yatube/internal/models"
)

// Field names used in form error maps.
const (
	FieldText     = "text"
	FieldGroup    = "group"
	FieldImage    = "image"
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// RequiredMessage is reported for a missing mandatory field.
const RequiredMessage = "This field is required."

// CodeRequired is the short form of RequiredMessage used in query strings.
const CodeRequired = "required"

// MessageForCode expands a short error code. Unknown codes yield "".
func MessageForCode(code string) string {
	switch code {
	case CodeRequired:
		return RequiredMessage
	default:
		return ""
	}
}

// PostForm is the user-editable part of a post.
type PostForm struct {
	Text    string `json:"text" form:"text"`
	GroupID *uint  `json:"group,omitempty" form:"group"`
}

// Validate checks field-level rules. Group existence is checked by the caller.
func (f PostForm) Validate() models.FieldErrors {
	errs := models.FieldErrors{}
	if strings.TrimSpace(f.Text) == "" {
		errs.Add(FieldText, RequiredMessage)
	}
	return errs
}

// CommentForm is the body of a new comment.
type CommentForm struct {
	Text string `json:"text" form:"text"`
}

func (f CommentForm) Validate() models.FieldErrors {
	errs := models.FieldErrors{}
	if strings.TrimSpace(f.Text) == "" {
		errs.Add(FieldText, RequiredMessage)
	}
	return errs
}

// SignupForm registers a new account.
type SignupForm struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (f SignupForm) Validate() models.FieldErrors {
	errs := models.FieldErrors{}
	if err := ValidateUsername(f.Username); err != nil {
		errs.Add(FieldUsername, err.Error())
	}
	if err := ValidateEmail(f.Email); err != nil {
		errs.Add(FieldEmail, err.Error())
	}
	if err := ValidatePassword(f.Password); err != nil {
		errs.Add(FieldPassword, err.Error())
	}
	return errs
}
