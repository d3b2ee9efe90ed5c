package server

import (
	"log/slog"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// nonFieldErrors is the form error key for problems not tied to one field.
const nonFieldErrors = "__all__"

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, templateLogin, fiber.Map{
		"form": formView{Values: map[string]any{validation.FieldUsername: ""}},
		"next": middleware.SafeNext(c.Query("next"), ""),
	})
}

// Login handles POST /auth/login/. On success the session cookie is set and
// the browser returns to next (local paths only).
func (s *Server) Login(c *fiber.Ctx) error {
	username := c.FormValue(validation.FieldUsername)
	next := middleware.SafeNext(c.FormValue("next", c.Query("next")), "/")

	user, err := s.userService.Authenticate(c.UserContext(), username, c.FormValue(validation.FieldPassword))
	if err != nil {
		if !models.HasCode(err, models.CodeUnauthorized) {
			return err
		}
		middleware.FormRejections.WithLabelValues("login").Inc()
		errs := models.FieldErrors{}
		errs.Add(nonFieldErrors, err.Error())
		return render(c, fiber.StatusOK, templateLogin, fiber.Map{
			"form": formView{Values: map[string]any{validation.FieldUsername: username}, Errors: errs},
			"next": next,
		})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(next, fiber.StatusFound)
}

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return render(c, fiber.StatusOK, templateSignup, fiber.Map{
		"form": formView{Values: map[string]any{
			validation.FieldUsername: "",
			validation.FieldEmail:    "",
		}},
	})
}

// Signup handles POST /auth/signup/: create the account, sign in, go home.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := validation.SignupForm{
		Username: c.FormValue(validation.FieldUsername),
		Email:    c.FormValue(validation.FieldEmail),
		Password: c.FormValue(validation.FieldPassword),
	}

	user, err := s.userService.Signup(c.UserContext(), form)
	if err != nil {
		fields := fieldErrors(err)
		if fields == nil {
			return err
		}
		return render(c, fiber.StatusOK, templateSignup, fiber.Map{
			"form": formView{
				Values: map[string]any{
					validation.FieldUsername: form.Username,
					validation.FieldEmail:    form.Email,
				},
				Errors: fields,
			},
		})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// Logout handles POST /auth/logout/. The token id stays revoked until the
// token would have expired.
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.SessionClaims(c); claims != nil {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session",
				slog.String("error", err.Error()),
			)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.sessionCookie(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/", fiber.StatusFound)
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, claims, err := s.sessions.Issue(user.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.sessionCookie(),
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	middleware.Logger.InfoContext(c.UserContext(), "user logged in",
		slog.Uint64("user_id", uint64(user.ID)),
	)
	return nil
}
