// Package middleware provides the HTTP middleware chain: session auth, logging, metrics, tracing and rate limiting.
package middleware

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"yatube/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const (
	// LocalUserID holds the authenticated user's id (uint).
	LocalUserID = "userID"
	// LocalSession holds the parsed *auth.Claims of the current session.
	LocalSession = "session"
)

// sessionToken reads the token from the session cookie, falling back to a Bearer header.
func sessionToken(c *fiber.Ctx, cookieName string) string {
	if v := c.Cookies(cookieName); v != "" {
		return v
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Session resolves the viewer from the session token when one is present.
// Anonymous requests pass through untouched; a bad cookie is cleared.
func Session(sessions *auth.Sessions, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := sessionToken(c, cookieName)
		if raw == "" {
			return c.Next()
		}

		claims, err := sessions.Parse(c.UserContext(), raw)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevoked) {
				Logger.WarnContext(c.UserContext(), "session lookup failed",
					slog.String("error", err.Error()),
				)
			}
			if c.Cookies(cookieName) != "" {
				c.ClearCookie(cookieName)
			}
			return c.Next()
		}

		userID, _ := claims.UserID()
		c.Locals(LocalUserID, userID)
		c.Locals(LocalSession, claims)
		return c.Next()
	}
}

// ViewerID returns the authenticated user id, or false for anonymous requests.
func ViewerID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// SessionClaims returns the parsed session of the request, if any.
func SessionClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalSession).(*auth.Claims)
	return claims
}

// LoginRequired redirects anonymous requests to loginURL with the original
// location carried in the next parameter.
func LoginRequired(loginURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ViewerID(c); ok {
			return c.Next()
		}
		return c.Redirect(LoginRedirectURL(loginURL, c.OriginalURL()), fiber.StatusFound)
	}
}

// LoginRedirectURL builds "<loginURL>?next=<escaped next>". Slashes in next
// stay readable.
func LoginRedirectURL(loginURL, next string) string {
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a local absolute path, fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
