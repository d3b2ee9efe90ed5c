package server

import (
	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles POST /profile/:username/follow/
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), viewer(c), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// ProfileUnfollow handles POST /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), viewer(c), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// FollowRedirect answers GET on the follow and unfollow paths. Links and
// prefetchers must not change subscriptions, so it only returns to the profile.
// Unknown authors 404 like the POST does.
func (s *Server) FollowRedirect(c *fiber.Ctx) error {
	author, err := s.followService.Author(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}
