package server

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

const homeCachePage = "index"

// homeCacheKey keys the home page by resolved page number so unrelated query
// parameters share an entry. Every value below 1 maps to the last page.
func homeCacheKey(raw string) string {
	n := pagination.ParseNumber(raw)
	if n < 1 {
		n = 0
	}
	return "/?page=" + strconv.Itoa(n)
}

// Index handles GET /. The rendered context is cached per page for
// HOME_CACHE_TTL and is not invalidated by writes.
func (s *Server) Index(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := homeCacheKey(c.Query("page"))

	body, hit, err := s.pageCache.Get(ctx, key)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "page cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	if hit {
		middleware.PageCacheRequests.WithLabelValues(homeCachePage, "hit").Inc()
		c.Set("X-Cache", "HIT")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(body)
	}
	middleware.PageCacheRequests.WithLabelValues(homeCachePage, "miss").Inc()

	page, err := s.feedService.Index(ctx, c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	body, err = json.Marshal(fiber.Map{
		"template": templateIndex,
		"title":    "Latest updates",
		"page_obj": newPageView(page),
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	if err := s.pageCache.Set(ctx, key, body, s.homeCacheTTL()); err != nil {
		middleware.Logger.WarnContext(ctx, "page cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	c.Set("X-Cache", "MISS")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.Group(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return render(c, fiber.StatusOK, templateGroupList, fiber.Map{
		"title":    "Group " + feed.Group.Title,
		"group":    newGroupView(feed.Group),
		"page_obj": newPageView(feed.Page),
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.Profile(c.UserContext(), c.Params("username"), viewer(c), c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return render(c, fiber.StatusOK, templateProfile, fiber.Map{
		"title":       "Profile of " + feed.Author.Username,
		"author":      newUserView(feed.Author),
		"posts_count": feed.PostsCount,
		"following":   feed.Following,
		"page_obj":    newPageView(feed.Page),
	})
}

// FollowIndex handles GET /follow/
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Following(c.UserContext(), viewer(c), c.Query("page"))
	if err != nil {
		return s.fail(c, err)
	}
	return render(c, fiber.StatusOK, templateFollow, fiber.Map{
		"title":    "Subscriptions",
		"page_obj": newPageView(page),
	})
}
