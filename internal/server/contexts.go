package server

import (
	"time"

	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Templates a renderer would use for each page context.
const (
	templateIndex       = "posts/index.html"
	templateGroupList   = "posts/group_list.html"
	templateProfile     = "posts/profile.html"
	templatePostDetail  = "posts/post_detail.html"
	templateCreatePost  = "posts/create_post.html"
	templateFollow      = "posts/follow.html"
	templateLogin       = "users/login.html"
	templateSignup      = "users/signup.html"
	templateNotFound    = "core/404.html"
	templateServerError = "core/500.html"
)

// titlePostLength is how much post text goes into the detail page title.
const titlePostLength = 30

type userView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type groupView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type postView struct {
	ID        uint       `json:"id"`
	Text      string     `json:"text"`
	PubDate   time.Time  `json:"pub_date"`
	Author    userView   `json:"author"`
	Group     *groupView `json:"group,omitempty"`
	Image     string     `json:"image,omitempty"`
	Thumbnail string     `json:"thumbnail,omitempty"`
}

type commentView struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
	Author  userView  `json:"author"`
}

// formView is a bound form: submitted (or initial) values plus field errors.
type formView struct {
	Values map[string]any     `json:"values"`
	Errors models.FieldErrors `json:"errors,omitempty"`
}

func newUserView(u *models.User) userView {
	if u == nil {
		return userView{}
	}
	return userView{ID: u.ID, Username: u.Username}
}

func newGroupView(g *models.Group) *groupView {
	if g == nil {
		return nil
	}
	return &groupView{
		ID:          g.ID,
		Title:       g.Title,
		Slug:        g.Slug,
		Description: g.Description,
	}
}

func newPostView(p *models.Post) postView {
	return postView{
		ID:        p.ID,
		Text:      p.Text,
		PubDate:   p.PubDate,
		Author:    newUserView(&p.Author),
		Group:     newGroupView(p.Group),
		Image:     service.URL(p.Image),
		Thumbnail: service.URL(p.Thumbnail),
	}
}

func newCommentView(c *models.Comment) commentView {
	return commentView{
		ID:      c.ID,
		Text:    c.Text,
		Created: c.Created,
		Author:  newUserView(&c.Author),
	}
}

func newPageView(p *service.PostPage) *pagination.Page[postView] {
	return pagination.Map(p, newPostView)
}

func newGroupChoices(groups []*models.Group) []*groupView {
	out := make([]*groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupView(g))
	}
	return out
}

// render writes a page context. Every context names its template.
func render(c *fiber.Ctx, status int, template string, ctx fiber.Map) error {
	if ctx == nil {
		ctx = fiber.Map{}
	}
	ctx["template"] = template
	return c.Status(status).JSON(ctx)
}

func postTitle(p *models.Post) string {
	return "Post " + models.Truncate(p.Text, titlePostLength)
}
