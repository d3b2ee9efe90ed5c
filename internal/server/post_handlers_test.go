package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"yatube/internal/featureflags"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPostCreate(t *testing.T) {
	s, db := newTestServer(t)
	author := createUser(t, db, "leo")
	group := createGroup(t, db, "cats")
	cookie := sessionFor(t, s, author)

	t.Run("form page", func(t *testing.T) {
		resp := do(t, s, get("/create/", cookie))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ctx := decode(t, resp)
		assert.Equal(t, templateCreatePost, ctx["template"])
		assert.Equal(t, false, ctx["is_edit"])
		assert.Len(t, ctx["groups"], 1)
	})

	t.Run("valid post with group", func(t *testing.T) {
		before := countRows(t, db, &models.Post{})
		resp := do(t, s, postForm("/create/", url.Values{
			"text":  {"Fresh text"},
			"group": {strconv.Itoa(int(group.ID))},
		}, cookie))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))
		assert.Equal(t, before+1, countRows(t, db, &models.Post{}))

		var stored models.Post
		require.NoError(t, db.Where("text = ? AND group_id = ?", "Fresh text", group.ID).First(&stored).Error)
		assert.Equal(t, author.ID, stored.AuthorID)
	})

	t.Run("valid post without group", func(t *testing.T) {
		before := countRows(t, db, &models.Post{})
		resp := do(t, s, postForm("/create/", url.Values{"text": {"No group"}}, cookie))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, before+1, countRows(t, db, &models.Post{}))
		var stored models.Post
		require.NoError(t, db.Where("text = ? AND group_id IS NULL", "No group").First(&stored).Error)
	})

	t.Run("valid post with image", func(t *testing.T) {
		before := countRows(t, db, &models.Post{})
		resp := do(t, s, postMultipart(t, "/create/", map[string]string{"text": "With picture"}, "small.png", pngBytes(t), cookie))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, before+1, countRows(t, db, &models.Post{}))

		var stored models.Post
		require.NoError(t, db.Where("text = ?", "With picture").First(&stored).Error)
		require.NotEmpty(t, stored.Image)
		assert.FileExists(t, filepath.Join(s.images.MediaDir(), filepath.FromSlash(stored.Image)))
		assert.FileExists(t, filepath.Join(s.images.MediaDir(), filepath.FromSlash(stored.Thumbnail)))
	})

	t.Run("non-image upload is rejected", func(t *testing.T) {
		before := countRows(t, db, &models.Post{})
		resp := do(t, s, postMultipart(t, "/create/", map[string]string{"text": "Fake picture"}, "small.gif", []byte("definitely not a gif"), cookie))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		ctx := decode(t, resp)
		assert.Equal(t, templateCreatePost, ctx["template"])
		form := ctx["form"].(map[string]any)
		assert.Contains(t, form["errors"], "image")
		assert.Equal(t, before, countRows(t, db, &models.Post{}))
	})

	t.Run("empty text re-renders", func(t *testing.T) {
		before := countRows(t, db, &models.Post{})
		resp := do(t, s, postForm("/create/", url.Values{"text": {"  "}}, cookie))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		form := decode(t, resp)["form"].(map[string]any)
		assert.Contains(t, form["errors"], "text")
		assert.Equal(t, before, countRows(t, db, &models.Post{}))
	})

	t.Run("unknown or malformed group", func(t *testing.T) {
		for _, raw := range []string{"999", "cats"} {
			resp := do(t, s, postForm("/create/", url.Values{"text": {"x"}, "group": {raw}}, cookie))
			require.Equal(t, http.StatusOK, resp.StatusCode, raw)
			form := decode(t, resp)["form"].(map[string]any)
			assert.Contains(t, form["errors"], "group", raw)
		}
	})

	t.Run("anonymous is sent to login", func(t *testing.T) {
		resp := do(t, s, postForm("/create/", url.Values{"text": {"sneaky"}}, nil))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/auth/login/?next=/create/", resp.Header.Get("Location"))
	})
}

func TestPostDetail(t *testing.T) {
	s, db := newTestServer(t)
	author := createUser(t, db, "leo")
	other := createUser(t, db, "mia")
	post := createPost(t, db, author, nil, "A post whose text is clearly longer than thirty characters")
	createPost(t, db, author, nil, "second")

	t.Run("anonymous", func(t *testing.T) {
		resp := do(t, s, get(postURL(post.ID), nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ctx := decode(t, resp)
		assert.Equal(t, templatePostDetail, ctx["template"])
		assert.Equal(t, "Post A post whose text is clearly l", ctx["title"])
		assert.Equal(t, float64(2), ctx["posts_count"])
		assert.Equal(t, false, ctx["is_edit"])
		assert.Empty(t, ctx["comments"])
	})

	t.Run("author sees edit affordance", func(t *testing.T) {
		ctx := decode(t, do(t, s, get(postURL(post.ID), sessionFor(t, s, author))))
		assert.Equal(t, true, ctx["is_edit"])
	})

	t.Run("other user does not", func(t *testing.T) {
		ctx := decode(t, do(t, s, get(postURL(post.ID), sessionFor(t, s, other))))
		assert.Equal(t, false, ctx["is_edit"])
	})

	t.Run("missing and malformed ids are 404", func(t *testing.T) {
		for _, path := range []string{"/posts/999/", "/posts/abc/"} {
			resp := do(t, s, get(path, nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			assert.Equal(t, templateNotFound, decode(t, resp)["template"])
		}
	})
}

func TestPostEdit(t *testing.T) {
	s, db := newTestServer(t)
	author := createUser(t, db, "leo")
	other := createUser(t, db, "mia")
	group := createGroup(t, db, "cats")
	post := createPost(t, db, author, nil, "original")
	editURL := fmt.Sprintf("/posts/%d/edit/", post.ID)

	t.Run("non-author GET is redirected to detail", func(t *testing.T) {
		resp := do(t, s, get(editURL, sessionFor(t, s, other)))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))
	})

	t.Run("anonymous GET is redirected to detail", func(t *testing.T) {
		resp := do(t, s, get(editURL, nil))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))
	})

	t.Run("non-author POST changes nothing", func(t *testing.T) {
		resp := do(t, s, postForm(editURL, url.Values{"text": {"hijacked"}}, sessionFor(t, s, other)))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		var stored models.Post
		require.NoError(t, db.First(&stored, post.ID).Error)
		assert.Equal(t, "original", stored.Text)
	})

	t.Run("author GET is prefilled", func(t *testing.T) {
		resp := do(t, s, get(editURL, sessionFor(t, s, author)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ctx := decode(t, resp)
		assert.Equal(t, templateCreatePost, ctx["template"])
		assert.Equal(t, true, ctx["is_edit"])
		assert.Equal(t, string(service.EditImageKeep), ctx["image_policy"])
		values := ctx["form"].(map[string]any)["values"].(map[string]any)
		assert.Equal(t, "original", values["text"])
	})

	t.Run("author POST updates in place", func(t *testing.T) {
		resp := do(t, s, postForm(editURL, url.Values{
			"text":  {"edited"},
			"group": {strconv.Itoa(int(group.ID))},
		}, sessionFor(t, s, author)))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))

		var stored models.Post
		require.NoError(t, db.First(&stored, post.ID).Error)
		assert.Equal(t, "edited", stored.Text)
		require.NotNil(t, stored.GroupID)
		assert.Equal(t, group.ID, *stored.GroupID)
		assert.Equal(t, int64(1), countRows(t, db, &models.Post{}))
	})

	t.Run("author POST with empty text re-renders", func(t *testing.T) {
		resp := do(t, s, postForm(editURL, url.Values{"text": {""}}, sessionFor(t, s, author)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		ctx := decode(t, resp)
		assert.Equal(t, true, ctx["is_edit"])
		assert.Contains(t, ctx["form"].(map[string]any)["errors"], "text")
	})

	t.Run("missing post is 404", func(t *testing.T) {
		resp := do(t, s, get("/posts/999/edit/", sessionFor(t, s, author)))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPostEdit_ImagePolicy(t *testing.T) {
	for _, tt := range []struct {
		name     string
		flags    string
		replaced bool
	}{
		{name: "keep", flags: "", replaced: false},
		{name: "replace", flags: service.FlagPostEditImage + "=on", replaced: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s, db := newTestServer(t)
			s.postService = service.NewPostService(
				repository.NewPostRepository(db),
				repository.NewGroupRepository(db),
				repository.NewCommentRepository(db),
				s.images,
				featureflags.NewManager(tt.flags),
			)
			author := createUser(t, db, "leo")
			post := createPost(t, db, author, nil, "text")

			resp := do(t, s, postMultipart(t, fmt.Sprintf("/posts/%d/edit/", post.ID),
				map[string]string{"text": "text"}, "new.png", pngBytes(t), sessionFor(t, s, author)))
			require.Equal(t, http.StatusFound, resp.StatusCode)

			var stored models.Post
			require.NoError(t, db.First(&stored, post.ID).Error)
			assert.Equal(t, tt.replaced, stored.Image != "")
		})
	}
}

func TestPostDelete(t *testing.T) {
	s, db := newTestServer(t)
	author := createUser(t, db, "leo")
	other := createUser(t, db, "mia")
	post := createPost(t, db, author, nil, "doomed")
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: other.ID, Text: "bye"}).Error)
	deleteURL := fmt.Sprintf("/posts/%d/delete/", post.ID)

	resp := do(t, s, postForm(deleteURL, nil, sessionFor(t, s, other)))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, postURL(post.ID), resp.Header.Get("Location"))
	assert.Equal(t, int64(1), countRows(t, db, &models.Post{}))

	resp = do(t, s, postForm(deleteURL, nil, sessionFor(t, s, author)))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))
	assert.Zero(t, countRows(t, db, &models.Post{}))
	assert.Zero(t, countRows(t, db, &models.Comment{}))
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post, columns ...string) error {
	return m.Called(ctx, post, columns).Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostRepository) Count(ctx context.Context, f repository.PostFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepository) Find(ctx context.Context, f repository.PostFilter, limit, offset int) ([]*models.Post, error) {
	args := m.Called(ctx, f, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func TestPostDetail_StoreFailure(t *testing.T) {
	s, db := newTestServer(t)
	repo := new(MockPostRepository)
	repo.On("GetByID", mock.Anything, uint(5)).Return(nil, models.NewInternalError(errors.New("connection reset")))
	s.postService = service.NewPostService(repo,
		repository.NewGroupRepository(db),
		repository.NewCommentRepository(db),
		s.images, s.featureFlags)

	resp := do(t, s, get("/posts/5/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, templateServerError, decode(t, resp)["template"])
	repo.AssertExpectations(t)
}

func TestMediaIsServed(t *testing.T) {
	s, _ := newTestServer(t)
	dir := filepath.Join(s.images.MediaDir(), service.PostImageDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t), 0o644))

	resp := do(t, s, get("/media/posts/a.png", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, s, get("/media/posts/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
