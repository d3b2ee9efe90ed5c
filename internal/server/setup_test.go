package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		DBDriver:             "sqlite",
		JWTSecret:            testSecret,
		SessionCookie:        "yatube_session",
		LoginURL:             "/auth/login/",
		MediaDir:             t.TempDir(),
		ImageMaxUploadSizeMB: 5,
		HomeCacheTTL:         20 * time.Minute,
		PageSize:             10,
	}
}

// newTestServer builds a Server on a fresh in-memory SQLite database with
// the in-memory page cache.
func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, rdb *redis.Client) (*Server, *gorm.DB) {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(t), rdb)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, rdb *redis.Client) (*Server, *gorm.DB) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.SQLiteDB(t)

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	s.userService.WithHashCost(bcrypt.MinCost)
	return s, db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Password: string(hash)}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createGroup(t *testing.T, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(t, db.Create(g).Error)
	return g
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Omit("Author", "Group").Create(p).Error)
	return p
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// sessionFor returns a valid session cookie for user.
func sessionFor(t *testing.T, s *Server, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := s.sessions.Issue(user.ID)
	require.NoError(t, err)
	return &http.Cookie{Name: s.sessionCookie(), Value: token}
}

func get(path string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func postForm(path string, values url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func postMultipart(t *testing.T, path string, values map[string]string, filename string, content []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func do(t *testing.T, s *Server, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, resp), &out))
	return out
}

func pageItems(t *testing.T, ctx map[string]any) []any {
	t.Helper()
	pageObj, ok := ctx["page_obj"].(map[string]any)
	require.True(t, ok, "page_obj missing from %v", ctx)
	items, ok := pageObj["items"].([]any)
	require.True(t, ok)
	return items
}

