package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel:    "silent",
	}, models.All()...)
	require.NoError(t, err)
	return db
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewJWTManager("k", time.Hour)
	r := gin.New()
	r.GET("/me", AuthRequired(tokens), func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, "%d", id)
	})

	w := serve(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40101")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "40102")

	w = serve(r, http.MethodGet, "/me", "garbage")
	assert.Contains(t, w.Body.String(), "40105")

	good, err := tokens.GenerateToken(7, "x@y.z")
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/me", good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())

	utils.BlacklistToken(good, time.Now().Add(time.Hour))
	w = serve(r, http.MethodGet, "/me", good)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestAuthorizePolicies(t *testing.T) {
	db := testDB(t)
	tokens := utils.NewJWTManager("k", time.Hour)
	admin := models.User{Email: "a@x.io", Username: "admin", PasswordHash: "x", Role: models.RoleAdmin}
	user := models.User{Email: "u@x.io", Username: "user", PasswordHash: "x"}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&user).Error)
	adminToken, _ := tokens.GenerateToken(admin.ID, admin.Email)
	userToken, _ := tokens.GenerateToken(user.ID, user.Email)
	ghostToken, _ := tokens.GenerateToken(9999, "ghost@x.io")

	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r := gin.New()
	auth := AuthRequired(tokens)
	r.GET("/admin", auth, Authorize(db, AdminOnly()), ok)
	r.GET("/self/:id", auth, Authorize(db, Self("id")), ok)
	r.GET("/either/:id", auth, Authorize(db, SelfOrAdmin("id")), ok)
	r.GET("/member", auth, Authorize(db, Member()), ok)

	cases := []struct {
		path, token string
		want        int
	}{
		{"/admin", adminToken, http.StatusNoContent},
		{"/admin", userToken, http.StatusForbidden},
		{"/admin", ghostToken, http.StatusUnauthorized},
		{fmt.Sprintf("/self/%d", user.ID), userToken, http.StatusNoContent},
		{fmt.Sprintf("/self/%d", user.ID), adminToken, http.StatusForbidden},
		{"/self/abc", userToken, http.StatusForbidden},
		{fmt.Sprintf("/either/%d", user.ID), userToken, http.StatusNoContent},
		{fmt.Sprintf("/either/%d", user.ID), adminToken, http.StatusNoContent},
		{fmt.Sprintf("/either/%d", admin.ID), userToken, http.StatusForbidden},
		{"/member", userToken, http.StatusNoContent},
		{"/member", ghostToken, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := serve(r, http.MethodGet, tc.path, tc.token)
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })

	w := serve(r, http.MethodGet, "/", "")
	generated := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitMiddleware(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, req())
	assert.Equal(t, http.StatusTooManyRequests, req())
	assert.Zero(t, ReapLimiters(), "fresh limiters are kept")
}

func TestPageViewRecorder(t *testing.T) {
	db := testDB(t)
	r := gin.New()
	r.Use(PageViewRecorder(db, "/posts/:slug"))
	r.GET("/posts/:slug", func(c *gin.Context) {
		if c.Param("slug") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		serve(r, http.MethodGet, "/posts/hello", "")
	}
	serve(r, http.MethodGet, "/posts/missing", "")

	var views []models.PageView
	require.NoError(t, db.Find(&views).Error)
	require.Len(t, views, 1)
	assert.Equal(t, "/posts/hello", views[0].Path)
	assert.EqualValues(t, 3, views[0].Count)
}

func TestMetricsEndpoint(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", MetricsHandler())

	serve(r, http.MethodGet, "/ping", "")
	w := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `blogd_http_requests_total{method="GET",path="/ping",status="200"}`)
}
