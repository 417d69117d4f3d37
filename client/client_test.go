package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/routes"
)

func newServer(t *testing.T) string {
	t.Helper()
	cfg := config.AppConfig{
		JWTSecret:          "client-secret",
		JWTExpiryHours:     1,
		BcryptCost:         4,
		DBDriver:           "sqlite",
		DatabaseURI:        fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		RateLimitPerMinute: 10000,
		AllowedOrigins:     []string{"*"},
		GinMode:            "test",
		LogLevel:           "silent",
		MaxCommentDepth:    3,
	}
	db, err := config.OpenDatabase(cfg, models.All()...)
	require.NoError(t, err)
	srv := httptest.NewServer(routes.SetupRouter(db, cfg))
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func register(t *testing.T, c *Client, username string) {
	t.Helper()
	auth := NewAuthStore(c)
	require.NoError(t, auth.Register(context.Background(), RegisterRequest{
		Email: username + "@client.test", Username: username, Password: "secret123", Name: username,
	}))
}

func TestSessionPersistsAndRestores(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session", "blog.json")

	c := New(base, NewSession(NewFileStorage(path)))
	register(t, c, "client-restore")
	require.True(t, c.Session().Authenticated())

	fresh := New(base, NewSession(NewFileStorage(path)))
	auth := NewAuthStore(fresh)
	require.NoError(t, auth.Initialize(ctx))
	state := auth.State()
	assert.True(t, state.Authenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "client-restore", state.User.Username)

	require.NoError(t, auth.Logout(ctx))
	assert.False(t, auth.State().Authenticated)
	data, err := NewFileStorage(path).Load()
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRestoreDropsRevokedToken(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	storage := NewMemoryStorage()

	c := New(base, NewSession(storage))
	register(t, c, "client-revoked")
	token := c.Session().Token()
	require.NoError(t, c.Logout(ctx))

	require.NoError(t, storage.Save(SessionData{Token: token}))
	s := NewSession(storage)
	ok, err := s.Restore(ctx, New(base, s))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Authenticated())
	data, _ := storage.Load()
	assert.Nil(t, data)
}

func TestStoresAgainstServer(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	c := New(base, nil)
	register(t, c, "client-writer")

	posts := NewPostsStore(c)
	title, content, published := "Client Post", "written through the client", true
	post, err := posts.CreatePost(ctx, PostRequest{Title: &title, Content: &content, Published: &published})
	require.NoError(t, err)
	assert.Equal(t, "client-post", post.Slug)

	require.NoError(t, posts.FetchPostBySlug(ctx, "client-post"))
	assert.EqualValues(t, 1, posts.State().Current.Views)

	err = posts.FetchPostBySlug(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "post not found", posts.State().Err)
	assert.Nil(t, posts.State().Current)
	posts.ClearError()
	assert.Empty(t, posts.State().Err)

	require.NoError(t, posts.FetchPosts(ctx, PostFilters{Published: &published}))
	assert.EqualValues(t, 1, posts.State().Pagination.Total)

	comments := NewCommentsStore(c)
	require.NoError(t, comments.FetchForPost(ctx, post.ID, 1, 10))
	root, err := comments.Add(ctx, post.ID, "top", nil)
	require.NoError(t, err)
	_, err = comments.Add(ctx, post.ID, "nested", &root.ID)
	require.NoError(t, err)

	thread := FlattenThread(comments.State().Comments)
	require.Len(t, thread, 2)
	assert.Equal(t, 1, thread[1].Depth)

	require.NoError(t, comments.Delete(ctx, root.ID))
	state := comments.State()
	require.Len(t, state.Comments, 1)
	assert.Equal(t, models.DeletedCommentContent, state.Comments[0].Content)
	require.Len(t, state.Comments[0].Replies, 1)

	require.NoError(t, comments.Delete(ctx, state.Comments[0].Replies[0].ID))
	assert.Empty(t, comments.State().Comments[0].Replies)

	tags := NewTagsStore(c)
	_, err = tags.Create(ctx, "bad!name")
	require.Error(t, err)
	assert.NotEmpty(t, tags.State().Err)

	cats := NewCategoriesStore(c)
	err = cats.Create(ctx, "Nope", "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestFetchPostBySlugKeepsLatest(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := filepath.Base(r.URL.Path)
		if slug == "slow" {
			<-release
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":0,"message":"success","data":{"id":1,"slug":%q}}`, slug)
	}))
	defer srv.Close()
	defer once.Do(func() { close(release) })

	store := NewPostsStore(New(srv.URL, nil))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- store.FetchPostBySlug(ctx, "slow") }()

	// the slow request must be in flight before the fast one starts
	require.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return store.seq == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.FetchPostBySlug(ctx, "fast"))
	once.Do(func() { close(release) })
	require.NoError(t, <-done)

	current := store.State().Current
	require.NotNil(t, current)
	assert.Equal(t, "fast", current.Slug)
	assert.False(t, store.State().Loading)
}

func TestFetchPostBySlugRejectsEmptySlug(t *testing.T) {
	store := NewPostsStore(New("http://unused.invalid", nil))
	err := store.FetchPostBySlug(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "invalid post slug", store.State().Err)
}

func TestThreadHelpers(t *testing.T) {
	list := []models.Comment{
		{ID: 1, Replies: []models.Comment{{ID: 2}}},
		{ID: 3},
	}
	list = insertReply(list, 2, models.Comment{ID: 4})
	flat := FlattenThread(list)
	ids := make([]uint, 0, len(flat))
	depths := make([]int, 0, len(flat))
	for _, item := range flat {
		ids = append(ids, item.Comment.ID)
		depths = append(depths, item.Depth)
	}
	assert.Equal(t, []uint{1, 2, 4, 3}, ids)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)

	list = removeFromThread(list, 2)
	assert.Len(t, FlattenThread(list), 2)
	assert.False(t, editThread(list, 4, func(*models.Comment) {}))
}

func TestUsersStoreProfile(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	c := New(base, nil)
	register(t, c, "client-profile")
	other := New(base, nil)
	register(t, other, "client-other")

	users := NewUsersStore(c)
	require.NoError(t, users.FetchProfile(ctx, "client-profile"))
	profile := users.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "client-profile@client.test", profile.Email)
	assert.False(t, users.State().Loading)

	name := "Renamed Writer"
	require.NoError(t, users.UpdateProfile(ctx, profile.ID, UserUpdate{Name: &name}))
	assert.Equal(t, name, users.Profile().Name)
	assert.Equal(t, name, c.Session().User().Name, "editing yourself refreshes the session")

	stranger := other.Session().User()
	require.NotNil(t, stranger)
	hijack := "Hijacked"
	err := users.UpdateProfile(ctx, stranger.ID, UserUpdate{Name: &hijack})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, name, users.Profile().Name)
	assert.Equal(t, "client-other", other.Session().User().Name)

	err = users.FetchProfile(ctx, "nobody-here")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "user not found", users.State().Err)
}

func TestFeaturedPostsAndPopularTags(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	c := New(base, nil)
	register(t, c, "client-curator")

	tags := NewTagsStore(c)
	golang, err := tags.Create(ctx, "golang")
	require.NoError(t, err)
	web, err := tags.Create(ctx, "web")
	require.NoError(t, err)

	posts := NewPostsStore(c)
	create := func(title string, published, featured bool, tagIDs ...uint) {
		content := "about " + title
		_, err := posts.CreatePost(ctx, PostRequest{
			Title: &title, Content: &content, Published: &published, Featured: &featured, TagIDs: &tagIDs,
		})
		require.NoError(t, err)
	}
	create("Featured One", true, true, golang.ID, web.ID)
	create("Plain", true, false, golang.ID)
	create("Hidden Feature", false, true)

	require.NoError(t, posts.FetchFeatured(ctx))
	state := posts.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
	require.Len(t, state.Featured, 1)
	assert.Equal(t, "Featured One", state.Featured[0].Title)

	require.NoError(t, tags.FetchPopular(ctx, 5))
	popular := tags.Popular()
	require.Len(t, popular, 2)
	assert.Equal(t, "golang", popular[0].Name)
	assert.EqualValues(t, 2, popular[0].PostsCount)
	assert.False(t, tags.State().Loading)

	require.NoError(t, posts.FetchPostBySlug(ctx, "plain"))
	require.NotNil(t, posts.State().Current)
	posts.ClearCurrent()
	assert.Nil(t, posts.State().Current)
}

func TestFetchFeaturedRecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"code":50000,"message":"internal server error"}`)
	}))
	defer srv.Close()

	posts := NewPostsStore(New(srv.URL, nil))
	require.Error(t, posts.FetchFeatured(context.Background()))
	state := posts.State()
	assert.False(t, state.Loading)
	assert.Equal(t, "internal server error", state.Err)
	assert.Empty(t, state.Featured)
}

func TestCommentsStateIsASnapshot(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	c := New(base, nil)
	register(t, c, "client-snapshot")

	title, content, published := "Snapshot", "body", true
	post, err := NewPostsStore(c).CreatePost(ctx, PostRequest{Title: &title, Content: &content, Published: &published})
	require.NoError(t, err)

	comments := NewCommentsStore(c)
	require.NoError(t, comments.FetchForPost(ctx, post.ID, 1, 10))
	root, err := comments.Add(ctx, post.ID, "root", nil)
	require.NoError(t, err)
	first, err := comments.Add(ctx, post.ID, "first", &root.ID)
	require.NoError(t, err)
	second, err := comments.Add(ctx, post.ID, "second", &root.ID)
	require.NoError(t, err)

	before := comments.State()
	require.Len(t, before.Comments, 1)
	require.Len(t, before.Comments[0].Replies, 2)

	require.NoError(t, comments.Delete(ctx, first.ID))
	require.NoError(t, comments.Update(ctx, second.ID, "EDITED"))

	replies := before.Comments[0].Replies
	assert.Equal(t, []uint{first.ID, second.ID}, []uint{replies[0].ID, replies[1].ID})
	assert.Equal(t, "second", replies[1].Content)

	after := comments.State().Comments[0].Replies
	require.Len(t, after, 1)
	assert.Equal(t, second.ID, after[0].ID)
	assert.Equal(t, "EDITED", after[0].Content)
}
