// Package client is a Go client for the blog REST API with session handling and
// small stateful stores for UI layers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/blogd/models"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks JSON to the API. The bearer token comes from the session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL (for example http://localhost:3333/api).
// A nil session means anonymous requests only.
func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession(NewMemoryStorage())
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}

// Pagination mirrors the server's page descriptor.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"access_token"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile of the session's token holder.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// PostFilters are the listing query parameters; zero values are omitted.
type PostFilters struct {
	Search     string
	CategoryID uint
	TagID      uint
	AuthorID   uint
	Published  *bool
	Featured   *bool
	Page       int
	Limit      int
}

func (f PostFilters) values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	setUint(v, "categoryId", f.CategoryID)
	setUint(v, "tagId", f.TagID)
	setUint(v, "authorId", f.AuthorID)
	if f.Published != nil {
		v.Set("published", strconv.FormatBool(*f.Published))
	}
	if f.Featured != nil {
		v.Set("featured", strconv.FormatBool(*f.Featured))
	}
	setInt(v, "page", f.Page)
	setInt(v, "limit", f.Limit)
	return v
}

func setUint(v url.Values, key string, n uint) {
	if n != 0 {
		v.Set(key, strconv.FormatUint(uint64(n), 10))
	}
}

func setInt(v url.Values, key string, n int) {
	if n != 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

// PostPage is one page of posts.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// PostRequest is used for create (all fields sent) and update (nil fields omitted).
type PostRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	Excerpt    *string `json:"excerpt,omitempty"`
	Published  *bool   `json:"published,omitempty"`
	Featured   *bool   `json:"featured,omitempty"`
	CategoryID *uint   `json:"category_id,omitempty"`
	TagIDs     *[]uint `json:"tag_ids,omitempty"`
}

// ListPosts returns a page of posts matching f.
func (c *Client) ListPosts(ctx context.Context, f PostFilters) (*PostPage, error) {
	var out PostPage
	if err := c.do(ctx, http.MethodGet, "/posts", f.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPost fetches a post by slug; the server counts one view.
func (c *Client) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(slug), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost creates a post owned by the session user.
func (c *Client) CreatePost(ctx context.Context, req PostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost edits a post.
func (c *Client) UpdatePost(ctx context.Context, id uint, req PostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPatch, idPath("/posts", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost deletes a post.
func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, idPath("/posts", id), nil, nil, nil)
}

// ListCategories returns all categories.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategory returns one category.
func (c *Client) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodGet, idPath("/categories", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryRequest creates or updates a category; nil fields are omitted.
type CategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPost, "/categories", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCategory edits a category.
func (c *Client) UpdateCategory(ctx context.Context, id uint, req CategoryRequest) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPatch, idPath("/categories", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, idPath("/categories", id), nil, nil, nil)
}

// TagFilters are the tag listing parameters.
type TagFilters struct {
	Search    string
	SortBy    string
	SortOrder string
}

// ListTags returns tags matching f.
func (c *Client) ListTags(ctx context.Context, f TagFilters) ([]models.Tag, error) {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.SortBy != "" {
		v.Set("sortBy", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sortOrder", f.SortOrder)
	}
	var out []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PopularTags returns the most used tags.
func (c *Client) PopularTags(ctx context.Context, limit int) ([]models.Tag, error) {
	v := url.Values{}
	setInt(v, "limit", limit)
	var out []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags/popular", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTag adds a tag.
func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var out models.Tag
	if err := c.do(ctx, http.MethodPost, "/tags", nil, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTag removes a tag.
func (c *Client) DeleteTag(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, idPath("/tags", id), nil, nil, nil)
}

// CommentRequest creates a comment or reply.
type CommentRequest struct {
	Content  string `json:"content"`
	PostID   uint   `json:"post_id"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// CommentPage is one page of comments.
type CommentPage struct {
	Comments   []models.Comment `json:"comments"`
	Pagination Pagination       `json:"pagination"`
}

// CreateComment adds a top-level comment.
func (c *Client) CreateComment(ctx context.Context, req CommentRequest) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, http.MethodPost, "/comments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reply answers an existing comment.
func (c *Client) Reply(ctx context.Context, req CommentRequest) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, http.MethodPost, "/comments/reply", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostComments returns a page of a post's thread.
func (c *Client) PostComments(ctx context.Context, postID uint, page, limit int) (*CommentPage, error) {
	v := url.Values{}
	setInt(v, "page", page)
	setInt(v, "limit", limit)
	var out CommentPage
	if err := c.do(ctx, http.MethodGet, idPath("/comments/post", postID), v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComment edits a comment.
func (c *Client) UpdateComment(ctx context.Context, id uint, content string) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, http.MethodPatch, idPath("/comments", id), nil, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment reports whether the server kept the comment as a placeholder.
func (c *Client) DeleteComment(ctx context.Context, id uint) (softDeleted bool, err error) {
	var out struct {
		SoftDeleted bool `json:"soft_deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, idPath("/comments", id), nil, nil, &out); err != nil {
		return false, err
	}
	return out.SoftDeleted, nil
}

// GetUser returns a user by id.
func (c *Client) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, idPath("/users", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserByUsername returns a user by username.
func (c *Client) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/users/username/"+url.PathEscape(username), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserUpdate is a partial profile update.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// UpdateUser edits a profile.
func (c *Client) UpdateUser(ctx context.Context, id uint, req UserUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPatch, idPath("/users", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword replaces the password of user id.
func (c *Client) ChangePassword(ctx context.Context, id uint, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPost, idPath("/users", id)+"/change-password", nil, body, nil)
}
