package client

import (
	"context"
	"sync"

	"github.com/cppla/blogd/models"
)

// Status is the loading/error state every store exposes.
type Status struct {
	Loading bool
	Err     string
}

type status struct {
	mu sync.RWMutex
	Status
}

func (s *status) begin() {
	s.mu.Lock()
	s.Loading, s.Err = true, ""
	s.mu.Unlock()
}

// end records the outcome of an action and returns err unchanged.
func (s *status) end(err error) error {
	s.mu.Lock()
	s.Loading = false
	if err != nil {
		s.Err = err.Error()
	}
	s.mu.Unlock()
	return err
}

func (s *status) snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// ClearError resets the displayed error.
func (s *status) ClearError() {
	s.mu.Lock()
	s.Err = ""
	s.mu.Unlock()
}

// AuthStore signs users in and out through a Session.
type AuthStore struct {
	status
	c *Client
}

// NewAuthStore creates an AuthStore backed by c and its session.
func NewAuthStore(c *Client) *AuthStore { return &AuthStore{c: c} }

// AuthState is a snapshot of AuthStore.
type AuthState struct {
	Status
	User          *models.User
	Authenticated bool
}

// State returns a snapshot of the auth state.
func (a *AuthStore) State() AuthState {
	return AuthState{Status: a.snapshot(), User: a.c.session.User(), Authenticated: a.c.session.Authenticated()}
}

// Login signs in and stores the issued token in the session.
func (a *AuthStore) Login(ctx context.Context, email, password string) error {
	a.begin()
	res, err := a.c.Login(ctx, email, password)
	if err == nil {
		err = a.c.session.Set(res.AccessToken, &res.User)
	}
	return a.end(err)
}

// Register creates an account and signs it in.
func (a *AuthStore) Register(ctx context.Context, req RegisterRequest) error {
	a.begin()
	res, err := a.c.Register(ctx, req)
	if err == nil {
		err = a.c.session.Set(res.AccessToken, &res.User)
	}
	return a.end(err)
}

// Logout revokes the token server-side when possible and always clears the local session.
func (a *AuthStore) Logout(ctx context.Context) error {
	a.begin()
	if a.c.session.Authenticated() {
		_ = a.c.Logout(ctx)
	}
	return a.end(a.c.session.Clear())
}

// Initialize restores a persisted session.
func (a *AuthStore) Initialize(ctx context.Context) error {
	a.begin()
	_, err := a.c.session.Restore(ctx, a.c)
	return a.end(err)
}

// PostsStore caches post listings and the post being read.
type PostsStore struct {
	status
	c *Client

	posts      []models.Post
	featured   []models.Post
	current    *models.Post
	pagination Pagination
	// seq increments per FetchPostBySlug; older responses are dropped.
	seq uint64
}

// NewPostsStore creates a PostsStore.
func NewPostsStore(c *Client) *PostsStore { return &PostsStore{c: c} }

// PostsState is a snapshot of PostsStore.
type PostsState struct {
	Status
	Posts      []models.Post
	Featured   []models.Post
	Current    *models.Post
	Pagination Pagination
}

// State returns a copy of the store contents.
func (p *PostsStore) State() PostsState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PostsState{
		Status:     p.Status,
		Posts:      append([]models.Post(nil), p.posts...),
		Featured:   append([]models.Post(nil), p.featured...),
		Current:    p.current,
		Pagination: p.pagination,
	}
}

// FetchPosts loads a page of posts matching f.
func (p *PostsStore) FetchPosts(ctx context.Context, f PostFilters) error {
	p.begin()
	page, err := p.c.ListPosts(ctx, f)
	if err == nil {
		p.mu.Lock()
		p.posts, p.pagination = page.Posts, page.Pagination
		p.mu.Unlock()
	}
	return p.end(err)
}

// FetchFeatured loads up to five published featured posts.
func (p *PostsStore) FetchFeatured(ctx context.Context) error {
	p.begin()
	featured := true
	published := true
	page, err := p.c.ListPosts(ctx, PostFilters{Featured: &featured, Published: &published, Limit: 5})
	if err == nil {
		p.mu.Lock()
		p.featured = page.Posts
		p.mu.Unlock()
	}
	return p.end(err)
}

// FetchPostBySlug loads the current post. When several fetches overlap only
// the most recently started one may update the store.
func (p *PostsStore) FetchPostBySlug(ctx context.Context, slug string) error {
	if slug == "" {
		p.mu.Lock()
		p.Err, p.Loading = "invalid post slug", false
		p.mu.Unlock()
		return &APIError{Status: 400, Message: "invalid post slug"}
	}

	p.mu.Lock()
	p.seq++
	mine := p.seq
	p.Loading, p.Err = true, ""
	p.mu.Unlock()

	post, err := p.c.GetPost(ctx, slug)

	p.mu.Lock()
	defer p.mu.Unlock()
	if mine != p.seq {
		return nil
	}
	p.Loading = false
	if err != nil {
		p.current = nil
		p.Err = err.Error()
		return err
	}
	p.current = post
	return nil
}

// CreatePost creates a post and prepends it to the list.
func (p *PostsStore) CreatePost(ctx context.Context, req PostRequest) (*models.Post, error) {
	p.begin()
	post, err := p.c.CreatePost(ctx, req)
	if err == nil {
		p.mu.Lock()
		p.posts = append([]models.Post{*post}, p.posts...)
		p.mu.Unlock()
	}
	return post, p.end(err)
}

// UpdatePost edits a post and refreshes any cached copy of it.
func (p *PostsStore) UpdatePost(ctx context.Context, id uint, req PostRequest) error {
	p.begin()
	post, err := p.c.UpdatePost(ctx, id, req)
	if err == nil {
		p.mu.Lock()
		for i := range p.posts {
			if p.posts[i].ID == id {
				p.posts[i] = *post
			}
		}
		if p.current != nil && p.current.ID == id {
			p.current = post
		}
		p.mu.Unlock()
	}
	return p.end(err)
}

// DeletePost deletes a post and drops it from the store.
func (p *PostsStore) DeletePost(ctx context.Context, id uint) error {
	p.begin()
	err := p.c.DeletePost(ctx, id)
	if err == nil {
		p.mu.Lock()
		kept := p.posts[:0]
		for _, post := range p.posts {
			if post.ID != id {
				kept = append(kept, post)
			}
		}
		p.posts = kept
		if p.current != nil && p.current.ID == id {
			p.current = nil
		}
		p.mu.Unlock()
	}
	return p.end(err)
}

// ClearCurrent forgets the post being read.
func (p *PostsStore) ClearCurrent() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// CommentsStore keeps the comment thread of one post.
type CommentsStore struct {
	status
	c *Client

	postID     uint
	comments   []models.Comment
	pagination Pagination
}

// NewCommentsStore creates a CommentsStore.
func NewCommentsStore(c *Client) *CommentsStore { return &CommentsStore{c: c} }

// CommentsState is a snapshot of CommentsStore.
type CommentsState struct {
	Status
	PostID     uint
	Comments   []models.Comment
	Pagination Pagination
}

// State returns a deep copy of the thread.
func (s *CommentsStore) State() CommentsState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CommentsState{
		Status:     s.Status,
		PostID:     s.postID,
		Comments:   cloneThread(s.comments),
		Pagination: s.pagination,
	}
}

// FetchForPost loads a page of top-level comments with their replies.
func (s *CommentsStore) FetchForPost(ctx context.Context, postID uint, page, limit int) error {
	s.begin()
	res, err := s.c.PostComments(ctx, postID, page, limit)
	if err == nil {
		s.mu.Lock()
		s.postID, s.comments, s.pagination = postID, res.Comments, res.Pagination
		s.mu.Unlock()
	}
	return s.end(err)
}

// Add posts a comment, or a reply when parentID is non-nil, and merges it into the thread.
func (s *CommentsStore) Add(ctx context.Context, postID uint, content string, parentID *uint) (*models.Comment, error) {
	s.begin()
	req := CommentRequest{Content: content, PostID: postID, ParentID: parentID}
	var (
		comment *models.Comment
		err     error
	)
	if parentID == nil {
		comment, err = s.c.CreateComment(ctx, req)
	} else {
		comment, err = s.c.Reply(ctx, req)
	}
	if err == nil && postID == s.currentPost() {
		s.mu.Lock()
		if parentID == nil {
			s.comments = append([]models.Comment{*comment}, s.comments...)
			s.pagination.Total++
		} else {
			s.comments = insertReply(s.comments, *parentID, *comment)
		}
		s.mu.Unlock()
	}
	return comment, s.end(err)
}

// Update edits a comment in place.
func (s *CommentsStore) Update(ctx context.Context, id uint, content string) error {
	s.begin()
	updated, err := s.c.UpdateComment(ctx, id, content)
	if err == nil {
		s.mu.Lock()
		editThread(s.comments, id, func(c *models.Comment) { c.Content = updated.Content; c.UpdatedAt = updated.UpdatedAt })
		s.mu.Unlock()
	}
	return s.end(err)
}

// Delete removes a comment locally the same way the server did.
func (s *CommentsStore) Delete(ctx context.Context, id uint) error {
	s.begin()
	soft, err := s.c.DeleteComment(ctx, id)
	if err == nil {
		s.mu.Lock()
		if soft {
			editThread(s.comments, id, func(c *models.Comment) {
				c.Content = models.DeletedCommentContent
				c.Deleted = true
			})
		} else {
			s.comments = removeFromThread(s.comments, id)
		}
		s.mu.Unlock()
	}
	return s.end(err)
}

func (s *CommentsStore) currentPost() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postID
}

// CategoriesStore caches the category list.
type CategoriesStore struct {
	status
	c          *Client
	categories []models.Category
}

// NewCategoriesStore creates a CategoriesStore.
func NewCategoriesStore(c *Client) *CategoriesStore { return &CategoriesStore{c: c} }

// Categories returns the cached categories.
func (s *CategoriesStore) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...)
}

// State returns the loading and error flags.
func (s *CategoriesStore) State() Status { return s.snapshot() }

// Fetch loads every category.
func (s *CategoriesStore) Fetch(ctx context.Context) error {
	s.begin()
	list, err := s.c.ListCategories(ctx)
	if err == nil {
		s.mu.Lock()
		s.categories = list
		s.mu.Unlock()
	}
	return s.end(err)
}

// Create adds a category. Admin only.
func (s *CategoriesStore) Create(ctx context.Context, name, description string) error {
	s.begin()
	cat, err := s.c.CreateCategory(ctx, CategoryRequest{Name: &name, Description: &description})
	if err == nil {
		s.mu.Lock()
		s.categories = append(s.categories, *cat)
		s.mu.Unlock()
	}
	return s.end(err)
}

// Delete removes a category. Admin only.
func (s *CategoriesStore) Delete(ctx context.Context, id uint) error {
	s.begin()
	err := s.c.DeleteCategory(ctx, id)
	if err == nil {
		s.mu.Lock()
		kept := s.categories[:0]
		for _, c := range s.categories {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		s.categories = kept
		s.mu.Unlock()
	}
	return s.end(err)
}

// TagsStore caches tag listings.
type TagsStore struct {
	status
	c       *Client
	tags    []models.Tag
	popular []models.Tag
}

// NewTagsStore creates a TagsStore.
func NewTagsStore(c *Client) *TagsStore { return &TagsStore{c: c} }

// Tags returns the last fetched tag list.
func (s *TagsStore) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tag(nil), s.tags...)
}

// Popular returns the last fetched popular tags.
func (s *TagsStore) Popular() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tag(nil), s.popular...)
}

// State returns the loading and error flags.
func (s *TagsStore) State() Status { return s.snapshot() }

// Fetch loads tags matching f.
func (s *TagsStore) Fetch(ctx context.Context, f TagFilters) error {
	s.begin()
	list, err := s.c.ListTags(ctx, f)
	if err == nil {
		s.mu.Lock()
		s.tags = list
		s.mu.Unlock()
	}
	return s.end(err)
}

// FetchPopular loads the most used tags.
func (s *TagsStore) FetchPopular(ctx context.Context, limit int) error {
	s.begin()
	list, err := s.c.PopularTags(ctx, limit)
	if err == nil {
		s.mu.Lock()
		s.popular = list
		s.mu.Unlock()
	}
	return s.end(err)
}

// Create adds a tag to the cached list.
func (s *TagsStore) Create(ctx context.Context, name string) (*models.Tag, error) {
	s.begin()
	tag, err := s.c.CreateTag(ctx, name)
	if err == nil {
		s.mu.Lock()
		s.tags = append(s.tags, *tag)
		s.mu.Unlock()
	}
	return tag, s.end(err)
}

// UsersStore holds the profile being viewed.
type UsersStore struct {
	status
	c       *Client
	profile *models.User
}

// NewUsersStore creates a UsersStore.
func NewUsersStore(c *Client) *UsersStore { return &UsersStore{c: c} }

// Profile returns the loaded profile, or nil.
func (s *UsersStore) Profile() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// State returns the loading and error flags.
func (s *UsersStore) State() Status { return s.snapshot() }

// FetchProfile loads a user by username.
func (s *UsersStore) FetchProfile(ctx context.Context, username string) error {
	s.begin()
	u, err := s.c.GetUserByUsername(ctx, username)
	if err == nil {
		s.mu.Lock()
		s.profile = u
		s.mu.Unlock()
	}
	return s.end(err)
}

// UpdateProfile edits a user; editing yourself also refreshes the session user.
func (s *UsersStore) UpdateProfile(ctx context.Context, id uint, req UserUpdate) error {
	s.begin()
	u, err := s.c.UpdateUser(ctx, id, req)
	if err == nil {
		s.mu.Lock()
		s.profile = u
		s.mu.Unlock()
		if me := s.c.session.User(); me != nil && me.ID == u.ID {
			err = s.c.session.SetUser(u)
		}
	}
	return s.end(err)
}

// ChangePassword changes the password of user id.
func (s *UsersStore) ChangePassword(ctx context.Context, id uint, current, next string) error {
	s.begin()
	return s.end(s.c.ChangePassword(ctx, id, current, next))
}
