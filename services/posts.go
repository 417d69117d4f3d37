package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

const postColumns = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// PostFilter holds the listing query parameters.
type PostFilter struct {
	PageQuery
	Search     string `form:"search"`
	CategoryID uint   `form:"categoryId"`
	TagID      uint   `form:"tagId"`
	AuthorID   uint   `form:"authorId"`
	Published  string `form:"published"`
	Featured   string `form:"featured"`
}

// CreatePostInput is the payload of a new post.
type CreatePostInput struct {
	Title      string
	Content    string
	Excerpt    string
	Published  bool
	Featured   bool
	CategoryID *uint
	TagIDs     []uint
}

// UpdatePostInput is a partial update. A CategoryID of 0 detaches the category;
// a non-nil TagIDs replaces the whole tag set.
type UpdatePostInput struct {
	Title      *string
	Content    *string
	Excerpt    *string
	Published  *bool
	Featured   *bool
	CategoryID *uint
	TagIDs     *[]uint
}

// PostStats is the per-post counter snapshot.
type PostStats struct {
	ID            uint  `json:"id"`
	Views         int64 `json:"views"`
	CommentsCount int64 `json:"comments_count"`
}

// PostsService manages posts and their tag links.
type PostsService struct {
	db       *gorm.DB
	maxDepth int
}

// NewPostsService creates the service; maxDepth bounds the comment thread returned with a post.
func NewPostsService(db *gorm.DB, maxDepth int) *PostsService {
	return &PostsService{db: db, maxDepth: maxDepth}
}

func authorSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "username", "avatar")
}

func authorProfile(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "username", "avatar", "bio")
}

func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", authorSummary).Preload("Category").Preload("Tags")
}

// Create stores a post written by authorID.
func (s *PostsService) Create(ctx context.Context, authorID uint, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(utils.StripTags(in.Title))
	if title == "" {
		return nil, ErrTitleRequired
	}
	content := utils.Sanitize(in.Content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	slug := Slugify(title)
	if slug == "" {
		return nil, ErrEmptySlug
	}

	post := models.Post{
		Title:     title,
		Slug:      slug,
		Content:   content,
		Excerpt:   strings.TrimSpace(utils.StripTags(in.Excerpt)),
		Published: in.Published,
		Featured:  in.Featured,
		AuthorID:  authorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.CategoryID != nil && *in.CategoryID != 0 {
			if err := ensureCategory(tx, *in.CategoryID); err != nil {
				return err
			}
			post.CategoryID = in.CategoryID
		}
		tags, err := loadTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		post.Tags = tags
		// link existing tags only; never upsert them
		if err := tx.Omit("Tags.*").Create(&post).Error; err != nil {
			if isDuplicate(err) {
				return ErrSlugTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateListings()
	return s.findByID(ctx, post.ID)
}

// FindAll lists posts newest first.
func (s *PostsService) FindAll(ctx context.Context, f PostFilter) ([]models.Post, Pagination, error) {
	page, limit := f.resolve(10)
	filter := func(db *gorm.DB) *gorm.DB {
		if term := strings.TrimSpace(f.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			db = db.Where("(LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ?)", like, like)
		}
		if f.CategoryID != 0 {
			db = db.Where("posts.category_id = ?", f.CategoryID)
		}
		if f.TagID != 0 {
			db = db.Where("posts.id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)", f.TagID)
		}
		if f.AuthorID != 0 {
			db = db.Where("posts.author_id = ?", f.AuthorID)
		}
		if v, ok := parseBool(f.Published); ok {
			db = db.Where("posts.published = ?", v)
		}
		if v, ok := parseBool(f.Featured); ok {
			db = db.Where("posts.featured = ?", v)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	posts := []models.Post{}
	if err := s.db.WithContext(ctx).Scopes(filter, withPostRelations).
		Select(postColumns).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, Pagination{}, err
	}
	return posts, NewPagination(page, limit, total), nil
}

// FindOne counts a view and returns the post with its comment thread.
// The increment is one UPDATE statement so concurrent readers never lose a view.
func (s *PostsService) FindOne(ctx context.Context, slug string) (*models.Post, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("slug = ?", slug).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}

	var post models.Post
	if err := s.db.WithContext(ctx).
		Preload("Author", authorProfile).Preload("Category").Preload("Tags").
		Select(postColumns).Where("posts.slug = ?", slug).
		Take(&post).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).Preload("Author", authorSummary).
		Where("post_id = ?", post.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	post.Comments = BuildThread(comments, s.maxDepth)
	return &post, nil
}

// Stats returns the counters of a post without counting a view.
func (s *PostsService) Stats(ctx context.Context, slug string) (*PostStats, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Select(postColumns).Where("posts.slug = ?", slug).Take(&post).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &PostStats{ID: post.ID, Views: post.Views, CommentsCount: post.CommentsCount}, nil
}

// Update changes a post owned by requesterID.
func (s *PostsService) Update(ctx context.Context, id, requesterID uint, in UpdatePostInput) (*models.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := ownedPost(tx, id, requesterID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			title := strings.TrimSpace(utils.StripTags(*in.Title))
			if title == "" {
				return ErrTitleRequired
			}
			slug := Slugify(title)
			if slug == "" {
				return ErrEmptySlug
			}
			updates["title"] = title
			updates["slug"] = slug
		}
		if in.Content != nil {
			content := utils.Sanitize(*in.Content)
			if strings.TrimSpace(content) == "" {
				return ErrContentRequired
			}
			updates["content"] = content
		}
		if in.Excerpt != nil {
			updates["excerpt"] = strings.TrimSpace(utils.StripTags(*in.Excerpt))
		}
		if in.Published != nil {
			updates["published"] = *in.Published
		}
		if in.Featured != nil {
			updates["featured"] = *in.Featured
		}
		if in.CategoryID != nil {
			if *in.CategoryID == 0 {
				updates["category_id"] = nil
			} else {
				if err := ensureCategory(tx, *in.CategoryID); err != nil {
					return err
				}
				updates["category_id"] = *in.CategoryID
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(post).Updates(updates).Error; err != nil {
				if isDuplicate(err) {
					return ErrSlugTaken
				}
				return err
			}
		}
		if in.TagIDs != nil {
			tags, err := loadTags(tx, *in.TagIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateListings()
	return s.findByID(ctx, id)
}

// Remove deletes a post owned by requesterID with its comments and tag links.
func (s *PostsService) Remove(ctx context.Context, id, requesterID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := ownedPost(tx, id, requesterID)
		if err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err == nil {
		invalidateListings()
	}
	return err
}

func (s *PostsService) findByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Scopes(withPostRelations).
		Select(postColumns).Where("posts.id = ?", id).
		Take(&post).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func ownedPost(tx *gorm.DB, id, requesterID uint) (*models.Post, error) {
	var post models.Post
	if err := tx.First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if post.AuthorID != requesterID {
		return nil, ErrNotPostAuthor
	}
	return &post, nil
}

func ensureCategory(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// loadTags resolves ids to tags; any unknown id fails the whole set.
func loadTags(tx *gorm.DB, ids []uint) ([]models.Tag, error) {
	ids = utils.UniqueUint(ids)
	tags := []models.Tag{}
	if len(ids) == 0 {
		return tags, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		return nil, ErrTagNotFound
	}
	return tags, nil
}

// BuildThread nests a flat, oldest-first comment list: top-level comments come
// newest first, replies oldest first. Comments at or beyond maxDepth, or whose
// parent is missing, are left out.
func BuildThread(comments []models.Comment, maxDepth int) []models.Comment {
	children := make(map[uint][]models.Comment)
	var roots []models.Comment
	present := make(map[uint]bool, len(comments))
	for _, c := range comments {
		present[c.ID] = true
	}
	for _, c := range comments {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if present[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var attach func(c *models.Comment, depth int)
	attach = func(c *models.Comment, depth int) {
		kids := children[c.ID]
		c.RepliesCount = int64(len(kids))
		if maxDepth > 0 && depth+1 >= maxDepth {
			return
		}
		c.Replies = make([]models.Comment, len(kids))
		copy(c.Replies, kids)
		for i := range c.Replies {
			attach(&c.Replies[i], depth+1)
		}
	}

	thread := make([]models.Comment, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		root := roots[i]
		attach(&root, 0)
		thread = append(thread, root)
	}
	return thread
}
