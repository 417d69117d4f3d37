package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

const commentColumns = "comments.*, (SELECT COUNT(*) FROM comments AS r WHERE r.parent_id = comments.id) AS replies_count"

const maxCommentLength = 1000

// CommentQuery holds the listing query parameters.
type CommentQuery struct {
	PageQuery
	PostID         uint   `form:"postId"`
	AuthorID       uint   `form:"authorId"`
	SortBy         string `form:"sortBy" binding:"omitempty,oneof=createdAt updatedAt"`
	SortOrder      string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	IncludeReplies string `form:"includeReplies"`
}

// CreateCommentInput is the payload of a comment or reply.
type CreateCommentInput struct {
	Content  string
	PostID   uint
	ParentID *uint
}

// CommentsService manages threaded comments.
type CommentsService struct {
	db       *gorm.DB
	maxDepth int
}

// NewCommentsService creates the service; replies may nest until depth maxDepth-1.
func NewCommentsService(db *gorm.DB, maxDepth int) *CommentsService {
	if maxDepth < 1 {
		maxDepth = 3
	}
	return &CommentsService{db: db, maxDepth: maxDepth}
}

func postSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "slug", "author_id")
}

func cleanContent(raw string) (string, error) {
	content := strings.TrimSpace(utils.Sanitize(raw))
	if content == "" {
		return "", ErrContentRequired
	}
	if len([]rune(content)) > maxCommentLength {
		return "", Validation(40023, "content must be at most 1000 characters")
	}
	return content, nil
}

// Create adds a top-level comment or, with ParentID, a reply in the same post.
func (s *CommentsService) Create(ctx context.Context, authorID uint, in CreateCommentInput) (*models.Comment, error) {
	content, err := cleanContent(in.Content)
	if err != nil {
		return nil, err
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Select("id").First(&post, in.PostID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	comment := models.Comment{Content: content, AuthorID: authorID, PostID: post.ID}
	if in.ParentID != nil {
		var parent models.Comment
		if err := s.db.WithContext(ctx).First(&parent, *in.ParentID).Error; err != nil {
			if isNotFound(err) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, ErrParentMismatch
		}
		if parent.Depth+1 >= s.maxDepth {
			return nil, ErrThreadTooDeep
		}
		comment.ParentID = &parent.ID
		comment.Depth = parent.Depth + 1
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.FindOne(ctx, comment.ID)
}

// Reply is Create with a mandatory parent.
func (s *CommentsService) Reply(ctx context.Context, authorID uint, in CreateCommentInput) (*models.Comment, error) {
	if in.ParentID == nil {
		return nil, ErrParentRequired
	}
	return s.Create(ctx, authorID, in)
}

// FindAll lists comments newest first by default. Without includeReplies only
// top-level comments are listed, each with its direct replies attached.
func (s *CommentsService) FindAll(ctx context.Context, q CommentQuery) ([]models.Comment, Pagination, error) {
	includeReplies, _ := parseBool(q.IncludeReplies)
	filter := func(db *gorm.DB) *gorm.DB {
		if q.PostID != 0 {
			db = db.Where("comments.post_id = ?", q.PostID)
		}
		if q.AuthorID != 0 {
			db = db.Where("comments.author_id = ?", q.AuthorID)
		}
		if !includeReplies {
			db = db.Where("comments.parent_id IS NULL")
		}
		return db
	}

	sortCol := "comments.created_at"
	if q.SortBy == "updatedAt" {
		sortCol = "comments.updated_at"
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	page, limit := q.resolve(20)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	query := s.db.WithContext(ctx).Scopes(filter).
		Preload("Author", authorSummary).
		Preload("Post", postSummary)
	if includeReplies {
		query = query.Preload("Parent")
	} else {
		query = query.Scopes(withDirectReplies)
	}
	comments := []models.Comment{}
	if err := query.Select(commentColumns).
		Order(sortCol + " " + dir).Order("comments.id " + dir).
		Offset(offset(page, limit)).Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, Pagination{}, err
	}
	return comments, NewPagination(page, limit, total), nil
}

// FindByPost lists the top-level comments of a post with their direct replies.
func (s *CommentsService) FindByPost(ctx context.Context, postID uint, pq PageQuery) ([]models.Comment, Pagination, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return nil, Pagination{}, err
	}
	if n == 0 {
		return nil, Pagination{}, ErrPostNotFound
	}
	return s.FindAll(ctx, CommentQuery{PageQuery: pq, PostID: postID})
}

// FindByUser lists every comment written by a user, replies included.
func (s *CommentsService) FindByUser(ctx context.Context, userID uint, pq PageQuery) ([]models.Comment, Pagination, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return nil, Pagination{}, err
	}
	if n == 0 {
		return nil, Pagination{}, ErrUserNotFound
	}
	return s.FindAll(ctx, CommentQuery{PageQuery: pq, AuthorID: userID, IncludeReplies: "true"})
}

// FindOne returns a comment with its author, post, parent and direct replies.
func (s *CommentsService) FindOne(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).
		Preload("Author", authorSummary).
		Preload("Post", postSummary).
		Preload("Parent").
		Preload("Parent.Author", authorSummary).
		Scopes(withDirectReplies).
		Select(commentColumns).Where("comments.id = ?", id).
		Take(&comment).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// FindReplies pages through the direct replies of a comment, oldest first.
func (s *CommentsService) FindReplies(ctx context.Context, id uint, pq PageQuery) ([]models.Comment, Pagination, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return nil, Pagination{}, err
	}
	if n == 0 {
		return nil, Pagination{}, ErrCommentNotFound
	}

	page, limit := pq.resolve(20)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	replies := []models.Comment{}
	if err := s.db.WithContext(ctx).
		Preload("Author", authorSummary).
		Select(commentColumns).Where("comments.parent_id = ?", id).
		Order("comments.created_at ASC").Order("comments.id ASC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&replies).Error; err != nil {
		return nil, Pagination{}, err
	}
	return replies, NewPagination(page, limit, total), nil
}

// Update edits the content of a comment owned by requesterID.
func (s *CommentsService) Update(ctx context.Context, id, requesterID uint, content string) (*models.Comment, error) {
	comment, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if comment.Deleted {
		return nil, ErrCommentDeleted
	}
	clean, err := cleanContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(comment).Update("content", clean).Error; err != nil {
		return nil, err
	}
	return s.FindOne(ctx, id)
}

// Remove deletes a comment owned by requesterID. A comment that still has
// replies keeps its place in the thread with its content replaced; softDeleted
// reports which of the two happened.
func (s *CommentsService) Remove(ctx context.Context, id, requesterID uint) (softDeleted bool, err error) {
	comment, err := s.owned(ctx, id, requesterID)
	if err != nil {
		return false, err
	}
	var replies int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&replies).Error; err != nil {
		return false, err
	}
	if replies > 0 {
		err = s.db.WithContext(ctx).Model(comment).Updates(map[string]interface{}{
			"content": models.DeletedCommentContent,
			"deleted": true,
		}).Error
		return err == nil, err
	}
	return false, s.db.WithContext(ctx).Delete(comment).Error
}

func (s *CommentsService) owned(ctx context.Context, id, requesterID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if comment.AuthorID != requesterID {
		return nil, ErrNotCommentAuthor
	}
	return &comment, nil
}

func withDirectReplies(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC").Order("comments.id ASC")
		}).
		Preload("Replies.Author", authorSummary)
}
