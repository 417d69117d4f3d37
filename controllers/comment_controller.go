package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// CommentController manages threaded comments.
type CommentController struct {
	comments *services.CommentsService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentsService) *CommentController {
	return &CommentController{comments: comments}
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required,max=1000"`
	PostID   uint   `json:"post_id" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

// CreateComment adds a comment, or a reply when parent_id is present.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	c.create(ctx, c.comments.Create)
}

// CreateReply adds a reply; parent_id is mandatory.
func (c *CommentController) CreateReply(ctx *gin.Context) {
	c.create(ctx, c.comments.Reply)
}

func (c *CommentController) create(ctx *gin.Context, save func(ctx context.Context, authorID uint, in services.CreateCommentInput) (*models.Comment, error)) {
	var req createCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	comment, err := save(ctx.Request.Context(), userID, services.CreateCommentInput{
		Content:  req.Content,
		PostID:   req.PostID,
		ParentID: req.ParentID,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Created(ctx, comment)
}

// ListComments returns a filtered page of comments.
func (c *CommentController) ListComments(ctx *gin.Context) {
	var q services.CommentQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	comments, pagination, err := c.comments.FindAll(ctx.Request.Context(), q)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": comments, "pagination": pagination})
}

// ListPostComments returns top-level comments of a post with their replies.
func (c *CommentController) ListPostComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "postId")
	if !ok {
		return
	}
	var pq services.PageQuery
	if err := ctx.ShouldBindQuery(&pq); err != nil {
		badRequest(ctx, err)
		return
	}
	comments, pagination, err := c.comments.FindByPost(ctx.Request.Context(), postID, pq)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": comments, "pagination": pagination})
}

// ListUserComments returns every comment written by a user.
func (c *CommentController) ListUserComments(ctx *gin.Context) {
	userID, ok := parseID(ctx, "userId")
	if !ok {
		return
	}
	var pq services.PageQuery
	if err := ctx.ShouldBindQuery(&pq); err != nil {
		badRequest(ctx, err)
		return
	}
	comments, pagination, err := c.comments.FindByUser(ctx.Request.Context(), userID, pq)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": comments, "pagination": pagination})
}

// GetComment returns one comment with its direct replies.
func (c *CommentController) GetComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comment, err := c.comments.FindOne(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// ListReplies pages through the replies of a comment.
func (c *CommentController) ListReplies(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var pq services.PageQuery
	if err := ctx.ShouldBindQuery(&pq); err != nil {
		badRequest(ctx, err)
		return
	}
	replies, pagination, err := c.comments.FindReplies(ctx.Request.Context(), id, pq)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"comments": replies, "pagination": pagination})
}

// UpdateComment edits a comment owned by the caller.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	comment, err := c.comments.Update(ctx.Request.Context(), id, userID, req.Content)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// DeleteComment removes a comment owned by the caller.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	soft, err := c.comments.Remove(ctx.Request.Context(), id, userID)
	if err != nil {
		fail(ctx, err)
		return
	}
	msg := "comment deleted"
	if soft {
		msg = "comment content removed; replies kept"
	}
	utils.Respond(ctx, http.StatusOK, 0, msg, gin.H{"soft_deleted": soft})
}
