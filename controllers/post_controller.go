package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// PostController manages CRUD operations for posts.
type PostController struct {
	posts *services.PostsService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostsService) *PostController {
	return &PostController{posts: posts}
}

type createPostRequest struct {
	Title      string `json:"title" binding:"required,max=255"`
	Content    string `json:"content" binding:"required"`
	Excerpt    string `json:"excerpt" binding:"max=1000"`
	Published  bool   `json:"published"`
	Featured   bool   `json:"featured"`
	CategoryID *uint  `json:"category_id"`
	TagIDs     []uint `json:"tag_ids"`
}

type updatePostRequest struct {
	Title      *string `json:"title" binding:"omitempty,max=255"`
	Content    *string `json:"content"`
	Excerpt    *string `json:"excerpt" binding:"omitempty,max=1000"`
	Published  *bool   `json:"published"`
	Featured   *bool   `json:"featured"`
	CategoryID *uint   `json:"category_id"`
	TagIDs     *[]uint `json:"tag_ids"`
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}

	post, err := p.posts.Create(ctx.Request.Context(), userID, services.CreatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Published:  req.Published,
		Featured:   req.Featured,
		CategoryID: req.CategoryID,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// ListPosts returns paginated posts including author, category and tags.
func (p *PostController) ListPosts(ctx *gin.Context) {
	var filter services.PostFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		badRequest(ctx, err)
		return
	}
	posts, pagination, err := p.posts.FindAll(ctx.Request.Context(), filter)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"posts": posts, "pagination": pagination})
}

// GetPost returns a single post with its comment thread and counts the view.
func (p *PostController) GetPost(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	post, err := p.posts.FindOne(ctx.Request.Context(), slug)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// UpdatePost changes a post owned by the caller.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}

	post, err := p.posts.Update(ctx.Request.Context(), id, userID, services.UpdatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Published:  req.Published,
		Featured:   req.Featured,
		CategoryID: req.CategoryID,
		TagIDs:     req.TagIDs,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	if err := p.posts.Remove(ctx.Request.Context(), id, userID); err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "post deleted", nil)
}
