package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// TagController manages tags.
type TagController struct {
	tags *services.TagsService
}

// NewTagController creates a new TagController instance.
func NewTagController(tags *services.TagsService) *TagController {
	return &TagController{tags: tags}
}

type tagRequest struct {
	Name string `json:"name" binding:"required,min=2,max=30,tagname"`
}

type popularQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CreateTag adds a tag for any signed-in user.
func (t *TagController) CreateTag(ctx *gin.Context) {
	var req tagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	tag, err := t.tags.Create(ctx.Request.Context(), req.Name)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Created(ctx, tag)
}

// ListTags returns tags filtered by search and sorted by name or usage.
func (t *TagController) ListTags(ctx *gin.Context) {
	var q services.TagQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	tags, err := t.tags.FindAll(ctx.Request.Context(), q)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, tags)
}

// PopularTags returns the most used tags, ten by default.
func (t *TagController) PopularTags(ctx *gin.Context) {
	var q popularQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	tags, err := t.tags.FindPopular(ctx.Request.Context(), q.Limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, tags)
}

// GetTag returns a tag with its published posts.
func (t *TagController) GetTag(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	tag, err := t.tags.FindOne(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, tag)
}

// UpdateTag renames a tag.
func (t *TagController) UpdateTag(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req tagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	tag, err := t.tags.Update(ctx.Request.Context(), id, req.Name)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, tag)
}

// DeleteTag removes a tag from every post.
func (t *TagController) DeleteTag(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := t.tags.Remove(ctx.Request.Context(), id); err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "tag deleted", nil)
}
