package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// StatsController provides site statistics such as counts and daily page views.
type StatsController struct {
	db    *gorm.DB
	posts *services.PostsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, posts *services.PostsService) *StatsController {
	return &StatsController{db: db, posts: posts}
}

// GetStats returns aggregate statistics for the blog.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(model interface{}) int64 {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			// Fallback to 0 instead of failing the whole endpoint
			utils.Sugar.Warnf("stats count failed: %v", err)
			return 0
		}
		return n
	}

	var published int64
	if err := db.Model(&models.Post{}).Where("published = ?", true).Count(&published).Error; err != nil {
		published = 0
	}

	// Sum of today's page views across all tracked paths
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var todayViews int64
	if err := db.Model(&models.PageView{}).
		Where("date >= ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&todayViews).Error; err != nil {
		todayViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":           count(&models.User{}),
		"post_count":           count(&models.Post{}),
		"published_post_count": published,
		"comment_count":        count(&models.Comment{}),
		"category_count":       count(&models.Category{}),
		"tag_count":            count(&models.Tag{}),
		"today_page_views":     todayViews,
	})
}

// GetPostStats returns views, recorded page views and comment count of a post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	slug := ctx.Param("slug")
	stats, err := s.posts.Stats(ctx.Request.Context(), slug)
	if err != nil {
		fail(ctx, err)
		return
	}

	var pv int64
	if err := s.db.WithContext(ctx.Request.Context()).Model(&models.PageView{}).
		Where("path = ?", "/api/posts/"+slug).
		Select("COALESCE(SUM(count),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}

	utils.Success(ctx, gin.H{
		"id":             stats.ID,
		"views":          stats.Views,
		"pv":             pv,
		"comments_count": stats.CommentsCount,
	})
}
