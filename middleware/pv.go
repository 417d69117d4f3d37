package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

// PageViewRecorder counts successful GETs of the given route patterns per day and path.
func PageViewRecorder(db *gorm.DB, routes ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(routes))
	for _, r := range routes {
		tracked[r] = true
	}
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || !tracked[c.FullPath()] {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		RecordPageView(db, c.Request.URL.Path)
	}
}

// RecordPageView upserts today's counter for path.
func RecordPageView(db *gorm.DB, path string) {
	// Use local midnight to align with DATE column
	now := time.Now().In(time.Local)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Atomic upsert to avoid duplicate key errors under concurrency
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("page_views.count + 1"), "updated_at": time.Now()}),
	}).Create(&models.PageView{Date: day, Path: path, Count: 1}).Error
	if err != nil {
		utils.Sugar.Warnf("record page view path=%s err=%v", path, err)
	}
}
