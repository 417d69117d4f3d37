package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

// ContextUserKey holds the *models.User loaded by Authorize.
const ContextUserKey = "current_user"

// Policy is a named authorization rule evaluated against the current user.
type Policy struct {
	Name  string
	Allow func(ctx *gin.Context, user *models.User) bool
}

// Member admits any user that still exists.
func Member() Policy {
	return Policy{Name: "member", Allow: func(*gin.Context, *models.User) bool { return true }}
}

// AdminOnly admits users holding the ADMIN role.
func AdminOnly() Policy {
	return Policy{Name: "admin", Allow: func(_ *gin.Context, u *models.User) bool {
		return u.IsAdmin()
	}}
}

// Self admits the user whose id is in the given path parameter.
func Self(param string) Policy {
	return Policy{Name: "self", Allow: func(ctx *gin.Context, u *models.User) bool {
		return isSelf(ctx, param, u)
	}}
}

// SelfOrAdmin admits the user named by the path parameter, or any admin.
func SelfOrAdmin(param string) Policy {
	return Policy{Name: "self-or-admin", Allow: func(ctx *gin.Context, u *models.User) bool {
		return u.IsAdmin() || isSelf(ctx, param, u)
	}}
}

func isSelf(ctx *gin.Context, param string, u *models.User) bool {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 64)
	return err == nil && uint(id) == u.ID
}

// Authorize loads the authenticated user and enforces p. It must run after AuthRequired.
// The role is read from the database on every request so demotions apply immediately.
func Authorize(db *gorm.DB, p Policy) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := UserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusUnauthorized, 40111, "user no longer exists")
			} else {
				utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load user")
			}
			ctx.Abort()
			return
		}

		if !p.Allow(ctx, &user) {
			utils.Sugar.Debugw("policy denied", "policy", p.Name, "user_id", user.ID, "path", ctx.FullPath())
			utils.Error(ctx, http.StatusForbidden, 40300, "forbidden")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserKey, &user)
		ctx.Next()
	}
}
