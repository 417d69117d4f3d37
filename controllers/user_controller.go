package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/middleware"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// UserController exposes user profiles.
type UserController struct {
	users *services.UsersService
}

// NewUserController creates a new UserController instance.
func NewUserController(users *services.UsersService) *UserController {
	return &UserController{users: users}
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,min=3,max=30"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Avatar   *string `json:"avatar" binding:"omitempty,url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// ListUsers returns a page of users.
func (u *UserController) ListUsers(ctx *gin.Context) {
	var q services.UserQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		badRequest(ctx, err)
		return
	}
	users, pagination, err := u.users.FindAll(ctx.Request.Context(), q)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"users": users, "pagination": pagination})
}

// GetUser returns a user by id.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	user, err := u.users.FindOne(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// GetUserByUsername returns a public profile by username.
func (u *UserController) GetUserByUsername(ctx *gin.Context) {
	user, err := u.users.FindByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// UpdateUser applies a partial profile update.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	user, err := u.users.Update(ctx.Request.Context(), id, services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// ChangePassword replaces the caller's password.
func (u *UserController) ChangePassword(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if err := u.users.ChangePassword(ctx.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "password changed", nil)
}

// DeleteUser removes a user and everything they authored.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := u.users.Remove(ctx.Request.Context(), id); err != nil {
		fail(ctx, err)
		return
	}
	if self, ok := middleware.UserID(ctx); ok && self == id {
		revokeCurrentToken(ctx)
	}
	utils.Respond(ctx, http.StatusOK, 0, "user deleted", nil)
}
