package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogd/middleware"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	auth  *services.AuthService
	users *services.UsersService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService, users *services.UsersService) *AuthController {
	return &AuthController{auth: auth, users: users}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=30"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns it with an access token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	res, err := a.auth.Register(ctx.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Created(ctx, res)
}

// Login exchanges credentials for an access token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	res, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Me returns the profile of the token holder.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	user, err := a.users.FindOne(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the presented token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"logged_out": true})
}

func revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiry, _ := ctx.Get(middleware.ContextTokenExpiryKey)
	if exp, ok := expiry.(time.Time); ok && token != "" {
		utils.BlacklistToken(token, exp)
	}
}
