package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// RegisterInput holds the fields accepted at sign-up.
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Name     string
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	db         *gorm.DB
	tokens     *utils.JWTManager
	bcryptCost int
	// promote reports whether a new username is configured as an administrator.
	promote func(username string) bool
}

// NewAuthService wires the auth service. promote may be nil.
func NewAuthService(db *gorm.DB, tokens *utils.JWTManager, bcryptCost int, promote func(string) bool) *AuthService {
	if promote == nil {
		promote = func(string) bool { return false }
	}
	return &AuthService{db: db, tokens: tokens, bcryptCost: bcryptCost, promote: promote}
}

// Register creates a user and issues a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(utils.StripTags(in.Name))
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(in.Password) < 6 {
		return nil, ErrPasswordTooShort
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleUser,
	}
	if s.promote(username) {
		user.Role = models.RoleAdmin
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return s.issue(&user)
}

// Login verifies credentials. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
