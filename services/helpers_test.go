package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel:    "silent",
	}, models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		Name:         username,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func newPost(t *testing.T, svc *PostsService, authorID uint, title string, in CreatePostInput) *models.Post {
	t.Helper()
	in.Title = title
	if in.Content == "" {
		in.Content = "body of " + title
	}
	p, err := svc.Create(context.Background(), authorID, in)
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T { return &v }
