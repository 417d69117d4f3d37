package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

func TestFindUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUsersService(db, bcrypt.MinCost)
	alice := newUser(t, db, "alice", models.RoleAdmin)
	newUser(t, db, "bob", models.RoleUser)
	newUser(t, db, "carol", models.RoleUser)
	newPost(t, NewPostsService(db, 3), alice.ID, "Hi", CreatePostInput{})

	users, page, err := svc.FindAll(ctx, UserQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, users, 3)

	admins, _, err := svc.FindAll(ctx, UserQuery{Role: "ADMIN"})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.EqualValues(t, 1, admins[0].PostsCount)

	found, _, err := svc.FindAll(ctx, UserQuery{Search: "CAR"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "carol", found[0].Username)

	byName, err := svc.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", byName.Email)

	_, err = svc.FindOne(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = svc.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUsersService(db, bcrypt.MinCost)
	alice := newUser(t, db, "alice", models.RoleUser)
	newUser(t, db, "bob", models.RoleUser)

	_, err := svc.Update(ctx, alice.ID, UpdateUserInput{Email: ptr("BOB@example.com")})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Update(ctx, alice.ID, UpdateUserInput{Username: ptr("bob")})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	got, err := svc.Update(ctx, alice.ID, UpdateUserInput{
		Email: ptr("alice@example.com"),
		Name:  ptr("<b>Alice</b> A."),
		Bio:   ptr("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.Name)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.Update(ctx, alice.ID, UpdateUserInput{Username: ptr("  ")})
	assert.ErrorIs(t, err, ErrUsernameRequired)
	_, err = svc.Update(ctx, alice.ID, UpdateUserInput{Name: ptr("   ")})
	assert.ErrorIs(t, err, ErrNameRequired)
	unchanged, err := svc.FindOne(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", unchanged.Name)

	_, err = svc.Update(ctx, 999, UpdateUserInput{Name: ptr("ghost")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUsersService(db, bcrypt.MinCost)
	u := newUser(t, db, "alice", models.RoleUser)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "secret1", "short"), ErrPasswordTooShort)
	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong!", "brand-new"), ErrWrongPassword)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "secret1", "brand-new"))

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.True(t, utils.CheckPassword(stored.PasswordHash, "brand-new"))
	assert.False(t, utils.CheckPassword(stored.PasswordHash, "secret1"))
}

func TestRemoveUserCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewUsersService(db, bcrypt.MinCost)
	posts := NewPostsService(db, 3)
	comments := NewCommentsService(db, 3)
	tags := NewTagsService(db)

	leaving := newUser(t, db, "leaving", models.RoleUser)
	staying := newUser(t, db, "staying", models.RoleUser)
	tag, err := tags.Create(ctx, "misc")
	require.NoError(t, err)

	own := newPost(t, posts, leaving.ID, "Mine", CreatePostInput{TagIDs: []uint{tag.ID}})
	other := newPost(t, posts, staying.ID, "Theirs", CreatePostInput{})
	_, err = comments.Create(ctx, staying.ID, CreateCommentInput{Content: "on mine", PostID: own.ID})
	require.NoError(t, err)

	mine, err := comments.Create(ctx, leaving.ID, CreateCommentInput{Content: "mine", PostID: other.ID})
	require.NoError(t, err)
	_, err = comments.Create(ctx, staying.ID, CreateCommentInput{Content: "answer", PostID: other.ID, ParentID: &mine.ID})
	require.NoError(t, err)
	keep, err := comments.Create(ctx, staying.ID, CreateCommentInput{Content: "unrelated", PostID: other.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, leaving.ID))
	assert.ErrorIs(t, svc.Remove(ctx, leaving.ID), ErrUserNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, db.Table("post_tags").Count(&n).Error)
	assert.Zero(t, n)

	var left []models.Comment
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)
}
