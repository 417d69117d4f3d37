package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogd/models"
)

func TestCategoryLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewCategoriesService(db)
	posts := NewPostsService(db, 3)
	author := newUser(t, db, "writer", models.RoleAdmin)

	_, err := svc.Create(ctx, CategoryInput{})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.Create(ctx, CategoryInput{Name: ptr("???")})
	assert.ErrorIs(t, err, ErrEmptySlug)

	tech, err := svc.Create(ctx, CategoryInput{Name: ptr(" Tech News "), Description: ptr("<i>all</i> things")})
	require.NoError(t, err)
	assert.Equal(t, "Tech News", tech.Name)
	assert.Equal(t, "tech-news", tech.Slug)
	assert.Equal(t, "all things", tech.Description)

	_, err = svc.Create(ctx, CategoryInput{Name: ptr("tech news")})
	assert.ErrorIs(t, err, ErrCategoryExists)

	art, err := svc.Create(ctx, CategoryInput{Name: ptr("Art")})
	require.NoError(t, err)

	newPost(t, posts, author.ID, "Visible", CreatePostInput{Published: true, CategoryID: &tech.ID})
	newPost(t, posts, author.ID, "Hidden", CreatePostInput{CategoryID: &tech.ID})

	list, err := svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Art", list[0].Name)
	assert.EqualValues(t, 2, list[1].PostsCount)

	got, err := svc.FindOne(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, got.Posts, 1, "only published posts are listed")
	assert.Equal(t, "Visible", got.Posts[0].Title)

	_, err = svc.Update(ctx, art.ID, CategoryInput{Name: ptr("Tech-News")})
	assert.ErrorIs(t, err, ErrCategoryExists)
	renamed, err := svc.Update(ctx, art.ID, CategoryInput{Name: ptr("Fine Art")})
	require.NoError(t, err)
	assert.Equal(t, "fine-art", renamed.Slug)

	require.NoError(t, svc.Remove(ctx, tech.ID))
	_, err = svc.FindOne(ctx, tech.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, tech.ID), ErrCategoryNotFound)

	var orphans int64
	require.NoError(t, db.Model(&models.Post{}).Where("category_id IS NULL").Count(&orphans).Error)
	assert.EqualValues(t, 2, orphans)
}

func TestTagLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTagsService(db)
	posts := NewPostsService(db, 3)
	author := newUser(t, db, "writer", models.RoleUser)

	_, err := svc.Create(ctx, "c++")
	assert.ErrorIs(t, err, ErrInvalidTagName)
	_, err = svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	golang, err := svc.Create(ctx, "Go Lang")
	require.NoError(t, err)
	assert.Equal(t, "go-lang", golang.Slug)
	_, err = svc.Create(ctx, "go_lang")
	assert.ErrorIs(t, err, ErrTagExists)

	rust, err := svc.Create(ctx, "rust")
	require.NoError(t, err)
	zig, err := svc.Create(ctx, "zig")
	require.NoError(t, err)

	newPost(t, posts, author.ID, "One", CreatePostInput{Published: true, TagIDs: []uint{golang.ID, rust.ID}})
	newPost(t, posts, author.ID, "Two", CreatePostInput{Published: true, TagIDs: []uint{rust.ID}})
	newPost(t, posts, author.ID, "Three", CreatePostInput{TagIDs: []uint{rust.ID}})

	popular, err := svc.FindPopular(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "rust", popular[0].Name)
	assert.EqualValues(t, 3, popular[0].PostsCount)
	assert.Equal(t, "Go Lang", popular[1].Name)

	byCount, err := svc.FindAll(ctx, TagQuery{SortBy: "postCount", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, byCount, 3)
	assert.Equal(t, zig.ID, byCount[0].ID)

	found, err := svc.FindAll(ctx, TagQuery{Search: "LANG"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, golang.ID, found[0].ID)

	withPosts, err := svc.FindOne(ctx, rust.ID)
	require.NoError(t, err)
	assert.Len(t, withPosts.Posts, 2, "drafts are excluded")

	_, err = svc.Update(ctx, zig.ID, "rust")
	assert.ErrorIs(t, err, ErrTagExists)
	_, err = svc.Update(ctx, 999, "nope")
	assert.ErrorIs(t, err, ErrTagNotFound)

	require.NoError(t, svc.Remove(ctx, rust.ID))
	var links int64
	require.NoError(t, db.Table("post_tags").Where("tag_id = ?", rust.ID).Count(&links).Error)
	assert.Zero(t, links)
	assert.ErrorIs(t, svc.Remove(ctx, rust.ID), ErrTagNotFound)
}

func TestValidTagName(t *testing.T) {
	for name, want := range map[string]bool{
		"golang":      true,
		"web dev":     true,
		"front-end_2": true,
		"c#":          false,
		"naïve":       false,
		"":            false,
	} {
		assert.Equal(t, want, ValidTagName(name), name)
	}
}
