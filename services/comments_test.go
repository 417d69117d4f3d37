package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogd/models"
)

type commentFixture struct {
	svc    *CommentsService
	author *models.User
	other  *models.User
	post   *models.Post
	second *models.Post
}

func newCommentFixture(t *testing.T) commentFixture {
	db := newTestDB(t)
	author := newUser(t, db, "author", models.RoleUser)
	other := newUser(t, db, "reader", models.RoleUser)
	posts := NewPostsService(db, 3)
	return commentFixture{
		svc:    NewCommentsService(db, 3),
		author: author,
		other:  other,
		post:   newPost(t, posts, author.ID, "Discussed", CreatePostInput{Published: true}),
		second: newPost(t, posts, author.ID, "Elsewhere", CreatePostInput{Published: true}),
	}
}

func TestCreateCommentAndReplies(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	root, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: " first! ", PostID: f.post.ID})
	require.NoError(t, err)
	assert.Equal(t, "first!", root.Content)
	assert.Zero(t, root.Depth)
	assert.Nil(t, root.ParentID)
	assert.Equal(t, "reader", root.Author.Username)
	require.NotNil(t, root.Post)
	assert.Equal(t, "discussed", root.Post.Slug)

	reply, err := f.svc.Reply(ctx, f.author.ID, CreateCommentInput{Content: "thanks", PostID: f.post.ID, ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)
	require.NotNil(t, reply.Parent)
	assert.Equal(t, root.ID, reply.Parent.ID)

	nested, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "deeper", PostID: f.post.ID, ParentID: &reply.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, nested.Depth)

	_, err = f.svc.Create(ctx, f.author.ID, CreateCommentInput{Content: "too deep", PostID: f.post.ID, ParentID: &nested.ID})
	assert.ErrorIs(t, err, ErrThreadTooDeep)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestCreateCommentRejectsBadInput(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	root, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "root", PostID: f.post.ID})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "  ", PostID: f.post.ID})
	assert.ErrorIs(t, err, ErrContentRequired)

	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: strings.Repeat("a", 1001), PostID: f.post.ID})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "lost", PostID: 4242})
	assert.ErrorIs(t, err, ErrPostNotFound)

	missing := uint(4242)
	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "orphan", PostID: f.post.ID, ParentID: &missing})
	assert.ErrorIs(t, err, ErrParentNotFound)

	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "cross", PostID: f.second.ID, ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrParentMismatch)

	_, err = f.svc.Reply(ctx, f.other.ID, CreateCommentInput{Content: "no parent", PostID: f.post.ID})
	assert.ErrorIs(t, err, ErrParentRequired)
}

func TestFindAllComments(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "a", PostID: f.post.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.author.ID, CreateCommentInput{Content: "a1", PostID: f.post.ID, ParentID: &a.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "b", PostID: f.second.ID})
	require.NoError(t, err)

	top, page, err := f.svc.FindAll(ctx, CommentQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 20, page.Limit)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Content, "newest first")
	require.Len(t, top[1].Replies, 1)
	assert.EqualValues(t, 1, top[1].RepliesCount)

	all, _, err := f.svc.FindAll(ctx, CommentQuery{IncludeReplies: "true", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Content)

	byAuthor, _, err := f.svc.FindByUser(ctx, f.author.ID, PageQuery{})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "a1", byAuthor[0].Content)

	onPost, _, err := f.svc.FindByPost(ctx, f.post.ID, PageQuery{})
	require.NoError(t, err)
	assert.Len(t, onPost, 1)

	_, _, err = f.svc.FindByPost(ctx, 999, PageQuery{})
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, _, err = f.svc.FindByUser(ctx, 999, PageQuery{})
	assert.ErrorIs(t, err, ErrUserNotFound)

	replies, page, err := f.svc.FindReplies(ctx, a.ID, PageQuery{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, replies, 1)
	assert.Equal(t, Pagination{Page: 1, Limit: 5, Total: 1, Pages: 1}, page)
}

func TestUpdateComment(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "tpyo", PostID: f.post.ID})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, c.ID, f.author.ID, "hijacked")
	assert.ErrorIs(t, err, ErrNotCommentAuthor)

	_, err = f.svc.Update(ctx, 999, f.other.ID, "ghost")
	assert.ErrorIs(t, err, ErrCommentNotFound)

	got, err := f.svc.Update(ctx, c.ID, f.other.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, "typo", got.Content)
}

func TestRemoveCommentSoftDeletesWhenReplied(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	parent, err := f.svc.Create(ctx, f.other.ID, CreateCommentInput{Content: "parent", PostID: f.post.ID})
	require.NoError(t, err)
	child, err := f.svc.Create(ctx, f.author.ID, CreateCommentInput{Content: "child", PostID: f.post.ID, ParentID: &parent.ID})
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, parent.ID, f.author.ID)
	assert.ErrorIs(t, err, ErrNotCommentAuthor)

	soft, err := f.svc.Remove(ctx, parent.ID, f.other.ID)
	require.NoError(t, err)
	assert.True(t, soft)

	kept, err := f.svc.FindOne(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedCommentContent, kept.Content)
	assert.True(t, kept.Deleted)
	require.Len(t, kept.Replies, 1)

	_, err = f.svc.Update(ctx, parent.ID, f.other.ID, "back from the dead")
	assert.ErrorIs(t, err, ErrCommentDeleted)
	assert.Equal(t, KindConflict, KindOf(err))
	kept, err = f.svc.FindOne(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletedCommentContent, kept.Content)

	soft, err = f.svc.Remove(ctx, child.ID, f.author.ID)
	require.NoError(t, err)
	assert.False(t, soft)
	_, err = f.svc.FindOne(ctx, child.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
