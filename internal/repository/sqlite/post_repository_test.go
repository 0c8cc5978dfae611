package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost/internal/domain"
	"inkpost/internal/repository"
)

func setupPosts(t *testing.T) (repository.PostRepository, int64, int64) {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	alice, err := users.Create(ctx, testUser("alice"))
	require.NoError(t, err)
	bob, err := users.Create(ctx, testUser("bob"))
	require.NoError(t, err)
	return NewPostRepository(db), alice, bob
}

func TestPostRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	posts, alice, _ := setupPosts(t)

	post := &domain.Post{OwnerID: alice, Title: "hello", Content: "world"}
	id, err := posts.Create(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Version)

	got, err := posts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, got.OwnerID)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, int64(1), got.Version)

	got.Title = "edited"
	require.NoError(t, posts.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	reread, err := posts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "edited", reread.Title)
	assert.Equal(t, int64(2), reread.Version)

	require.NoError(t, posts.Delete(ctx, id))
	_, err = posts.Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, posts.Delete(ctx, id), repository.ErrNotFound)
}

func TestPostRepositoryVersionConflict(t *testing.T) {
	ctx := context.Background()
	posts, alice, _ := setupPosts(t)

	id, err := posts.Create(ctx, &domain.Post{OwnerID: alice, Title: "t", Content: "c"})
	require.NoError(t, err)

	first, err := posts.Get(ctx, id)
	require.NoError(t, err)
	second, err := posts.Get(ctx, id)
	require.NoError(t, err)

	first.Content = "first writer"
	require.NoError(t, posts.Update(ctx, first))

	second.Content = "second writer"
	assert.ErrorIs(t, posts.Update(ctx, second), repository.ErrVersionConflict)

	missing := &domain.Post{ID: 999, Version: 1, Title: "t", Content: "c"}
	assert.ErrorIs(t, posts.Update(ctx, missing), repository.ErrNotFound)
}

func TestPostRepositoryListing(t *testing.T) {
	ctx := context.Background()
	posts, alice, bob := setupPosts(t)

	var ids []int64
	for _, owner := range []int64{alice, bob, alice} {
		id, err := posts.Create(ctx, &domain.Post{OwnerID: owner, Title: "t", Content: "c"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	mine, err := posts.ListByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, p := range mine {
		assert.Equal(t, alice, p.OwnerID)
	}

	none, err := posts.ListByOwner(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}
