package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost/internal/domain"
	"inkpost/internal/session"
)

func TestPostCreateRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.postSvc.Create(ctx, session.Anonymous, "hello", "world")
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	// A session whose identity disappeared is anonymous too.
	_, err = f.postSvc.Create(ctx, session.State{IdentityID: 999, Username: "ghost"}, "hello", "world")
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	posts, err := f.postSvc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")

	_, err := f.postSvc.Create(ctx, alice, "   ", "body")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.postSvc.Create(ctx, alice, "title", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPostOwnershipScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	post, err := f.postSvc.Create(ctx, alice, "R", "first draft")
	require.NoError(t, err)
	assert.Equal(t, alice.IdentityID, post.OwnerID)

	_, err = f.postSvc.Update(ctx, bob, post.ID, PostUpdate{Title: "R", Content: "hijacked"})
	assert.ErrorIs(t, err, session.ErrForbidden)
	assert.ErrorIs(t, f.postSvc.Delete(ctx, bob, post.ID), session.ErrForbidden)

	updated, err := f.postSvc.Update(ctx, alice, post.ID, PostUpdate{Title: "R", Content: "second draft"})
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Content)
	assert.Equal(t, post.Version+1, updated.Version)

	got, err := f.postSvc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "second draft", got.Content)
	assert.Equal(t, alice.IdentityID, got.OwnerID)

	require.NoError(t, f.postSvc.Delete(ctx, alice, post.ID))
	_, err = f.postSvc.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostMutationMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")

	_, err := f.postSvc.Update(ctx, alice, 42, PostUpdate{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.ErrorIs(t, f.postSvc.Delete(ctx, alice, 42), ErrPostNotFound)

	assert.ErrorIs(t, f.postSvc.Delete(ctx, session.Anonymous, 42), session.ErrUnauthenticated)
}

func TestPostUpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")

	post, err := f.postSvc.Create(ctx, alice, "t", "v1")
	require.NoError(t, err)
	staleVersion := post.Version

	_, err = f.postSvc.Update(ctx, alice, post.ID, PostUpdate{Title: "t", Content: "v2", Version: staleVersion})
	require.NoError(t, err)

	_, err = f.postSvc.Update(ctx, alice, post.ID, PostUpdate{Title: "t", Content: "v2b", Version: staleVersion})
	assert.ErrorIs(t, err, ErrPostConflict)

	got, err := f.postSvc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
}

func TestPostUpdateInvalidLeavesStoredPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")
	post, err := f.postSvc.Create(ctx, alice, "t", "v1")
	require.NoError(t, err)

	_, err = f.postSvc.Update(ctx, alice, post.ID, PostUpdate{Title: "", Content: "v2"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := f.postSvc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Content)
	assert.Equal(t, post.Version, got.Version)
}

func TestPostListByOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	_, err := f.postSvc.Create(ctx, alice, "a1", "x")
	require.NoError(t, err)
	_, err = f.postSvc.Create(ctx, bob, "b1", "x")
	require.NoError(t, err)
	_, err = f.postSvc.Create(ctx, alice, "a2", "x")
	require.NoError(t, err)

	all, err := f.postSvc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.postSvc.ListByOwner(ctx, alice.IdentityID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "a2", mine[0].Title)
	assert.Equal(t, "a1", mine[1].Title)
}
