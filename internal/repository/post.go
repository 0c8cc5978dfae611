package repository

import (
	"context"

	"inkpost/internal/domain"
)

// PostRepository exposes persistence operations for posts.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	// Update writes title and content when the stored version still equals
	// post.Version, then bumps the version. ErrVersionConflict otherwise.
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Post, error)
}
