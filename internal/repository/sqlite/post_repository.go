package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkpost/internal/domain"
	"inkpost/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_owner_id ON posts(owner_id);
`

const selectPosts = `
SELECT id, owner_id, title, content, version, created_at, updated_at
FROM posts`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	// posts tables created before edits were versioned lack this column
	return ensureColumns(ctx, r.db, "posts", map[string]string{
		"version": `ALTER TABLE posts ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
	})
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.Version = 1

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (owner_id, title, content, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		post.OwnerID,
		post.Title,
		post.Content,
		post.Version,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE posts
SET title=?, content=?, version=version+1, updated_at=?
WHERE id=? AND version=?`,
		post.Title,
		post.Content,
		now,
		post.ID,
		post.Version,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("post update rows affected: %w", err)
	}
	if aff == 0 {
		if _, err := r.Get(ctx, post.ID); err != nil {
			return err
		}
		return fmt.Errorf("post %d at version %d: %w", post.ID, post.Version, repository.ErrVersionConflict)
	}
	post.Version++
	post.UpdatedAt = now
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("post delete rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPosts+`
WHERE id=?`, id)
	return scanPost(row)
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
ORDER BY created_at DESC, id DESC`)
}

func (r *PostRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Post, error) {
	return r.query(ctx, selectPosts+`
WHERE owner_id=?
ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *PostRepository) query(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.Title,
		&post.Content,
		&post.Version,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}
