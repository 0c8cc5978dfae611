package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength mirrors the width of the posts.title column.
const MaxTitleLength = 100

// Post is a short text entry owned by exactly one user.
type Post struct {
	ID        int64
	OwnerID   int64
	Title     string
	Content   string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPost builds a post for ownerID after validating the payload.
func NewPost(ownerID int64, title, content string) (*Post, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	post := &Post{OwnerID: ownerID}
	if err := post.SetContent(title, content); err != nil {
		return nil, err
	}
	return post, nil
}

// SetContent replaces title and content, leaving the post untouched on error.
func (p *Post) SetContent(title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	p.Title = title
	p.Content = content
	return nil
}
