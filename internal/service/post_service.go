package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"inkpost/internal/domain"
	"inkpost/internal/repository"
	"inkpost/internal/session"
)

var (
	// ErrPostNotFound is returned when a post id does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrPostConflict is returned when a post changed after the caller read it.
	ErrPostConflict = errors.New("post was modified concurrently")
)

// PostUpdate carries an edit. A zero Version means "whatever is stored now".
type PostUpdate struct {
	Title   string
	Content string
	Version int64
}

// PostService exposes post operations guarded by the session gate.
type PostService interface {
	Create(ctx context.Context, st session.State, title, content string) (*domain.Post, error)
	Update(ctx context.Context, st session.State, id int64, input PostUpdate) (*domain.Post, error)
	Delete(ctx context.Context, st session.State, id int64) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Post, error)
}

type postService struct {
	posts  repository.PostRepository
	gate   *session.Gate
	logger *logrus.Logger
}

func NewPostService(posts repository.PostRepository, gate *session.Gate, logger *logrus.Logger) PostService {
	if logger == nil {
		logger = logrus.New()
	}
	return &postService{posts: posts, gate: gate, logger: logger}
}

// Create stores a post owned by the session identity. Any owner supplied by
// the client is ignored.
func (s *postService) Create(ctx context.Context, st session.State, title, content string) (*domain.Post, error) {
	owner, decision := s.gate.AuthorizeCreate(ctx, st)
	if !decision.Allowed {
		s.deny("create", st, 0, decision)
		return nil, decision.Err()
	}

	post, err := domain.NewPost(owner.ID, title, content)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *postService) Update(ctx context.Context, st session.State, id int64, input PostUpdate) (*domain.Post, error) {
	post, err := s.authorizedPost(ctx, st, id, "update")
	if err != nil {
		return nil, err
	}
	if input.Version > 0 && input.Version != post.Version {
		return nil, ErrPostConflict
	}
	if err := post.SetContent(input.Title, input.Content); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, ErrPostConflict
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, st session.State, id int64) error {
	if _, err := s.authorizedPost(ctx, st, id, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// authorizedPost loads post id and checks st may mutate it. An anonymous
// caller is told to log in even when the post does not exist.
func (s *postService) authorizedPost(ctx context.Context, st session.State, id int64, action string) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load post: %w", err)
		}
		if !st.Authenticated() {
			return nil, session.ErrUnauthenticated
		}
		return nil, ErrPostNotFound
	}

	decision := s.gate.AuthorizeMutation(ctx, st, post)
	if !decision.Allowed {
		s.deny(action, st, id, decision)
		return nil, decision.Err()
	}
	return post, nil
}

func (s *postService) deny(action string, st session.State, postID int64, d session.Decision) {
	s.logger.WithFields(logrus.Fields{
		"action":      action,
		"identity_id": st.IdentityID,
		"post_id":     postID,
		"reason":      d.Reason,
	}).Info("post action denied")
}

func (s *postService) Get(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx)
}

func (s *postService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Post, error) {
	return s.posts.ListByOwner(ctx, ownerID)
}
