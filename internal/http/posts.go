package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkpost/internal/domain"
	"inkpost/internal/service"
)

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	// Version is optional on update; zero skips the client side check.
	Version int64 `json:"version"`
}

type PostResponse struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PostListResponse struct {
	Posts []PostResponse `json:"posts"`
	Count int            `json:"count"`
}

func (h *Handler) listPosts(c *gin.Context) {
	posts, err := h.cfg.Posts.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) listUserPosts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	posts, err := h.cfg.Posts.ListByOwner(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	post, err := h.cfg.Posts.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	_, st := sessionOf(c)
	post, err := h.cfg.Posts.Create(c.Request.Context(), st, req.Title, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	_, st := sessionOf(c)
	post, err := h.cfg.Posts.Update(c.Request.Context(), st, id, service.PostUpdate{
		Title:   req.Title,
		Content: req.Content,
		Version: req.Version,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	_, st := sessionOf(c)
	if err := h.cfg.Posts.Delete(c.Request.Context(), st, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func postsToResponse(posts []domain.Post) PostListResponse {
	resp := PostListResponse{Posts: make([]PostResponse, len(posts)), Count: len(posts)}
	for i := range posts {
		resp.Posts[i] = postToResponse(posts[i])
	}
	return resp
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		OwnerID:   post.OwnerID,
		Title:     post.Title,
		Content:   post.Content,
		Version:   post.Version,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
		UpdatedAt: post.UpdatedAt.Format(time.RFC3339),
	}
}
