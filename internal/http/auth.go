package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkpost/internal/metrics"
	"inkpost/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// RegisterPassword is only read by register.
	RegisterPassword string `json:"register_password"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.cfg.Users.Register(c.Request.Context(), req.Username, req.Password, req.RegisterPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !h.cfg.Limiter.Allow(loginKey(c.ClientIP(), req.Username)) {
		h.observeLogin(metrics.LoginThrottled)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	ctx := c.Request.Context()
	id, st := sessionOf(c)
	next, err := h.cfg.Gate.Login(ctx, st, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.observeLogin(metrics.LoginFailure)
		}
		h.fail(c, err)
		return
	}

	token, expiresAt, err := h.cfg.Sessions.Begin(ctx, id, next)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.setSessionCookie(c, token, expiresAt)
	h.observeLogin(metrics.LoginSuccess)
	h.logger.WithField("user_id", next.IdentityID).Info("login")

	c.JSON(http.StatusOK, UserResponse{ID: next.IdentityID, Username: next.Username})
}

func (h *Handler) logout(c *gin.Context) {
	id, st := sessionOf(c)
	h.cfg.Gate.Logout(st)
	if err := h.cfg.Sessions.End(c.Request.Context(), id); err != nil {
		h.logger.Warnf("end session: %v", err)
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"logged_out": true})
}

func (h *Handler) me(c *gin.Context) {
	_, st := sessionOf(c)
	user, ok := h.cfg.Gate.ResolveIdentity(c.Request.Context(), st)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username})
}

func (h *Handler) observeLogin(outcome string) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.ObserveLogin(outcome)
	}
}
