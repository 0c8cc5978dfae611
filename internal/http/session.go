package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inkpost/internal/session"
)

const (
	sessionCookie = "inkpost_session"

	ctxSessionID    = "inkpost.session_id"
	ctxSessionState = "inkpost.session_state"
)

// loadSession attaches the request's session State to the gin context. A
// store failure degrades to Anonymous.
func (h *Handler) loadSession(c *gin.Context) {
	id, st := "", session.Anonymous
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		var loadErr error
		id, st, loadErr = h.cfg.Sessions.Load(c.Request.Context(), token)
		if loadErr != nil {
			h.logger.Warnf("load session: %v", loadErr)
		}
	}
	c.Set(ctxSessionID, id)
	c.Set(ctxSessionState, st)
	c.Next()
}

func sessionOf(c *gin.Context) (string, session.State) {
	st, ok := c.Get(ctxSessionState)
	if !ok {
		return "", session.Anonymous
	}
	return c.GetString(ctxSessionID), st.(session.State)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
