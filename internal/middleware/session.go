package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/service"
	"github.com/noah-isme/etp-gateway/pkg/baas"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

const (
	// ContextSessionKey stores the *models.AuthSession of the caller.
	ContextSessionKey = "session"
	// ContextSessionIDKey stores the opaque browser session id.
	ContextSessionIDKey = "session_id"
)

type sessionResolver interface {
	CurrentSession(ctx context.Context, sid string) (*models.AuthSession, error)
}

type sessionMounter interface {
	Mount(session *models.AuthSession) service.ProfileSnapshot
}

// CookieConfig describes the browser session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Session resolves the session cookie into the caller's backend session,
// attaches it to the request and makes sure the profile provider knows it.
// Requests without a usable session continue anonymously.
func Session(auth sessionResolver, provider sessionMounter, cookie CookieConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookie.Name)
		if err != nil || sid == "" {
			c.Next()
			return
		}

		session, err := auth.CurrentSession(c.Request.Context(), sid)
		if err != nil {
			logger.Warn("session lookup failed", zap.Error(err))
			c.Next()
			return
		}
		if session == nil {
			ClearSessionCookie(c, cookie)
			c.Next()
			return
		}

		c.Set(ContextSessionIDKey, sid)
		c.Set(ContextSessionKey, session)
		c.Request = c.Request.WithContext(baas.WithAccessToken(c.Request.Context(), session.AccessToken))
		if provider != nil {
			provider.Mount(session)
		}
		c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFromContext(c) == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "please sign in"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the caller's session or nil.
func SessionFromContext(c *gin.Context) *models.AuthSession {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.AuthSession)
	return session
}

// SessionIDFromContext returns the browser session id or "".
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

// IdentityFromContext returns the caller's auth identity or "".
func IdentityFromContext(c *gin.Context) string {
	if session := SessionFromContext(c); session != nil {
		return session.User.ID
	}
	return ""
}

// SetSessionCookie hands the browser its session id.
func SetSessionCookie(c *gin.Context, cookie CookieConfig, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.Name, sid, int(cookie.TTL.Seconds()), "/", "", cookie.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, cookie CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookie.Name, "", -1, "/", "", cookie.Secure, true)
}
