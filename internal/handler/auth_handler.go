package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/service"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

const oauthStateCookie = "etp_oauth_state"

type authService interface {
	SignIn(ctx context.Context, req models.LoginRequest) (string, *models.AuthSession, error)
	OAuthURL(ctx context.Context, provider, redirectTo string) (string, string, error)
	CompleteOAuth(ctx context.Context, state, code string) (string, *models.AuthSession, string, error)
	SignOut(ctx context.Context, sid string) error
}

type snapshotReader interface {
	Snapshot(identity string) service.ProfileSnapshot
}

// SessionView is the payload describing the caller's session.
type SessionView struct {
	Authenticated bool                    `json:"authenticated"`
	User          *models.AuthUser        `json:"user,omitempty"`
	ExpiresAt     *time.Time              `json:"expires_at,omitempty"`
	Profile       service.ProfileSnapshot `json:"profile"`
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service   authService
	snapshots snapshotReader
	cookie    middleware.CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, snapshots snapshotReader, cookie middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, snapshots: snapshots, cookie: cookie}
}

// Login godoc
// @Summary Sign in with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	sid, session, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookie, sid)
	response.JSON(c, http.StatusOK, h.view(session))
}

// OAuthStart godoc
// @Summary Sign in with an OAuth provider
// @Description Redirects the browser to the provider's consent page
// @Tags Authentication
// @Param provider path string true "Provider (google, github)"
// @Param redirect query string false "Path to return to after sign in"
// @Success 302
// @Failure 400 {object} response.Envelope
// @Router /auth/oauth/{provider} [get]
func (h *AuthHandler) OAuthStart(c *gin.Context) {
	redirectTo := safeRedirect(c.Query("redirect"), "/")
	authorizeURL, state, err := h.service.OAuthURL(c.Request.Context(), c.Param("provider"), redirectTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, authorizeURL)
}

// OAuthCallback godoc
// @Summary Complete OAuth sign in
// @Tags Authentication
// @Param code query string true "Authorization code"
// @Success 302
// @Failure 401 {object} response.Envelope
// @Router /auth/callback [get]
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	if desc := c.Query("error_description"); desc != "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, desc))
		return
	}
	state, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cookie.Secure, true)

	sid, _, redirectTo, err := h.service.CompleteOAuth(c.Request.Context(), state, c.Query("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetSessionCookie(c, h.cookie, sid)
	c.Redirect(http.StatusFound, safeRedirect(redirectTo, "/"))
}

// Logout godoc
// @Summary Sign out
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sid, _ := c.Cookie(h.cookie.Name)
	if err := h.service.SignOut(c.Request.Context(), sid); err != nil {
		response.Error(c, err)
		return
	}
	middleware.ClearSessionCookie(c, h.cookie)
	response.NoContent(c)
}

// Session godoc
// @Summary Current session and profile reconciliation state
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.view(middleware.SessionFromContext(c)))
}

func (h *AuthHandler) view(session *models.AuthSession) SessionView {
	if session == nil {
		return SessionView{Profile: service.ProfileSnapshot{State: service.StateUnauthenticated}}
	}
	user := session.User
	view := SessionView{Authenticated: true, User: &user, Profile: h.snapshots.Snapshot(user.ID)}
	if !session.ExpiresAt.IsZero() {
		expires := session.ExpiresAt.UTC()
		view.ExpiresAt = &expires
	}
	return view
}
