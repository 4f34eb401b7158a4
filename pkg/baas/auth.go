package baas

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/noah-isme/etp-gateway/internal/models"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *models.AuthSession {
	expiresAt := time.Time{}
	switch {
	case t.ExpiresAt > 0:
		expiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return &models.AuthSession{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         models.AuthUser{ID: t.User.ID, Email: t.User.Email},
	}
}

func (c *Client) token(ctx context.Context, grant string, body interface{}) (*models.AuthSession, error) {
	var out tokenResponse
	_, err := c.do(ctx, request{
		operation: "auth.token." + grant,
		method:    http.MethodPost,
		path:      "/auth/v1/token?grant_type=" + url.QueryEscape(grant),
		body:      body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.session(time.Now()), nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// RefreshSession trades a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// ExchangeCode completes a PKCE OAuth flow.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*models.AuthSession, error) {
	return c.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
}

// SignOut revokes the session identified by accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, request{
		operation: "auth.logout",
		method:    http.MethodPost,
		path:      "/auth/v1/logout",
		bearer:    accessToken,
	}, nil)
	return err
}

// AuthorizeURL is where the browser is sent to sign in with provider.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// Health probes the auth API.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, request{
		operation: "auth.health",
		method:    http.MethodGet,
		path:      "/auth/v1/health",
	}, nil)
	return err
}
