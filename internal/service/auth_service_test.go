package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/repository"
	"github.com/noah-isme/etp-gateway/pkg/baas"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

const testJWTSecret = "test-secret"

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := models.AccessClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

type fakeAuthBackend struct {
	mu            sync.Mutex
	session       *models.AuthSession
	signInErr     error
	refreshErr    error
	refreshed     *models.AuthSession
	signOutErr    error
	exchangeErr   error
	calls         []string
	lastVerifier  string
	lastChallenge string
}

func (f *fakeAuthBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAuthBackend) SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error) {
	f.record("password")
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeAuthBackend) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	f.record("refresh")
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeAuthBackend) ExchangeCode(ctx context.Context, code, verifier string) (*models.AuthSession, error) {
	f.record("pkce")
	f.lastVerifier = verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.session, nil
}

func (f *fakeAuthBackend) SignOut(ctx context.Context, accessToken string) error {
	f.record("logout")
	return f.signOutErr
}

func (f *fakeAuthBackend) AuthorizeURL(provider, redirectTo, challenge string) string {
	f.lastChallenge = challenge
	return "https://auth.example.com/authorize?provider=" + url.QueryEscape(provider) + "&code_challenge=" + challenge
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (r *recordingPublisher) Publish(evt models.SessionEvent) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recordingPublisher) types() []models.SessionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SessionEventType, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeAuthBackend, *repository.MemorySessionRepository, *recordingPublisher) {
	t.Helper()
	backend := &fakeAuthBackend{
		session: &models.AuthSession{
			AccessToken:  signedToken(t, "u1", "a@example.com", time.Now().Add(time.Hour)),
			RefreshToken: "refresh-1",
			ExpiresAt:    time.Now().Add(time.Hour),
			User:         models.AuthUser{ID: "u1", Email: "a@example.com"},
		},
	}
	store := repository.NewMemorySessionRepository()
	events := &recordingPublisher{}
	svc := NewAuthService(backend, store, events, nil, nil, AuthConfig{
		SessionTTL:     time.Hour,
		RefreshLeeway:  30 * time.Second,
		JWTSecret:      testJWTSecret,
		OAuthProviders: []string{"google", "github"},
		OAuthRedirect:  "http://localhost:8080/api/v1/auth/callback",
	})
	return svc, backend, store, events
}

func TestAuthServiceSignInStoresSessionAndPublishes(t *testing.T) {
	svc, _, store, events := newAuthFixture(t)

	sid, session, err := svc.SignIn(context.Background(), models.LoginRequest{Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotEmpty(t, sid)
	assert.Equal(t, "u1", session.User.ID)

	stored, err := store.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []models.SessionEventType{models.SessionSignedIn}, events.types())
}

func TestAuthServiceSignInValidatesBeforeCallingBackend(t *testing.T) {
	svc, backend, _, events := newAuthFixture(t)

	_, _, err := svc.SignIn(context.Background(), models.LoginRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, backend.calls)
	assert.Empty(t, events.types())
}

func TestAuthServiceSignInSurfacesBackendMessage(t *testing.T) {
	svc, backend, _, _ := newAuthFixture(t)
	backend.signInErr = &baas.Error{Status: 400, Message: "Invalid login credentials"}

	_, _, err := svc.SignIn(context.Background(), models.LoginRequest{Email: "a@example.com", Password: "wrong"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, "Invalid login credentials", appErr.Message)
}

func TestAuthServiceRejectsTokenForAnotherUser(t *testing.T) {
	svc, backend, _, _ := newAuthFixture(t)
	backend.session.AccessToken = signedToken(t, "someone-else", "x@example.com", time.Now().Add(time.Hour))

	_, _, err := svc.SignIn(context.Background(), models.LoginRequest{Email: "a@example.com", Password: "secret"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceCurrentSessionRefreshesExpiredToken(t *testing.T) {
	svc, backend, store, events := newAuthFixture(t)
	ctx := context.Background()
	expired := *backend.session
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, "sid-1", &expired, time.Hour))

	backend.refreshed = &models.AuthSession{
		AccessToken:  signedToken(t, "u1", "a@example.com", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-2",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.AuthUser{ID: "u1", Email: "a@example.com"},
	}

	session, err := svc.CurrentSession(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "refresh-2", session.RefreshToken)
	assert.Equal(t, []models.SessionEventType{models.SessionTokenRefreshed}, events.types())

	stored, _ := store.Get(ctx, "sid-1")
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestAuthServiceCurrentSessionSignsOutWhenRefreshFails(t *testing.T) {
	svc, backend, store, events := newAuthFixture(t)
	ctx := context.Background()
	expired := *backend.session
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, "sid-1", &expired, time.Hour))
	backend.refreshErr = &baas.Error{Status: 400, Message: "Invalid Refresh Token"}

	session, err := svc.CurrentSession(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, []models.SessionEventType{models.SessionSignedOut}, events.types())

	stored, _ := store.Get(ctx, "sid-1")
	assert.Nil(t, stored)
}

func TestAuthServiceCurrentSessionWithoutCookie(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	session, err := svc.CurrentSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, session)

	session, err = svc.CurrentSession(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestAuthServiceSignOutClearsLocallyWhenRemoteFails(t *testing.T) {
	svc, backend, store, events := newAuthFixture(t)
	ctx := context.Background()
	sid, _, err := svc.SignIn(ctx, models.LoginRequest{Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	backend.signOutErr = errors.New("network down")

	require.NoError(t, svc.SignOut(ctx, sid))

	stored, _ := store.Get(ctx, sid)
	assert.Nil(t, stored)
	assert.Equal(t, []models.SessionEventType{models.SessionSignedIn, models.SessionSignedOut}, events.types())
	assert.Equal(t, "u1", events.events[1].Identity)
}

func TestAuthServiceOAuthRoundTrip(t *testing.T) {
	svc, backend, _, events := newAuthFixture(t)
	ctx := context.Background()

	authorizeURL, state, err := svc.OAuthURL(ctx, "google", "/profile")
	require.NoError(t, err)
	assert.Contains(t, authorizeURL, "provider=google")
	require.NotEmpty(t, state)

	sid, session, redirectTo, err := svc.CompleteOAuth(ctx, state, "auth-code")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.Equal(t, "u1", session.User.ID)
	assert.Equal(t, "/profile", redirectTo)

	sum := sha256.Sum256([]byte(backend.lastVerifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), backend.lastChallenge)
	assert.Equal(t, []models.SessionEventType{models.SessionSignedIn}, events.types())

	_, _, _, err = svc.CompleteOAuth(ctx, state, "auth-code")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceOAuthRejectsUnknownProvider(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	_, _, err := svc.OAuthURL(context.Background(), "myspace", "/")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateAccessToken(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	claims, err := svc.ValidateAccessToken(signedToken(t, "u1", "a@example.com", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	_, err = svc.ValidateAccessToken("garbage")
	assert.Error(t, err)

	_, err = svc.ValidateAccessToken(signedToken(t, "u1", "a@example.com", time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}
