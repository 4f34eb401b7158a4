package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

type authBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.AuthSession, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.AuthSession, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*models.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
}

type sessionStore interface {
	Get(ctx context.Context, sid string) (*models.AuthSession, error)
	Save(ctx context.Context, sid string, session *models.AuthSession, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
	SaveOAuthState(ctx context.Context, state string, value models.OAuthState, ttl time.Duration) error
	TakeOAuthState(ctx context.Context, state string) (*models.OAuthState, error)
}

type sessionPublisher interface {
	Publish(evt models.SessionEvent)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	SessionTTL     time.Duration
	RefreshLeeway  time.Duration
	JWTSecret      string
	OAuthProviders []string
	OAuthRedirect  string
	OAuthStateTTL  time.Duration
}

// AuthService keeps browser sessions in step with the hosted auth API and
// announces every change on the session events channel.
type AuthService struct {
	backend   authBackend
	store     sessionStore
	events    sessionPublisher
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	refreshes singleflight.Group
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(backend authBackend, store sessionStore, events sessionPublisher, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 7 * 24 * time.Hour
	}
	if config.OAuthStateTTL <= 0 {
		config.OAuthStateTTL = 10 * time.Minute
	}
	return &AuthService{
		backend:   backend,
		store:     store,
		events:    events,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// SignIn exchanges credentials for a session and returns the new browser session id.
func (s *AuthService) SignIn(ctx context.Context, req models.LoginRequest) (string, *models.AuthSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	session, err := s.backend.SignInWithPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return "", nil, s.authFailure(err)
	}
	return s.establish(ctx, session)
}

// OAuthURL prepares a PKCE authorization redirect for provider. The returned
// state id must come back with the callback.
func (s *AuthService) OAuthURL(ctx context.Context, provider, redirectTo string) (string, string, error) {
	if !s.providerAllowed(provider) {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported provider %q", provider))
	}

	verifier, err := newCodeVerifier()
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare sign in")
	}
	state := uuid.NewString()
	if err := s.store.SaveOAuthState(ctx, state, models.OAuthState{Verifier: verifier, Provider: provider, RedirectTo: redirectTo}, s.config.OAuthStateTTL); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare sign in")
	}

	return s.backend.AuthorizeURL(provider, s.config.OAuthRedirect, codeChallenge(verifier)), state, nil
}

// CompleteOAuth finishes the PKCE flow started by OAuthURL.
func (s *AuthService) CompleteOAuth(ctx context.Context, state, code string) (string, *models.AuthSession, string, error) {
	if state == "" || code == "" {
		return "", nil, "", appErrors.Clone(appErrors.ErrValidation, "missing authorization code")
	}

	pending, err := s.store.TakeOAuthState(ctx, state)
	if err != nil {
		return "", nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sign in state")
	}
	if pending == nil {
		return "", nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "sign in attempt expired")
	}

	session, err := s.backend.ExchangeCode(ctx, code, pending.Verifier)
	if err != nil {
		return "", nil, "", s.authFailure(err)
	}
	sid, established, err := s.establish(ctx, session)
	if err != nil {
		return "", nil, "", err
	}
	return sid, established, pending.RedirectTo, nil
}

// SignOut ends the session. A failing remote sign-out is logged but the local
// session is always discarded.
func (s *AuthService) SignOut(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	session, err := s.store.Get(ctx, sid)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil
	}

	if err := s.backend.SignOut(ctx, session.AccessToken); err != nil {
		s.logger.Warn("remote sign out failed", zap.String("identity", session.User.ID), zap.Error(err))
	}
	if err := s.store.Delete(ctx, sid); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	s.publish(models.SessionSignedOut, sid, nil, session.User.ID)
	return nil
}

// CurrentSession returns the session behind sid, refreshing it when the access
// token is about to expire. It returns nil when there is no usable session.
func (s *AuthService) CurrentSession(ctx context.Context, sid string) (*models.AuthSession, error) {
	if sid == "" {
		return nil, nil
	}
	session, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil || !session.Expired(s.now(), s.config.RefreshLeeway) {
		return session, nil
	}

	result, err, _ := s.refreshes.Do(sid, func() (interface{}, error) {
		return s.refresh(ctx, sid, session)
	})
	if err != nil {
		return nil, err
	}
	refreshed, _ := result.(*models.AuthSession)
	return refreshed, nil
}

func (s *AuthService) refresh(ctx context.Context, sid string, session *models.AuthSession) (*models.AuthSession, error) {
	refreshed, err := s.backend.RefreshSession(ctx, session.RefreshToken)
	if err == nil {
		err = s.verify(refreshed)
	}
	if err != nil {
		s.logger.Info("session refresh failed, signing out", zap.String("identity", session.User.ID), zap.Error(err))
		if delErr := s.store.Delete(ctx, sid); delErr != nil {
			s.logger.Warn("failed to drop stale session", zap.Error(delErr))
		}
		s.publish(models.SessionSignedOut, sid, nil, session.User.ID)
		return nil, nil
	}

	if err := s.store.Save(ctx, sid, refreshed, s.config.SessionTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}
	s.publish(models.SessionTokenRefreshed, sid, refreshed, refreshed.User.ID)
	return refreshed, nil
}

// ValidateAccessToken checks a backend-issued access token. Without a
// configured secret the claims are decoded but not verified.
func (s *AuthService) ValidateAccessToken(token string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	if s.config.JWTSecret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}
	return claims, nil
}

func (s *AuthService) establish(ctx context.Context, session *models.AuthSession) (string, *models.AuthSession, error) {
	if err := s.verify(session); err != nil {
		return "", nil, err
	}
	sid := uuid.NewString()
	if err := s.store.Save(ctx, sid, session, s.config.SessionTTL); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}
	s.publish(models.SessionSignedIn, sid, session, session.User.ID)
	return sid, session, nil
}

// verify makes sure the token belongs to the user it came with and fills in
// details the token response left out.
func (s *AuthService) verify(session *models.AuthSession) error {
	if session == nil || session.AccessToken == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "backend returned no session")
	}
	claims, err := s.ValidateAccessToken(session.AccessToken)
	if err != nil {
		return err
	}
	if session.User.ID == "" {
		session.User.ID = claims.Subject
	}
	if session.User.Email == "" {
		session.User.Email = claims.Email
	}
	if claims.Subject != "" && claims.Subject != session.User.ID {
		return appErrors.Clone(appErrors.ErrUnauthorized, "access token does not match user")
	}
	if session.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return nil
}

func (s *AuthService) authFailure(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	wrapped := remoteError(err)
	if wrapped.Status == http.StatusBadRequest || wrapped.Status == http.StatusUnauthorized {
		return appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, wrapped.Message)
	}
	return wrapped
}

func (s *AuthService) publish(kind models.SessionEventType, sid string, session *models.AuthSession, identity string) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.SessionEvent{Type: kind, SessionID: sid, Session: session, Identity: identity, At: s.now().UTC()})
}

func (s *AuthService) providerAllowed(provider string) bool {
	for _, p := range s.config.OAuthProviders {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

func newCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
