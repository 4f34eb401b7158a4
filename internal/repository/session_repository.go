package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/etp-gateway/internal/models"
)

const (
	sessionKeyPrefix = "etp:session:"
	oauthKeyPrefix   = "etp:oauth:"
)

// RedisSessionRepository keeps browser sessions in Redis so several gateway
// instances can share them.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewRedisSessionRepository constructs the repository.
func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// Get returns the session stored under sid, or nil when there is none.
func (r *RedisSessionRepository) Get(ctx context.Context, sid string) (*models.AuthSession, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+sid).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var session models.AuthSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Save stores the session for ttl.
func (r *RedisSessionRepository) Save(ctx context.Context, sid string, session *models.AuthSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+sid, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete drops the session stored under sid.
func (r *RedisSessionRepository) Delete(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// SaveOAuthState remembers the PKCE verifier for a pending authorize redirect.
func (r *RedisSessionRepository) SaveOAuthState(ctx context.Context, state string, value models.OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}
	if err := r.client.Set(ctx, oauthKeyPrefix+state, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set oauth state: %w", err)
	}
	return nil
}

// TakeOAuthState returns and removes a pending OAuth state; a state can only
// be consumed once.
func (r *RedisSessionRepository) TakeOAuthState(ctx context.Context, state string) (*models.OAuthState, error) {
	raw, err := r.client.GetDel(ctx, oauthKeyPrefix+state).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis take oauth state: %w", err)
	}
	var value models.OAuthState
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal oauth state: %w", err)
	}
	return &value, nil
}

type memoryEntry struct {
	session   *models.AuthSession
	oauth     *models.OAuthState
	expiresAt time.Time
}

// MemorySessionRepository is the single-instance fallback when Redis is disabled.
type MemorySessionRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySessionRepository constructs an empty in-memory store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

func (r *MemorySessionRepository) load(key string) (memoryEntry, bool) {
	entry, ok := r.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (r *MemorySessionRepository) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(ttl)
}

// Get returns a copy of the session stored under sid, or nil.
func (r *MemorySessionRepository) Get(_ context.Context, sid string) (*models.AuthSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.load(sessionKeyPrefix + sid)
	if !ok || entry.session == nil {
		return nil, nil
	}
	session := *entry.session
	return &session, nil
}

// Save stores a copy of the session for ttl.
func (r *MemorySessionRepository) Save(_ context.Context, sid string, session *models.AuthSession, ttl time.Duration) error {
	copied := *session
	r.mu.Lock()
	r.entries[sessionKeyPrefix+sid] = memoryEntry{session: &copied, expiresAt: r.expiry(ttl)}
	r.mu.Unlock()
	return nil
}

// Delete drops the session stored under sid.
func (r *MemorySessionRepository) Delete(_ context.Context, sid string) error {
	r.mu.Lock()
	delete(r.entries, sessionKeyPrefix+sid)
	r.mu.Unlock()
	return nil
}

// SaveOAuthState remembers the PKCE verifier for a pending authorize redirect.
func (r *MemorySessionRepository) SaveOAuthState(_ context.Context, state string, value models.OAuthState, ttl time.Duration) error {
	r.mu.Lock()
	r.entries[oauthKeyPrefix+state] = memoryEntry{oauth: &value, expiresAt: r.expiry(ttl)}
	r.mu.Unlock()
	return nil
}

// TakeOAuthState returns and removes a pending OAuth state.
func (r *MemorySessionRepository) TakeOAuthState(_ context.Context, state string) (*models.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := oauthKeyPrefix + state
	entry, ok := r.load(key)
	if !ok || entry.oauth == nil {
		return nil, nil
	}
	delete(r.entries, key)
	return entry.oauth, nil
}
