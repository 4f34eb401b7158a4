package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/baas"
	"github.com/noah-isme/etp-gateway/pkg/jobs"
)

type profileReconciler interface {
	Reconcile(ctx context.Context, identity, email string) *models.Profile
}

type sessionSubscriber interface {
	Subscribe(ctx context.Context) (<-chan models.SessionEvent, func())
}

type listingInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// teacherListingPattern matches the cached teacher directory keys.
const teacherListingPattern = "teachers:*"

// ProfileSnapshot is what views read about an identity's profile.
type ProfileSnapshot struct {
	State     ReconcileState  `json:"state"`
	Profile   *models.Profile `json:"profile"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// identityEntry outlives sign-out so the generation keeps growing across
// sessions of the same identity. run serializes its reconciles.
type identityEntry struct {
	generation uint64
	snapshot   ProfileSnapshot
	run        sync.Mutex
}

type reconcileRequest struct {
	Identity    string
	Email       string
	AccessToken string
	Generation  uint64
}

// ProviderConfig sizes the reconciliation workers.
type ProviderConfig struct {
	Workers    int
	BufferSize int
}

// SessionProvider is the single application-wide listener for session
// changes. It owns profile reconciliation and serves non-blocking snapshots.
type SessionProvider struct {
	events     sessionSubscriber
	reconciler profileReconciler
	metrics    *MetricsService
	logger     *zap.Logger
	queue      *jobs.Queue[reconcileRequest]
	listings   listingInvalidator

	mu      sync.RWMutex
	entries map[string]*identityEntry

	scope       context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
	now         func() time.Time
}

// NewSessionProvider constructs the provider; call Start before use.
func NewSessionProvider(events sessionSubscriber, reconciler profileReconciler, metrics *MetricsService, logger *zap.Logger, cfg ProviderConfig) *SessionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &SessionProvider{
		events:     events,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger,
		entries:    make(map[string]*identityEntry),
		now:        time.Now,
	}
	p.queue = jobs.New("profile-reconcile", p.handleJob, jobs.Config{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return p
}

// InvalidateListings drops the cached teacher directory whenever a teacher
// profile is reconciled. Call before Start.
func (p *SessionProvider) InvalidateListings(cache listingInvalidator) {
	p.listings = cache
}

// Start subscribes to session events for the lifetime of ctx. Cancelling ctx
// (or calling Stop) releases the subscription and discards any reconciliation
// still in flight.
func (p *SessionProvider) Start(ctx context.Context) {
	p.scope, p.cancel = context.WithCancel(ctx)
	ch, unsubscribe := p.events.Subscribe(p.scope)
	p.unsubscribe = unsubscribe
	p.done = make(chan struct{})
	p.queue.Start(p.scope)

	go func() {
		defer close(p.done)
		for evt := range ch {
			p.handleEvent(evt)
		}
	}()
}

// Stop tears the provider down and waits for the event loop to exit.
func (p *SessionProvider) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.unsubscribe()
	<-p.done
	p.queue.Stop()
}

// QueueStats reports the reconciliation backlog.
func (p *SessionProvider) QueueStats() jobs.Stats {
	return p.queue.Stats()
}

// Snapshot returns the current view of identity without waiting for any
// reconciliation in progress.
func (p *SessionProvider) Snapshot(identity string) ProfileSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[identity]
	if !ok {
		return ProfileSnapshot{State: StateUnauthenticated}
	}
	return entry.snapshot
}

// Mount starts reconciliation for a session the provider is not tracking,
// such as one restored from the session store after a restart or still open
// in another browser after a sign-out.
func (p *SessionProvider) Mount(session *models.AuthSession) ProfileSnapshot {
	if session == nil || session.User.ID == "" {
		return ProfileSnapshot{State: StateUnauthenticated}
	}
	return p.begin(session, false)
}

func (p *SessionProvider) handleEvent(evt models.SessionEvent) {
	if p.scope.Err() != nil {
		return
	}
	switch {
	case evt.Type == models.SessionSignedOut || evt.Session == nil:
		p.clear(evt.Identity)
	default:
		p.begin(evt.Session, true)
	}
}

// clear forgets the profile but keeps the entry, so reconciles started before
// the sign-out stay stale after the next sign-in.
func (p *SessionProvider) clear(identity string) {
	if identity == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[identity]
	if !ok {
		return
	}
	entry.generation++
	entry.snapshot = ProfileSnapshot{State: StateUnauthenticated, UpdatedAt: p.now().UTC()}
}

// begin moves the session's identity into the reconciling state and queues
// the work without waiting. When force is false a tracked identity is left
// untouched.
func (p *SessionProvider) begin(session *models.AuthSession, force bool) ProfileSnapshot {
	identity := session.User.ID

	p.mu.Lock()
	entry, ok := p.entries[identity]
	if ok && !force && entry.snapshot.State != StateUnauthenticated {
		snapshot := entry.snapshot
		p.mu.Unlock()
		return snapshot
	}
	if !ok {
		entry = &identityEntry{}
		p.entries[identity] = entry
	}
	entry.generation++
	entry.snapshot = ProfileSnapshot{State: StateReconciling, Profile: entry.snapshot.Profile, UpdatedAt: p.now().UTC()}
	req := reconcileRequest{
		Identity:    identity,
		Email:       session.User.Email,
		AccessToken: session.AccessToken,
		Generation:  entry.generation,
	}
	snapshot := entry.snapshot
	p.mu.Unlock()

	job := jobs.Job[reconcileRequest]{ID: fmt.Sprintf("%s#%d", identity, req.Generation), Payload: req}
	if err := p.queue.TryEnqueue(job); err != nil {
		p.logger.Warn("reconcile not queued", zap.String("identity", identity), zap.Error(err))
		if settled, ok := p.apply(req, nil); ok {
			return settled
		}
	}
	return snapshot
}

func (p *SessionProvider) handleJob(ctx context.Context, job jobs.Job[reconcileRequest]) error {
	req := job.Payload

	p.mu.RLock()
	entry, ok := p.entries[req.Identity]
	p.mu.RUnlock()
	if !ok {
		return nil
	}

	entry.run.Lock()
	defer entry.run.Unlock()

	if !p.current(req) {
		p.metrics.RecordReconcile(ReconcileOutcomeDiscarded)
		return nil
	}

	profile := p.reconciler.Reconcile(baas.WithAccessToken(ctx, req.AccessToken), req.Identity, req.Email)
	snapshot, applied := p.apply(req, profile)
	if applied && p.listings != nil && snapshot.Profile != nil && snapshot.Profile.Role == models.RoleTeacher {
		_ = p.listings.Invalidate(ctx, teacherListingPattern)
	}
	return nil
}

func (p *SessionProvider) current(req reconcileRequest) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[req.Identity]
	return ok && entry.generation == req.Generation
}

// apply stores a reconciliation result unless the provider was torn down or a
// newer event has superseded the request. A nil profile settles as
// unresolved.
func (p *SessionProvider) apply(req reconcileRequest, profile *models.Profile) (ProfileSnapshot, bool) {
	if p.scope == nil || p.scope.Err() != nil {
		p.metrics.RecordReconcile(ReconcileOutcomeDiscarded)
		return ProfileSnapshot{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[req.Identity]
	if !ok || entry.generation != req.Generation {
		p.metrics.RecordReconcile(ReconcileOutcomeDiscarded)
		return ProfileSnapshot{}, false
	}

	state := StateResolved
	outcome := ReconcileOutcomeResolved
	if profile == nil {
		state = StateUnresolved
		outcome = ReconcileOutcomeUnresolved
	}
	entry.snapshot = ProfileSnapshot{State: state, Profile: profile, UpdatedAt: p.now().UTC()}
	p.metrics.RecordReconcile(outcome)
	return entry.snapshot, true
}
