package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
)

// ReconcileState describes where an identity's profile stands.
type ReconcileState string

const (
	StateUnauthenticated ReconcileState = "unauthenticated"
	StateReconciling     ReconcileState = "reconciling"
	StateResolved        ReconcileState = "resolved"
	StateUnresolved      ReconcileState = "unresolved"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	UpdateEmail(ctx context.Context, id, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

// Reconciler makes sure the signed-in identity has exactly one profile whose
// email matches the session.
type Reconciler struct {
	repo   profileStore
	logger *zap.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(repo profileStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{repo: repo, logger: logger}
}

// Reconcile reads the identity's profile and then issues exactly one write:
// an email update when the profile exists, a create otherwise. It never
// fails; nil means the profile could not be established.
func (r *Reconciler) Reconcile(ctx context.Context, identity, email string) *models.Profile {
	log := r.logger.With(zap.String("identity", identity))

	existing, err := r.repo.FindByID(ctx, identity)
	if err == nil && existing != nil {
		updated, err := r.repo.UpdateEmail(ctx, identity, email)
		if err != nil {
			log.Warn("profile email update failed, keeping stored record", zap.Error(err))
			return existing
		}
		return updated
	}
	if err != nil {
		log.Debug("profile lookup failed, creating", zap.Error(err))
	}

	created, err := r.repo.Create(ctx, &models.Profile{ID: identity, Email: email, Role: models.DefaultRole})
	if err != nil {
		log.Warn("profile create failed", zap.Error(err))
		return nil
	}
	return created
}
