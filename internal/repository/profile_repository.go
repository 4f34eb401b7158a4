package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/etp-gateway/internal/models"
)

const profileColumns = "id, email, role, created_at"

// ProfileRepository reads and writes profiles directly in Postgres.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID returns the profile keyed by the auth identity.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE id = $1", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateEmail mirrors the session email onto the profile.
func (r *ProfileRepository) UpdateEmail(ctx context.Context, id, email string) (*models.Profile, error) {
	query := fmt.Sprintf("UPDATE profiles SET email = $2 WHERE id = $1 RETURNING %s", profileColumns)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id, email); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	role := profile.Role
	if role == "" {
		role = models.DefaultRole
	}
	query := fmt.Sprintf("INSERT INTO profiles (id, email, role) VALUES ($1, $2, $3) RETURNING %s", profileColumns)
	var created models.Profile
	if err := r.db.GetContext(ctx, &created, query, profile.ID, profile.Email, role); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &created, nil
}

// ListByRole returns profiles holding role ordered by email.
func (r *ProfileRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE role = $1 ORDER BY email ASC", profileColumns)
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, role); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
