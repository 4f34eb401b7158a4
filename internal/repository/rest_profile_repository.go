package repository

import (
	"context"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/baas"
)

const profileSelect = "id,email,role,created_at"

// RESTProfileRepository stores profiles through the hosted data API.
type RESTProfileRepository struct {
	client *baas.Client
}

// NewRESTProfileRepository constructs the repository.
func NewRESTProfileRepository(client *baas.Client) *RESTProfileRepository {
	return &RESTProfileRepository{client: client}
}

// FindByID returns the profile keyed by the auth identity.
func (r *RESTProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.client.From("profiles").Select(profileSelect).Eq("id", id).Single().Get(ctx, &profile)
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// UpdateEmail mirrors the session email onto the profile.
func (r *RESTProfileRepository) UpdateEmail(ctx context.Context, id, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.client.From("profiles").Select(profileSelect).Eq("id", id).Single().
		Update(ctx, map[string]string{"email": email}, &profile)
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *RESTProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	role := profile.Role
	if role == "" {
		role = models.DefaultRole
	}
	payload := map[string]string{"id": profile.ID, "email": profile.Email, "role": string(role)}
	var created models.Profile
	if err := r.client.From("profiles").Select(profileSelect).Single().Insert(ctx, payload, &created); err != nil {
		return nil, notFound(err)
	}
	return &created, nil
}

// ListByRole returns profiles holding role ordered by email.
func (r *RESTProfileRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.client.From("profiles").Select(profileSelect).Eq("role", string(role)).Order("email", true).Get(ctx, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
