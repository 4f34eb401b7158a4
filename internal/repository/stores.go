package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/baas"
)

// ProfileStore is implemented by both profile repositories.
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	UpdateEmail(ctx context.Context, id, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.Profile, error)
}

// CourseStore is implemented by both course repositories.
type CourseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentStore is implemented by both enrollment repositories.
type EnrollmentStore interface {
	Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
}

// SessionStore keeps browser sessions and pending OAuth states.
type SessionStore interface {
	Get(ctx context.Context, sid string) (*models.AuthSession, error)
	Save(ctx context.Context, sid string, session *models.AuthSession, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
	SaveOAuthState(ctx context.Context, state string, value models.OAuthState, ttl time.Duration) error
	TakeOAuthState(ctx context.Context, state string) (*models.OAuthState, error)
}

// Stores groups the data repositories of one backend.
type Stores struct {
	Profiles    ProfileStore
	Courses     CourseStore
	Enrollments EnrollmentStore
}

// NewRESTStores goes through the hosted data API.
func NewRESTStores(client *baas.Client) Stores {
	return Stores{
		Profiles:    NewRESTProfileRepository(client),
		Courses:     NewRESTCourseRepository(client),
		Enrollments: NewRESTEnrollmentRepository(client),
	}
}

// NewPostgresStores talks to the database directly.
func NewPostgresStores(db *sqlx.DB) Stores {
	return Stores{
		Profiles:    NewProfileRepository(db),
		Courses:     NewCourseRepository(db),
		Enrollments: NewEnrollmentRepository(db),
	}
}

var (
	_ ProfileStore    = (*ProfileRepository)(nil)
	_ ProfileStore    = (*RESTProfileRepository)(nil)
	_ CourseStore     = (*CourseRepository)(nil)
	_ CourseStore     = (*RESTCourseRepository)(nil)
	_ EnrollmentStore = (*EnrollmentRepository)(nil)
	_ EnrollmentStore = (*RESTEnrollmentRepository)(nil)
	_ SessionStore    = (*RedisSessionRepository)(nil)
	_ SessionStore    = (*MemorySessionRepository)(nil)
)
