package repository

import (
	"context"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/baas"
)

const enrollmentSelect = "id,student_id,course_id,enrolled_at,course:courses(id,title,description,difficulty)"

// RESTEnrollmentRepository stores enrollments through the hosted data API.
type RESTEnrollmentRepository struct {
	client *baas.Client
}

// NewRESTEnrollmentRepository constructs the repository.
func NewRESTEnrollmentRepository(client *baas.Client) *RESTEnrollmentRepository {
	return &RESTEnrollmentRepository{client: client}
}

// Create persists a new enrollment; id and timestamp come from the backend.
func (r *RESTEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	payload := map[string]string{"student_id": enrollment.StudentID, "course_id": enrollment.CourseID}
	var created models.Enrollment
	err := r.client.From("enrollments").Select("id,student_id,course_id,enrolled_at").Single().Insert(ctx, payload, &created)
	if err != nil {
		return nil, notFound(err)
	}
	return &created, nil
}

// ListByStudent returns a student's enrollments with the course embedded.
func (r *RESTEnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var enrollments []models.EnrollmentDetail
	err := r.client.From("enrollments").Select(enrollmentSelect).Eq("student_id", studentID).Order("enrolled_at", false).Get(ctx, &enrollments)
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Delete removes an enrollment by its ID.
func (r *RESTEnrollmentRepository) Delete(ctx context.Context, id string) error {
	return r.client.From("enrollments").Eq("id", id).Delete(ctx)
}
