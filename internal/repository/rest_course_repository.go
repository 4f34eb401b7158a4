package repository

import (
	"context"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/baas"
)

const courseSelect = "id,title,description,teacher_id,created_at,more_details,difficulty,helpful_percentage,helpful_percentage_work"

// RESTCourseRepository reads courses through the hosted data API.
type RESTCourseRepository struct {
	client *baas.Client
}

// NewRESTCourseRepository constructs the repository.
func NewRESTCourseRepository(client *baas.Client) *RESTCourseRepository {
	return &RESTCourseRepository{client: client}
}

// List returns courses, newest first, optionally restricted to a teacher.
func (r *RESTCourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	q := r.client.From("courses").Select(courseSelect)
	if filter.TeacherID != "" {
		q = q.Eq("teacher_id", filter.TeacherID)
	}
	var courses []models.Course
	if err := q.Order("created_at", false).Get(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// FindByID returns a course by its ID.
func (r *RESTCourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.client.From("courses").Select(courseSelect).Eq("id", id).Single().Get(ctx, &course); err != nil {
		return nil, notFound(err)
	}
	return &course, nil
}
