package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

type enrollmentStore interface {
	Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
}

// EnrollmentService handles enroll and unenroll actions.
type EnrollmentService struct {
	repo     enrollmentStore
	exporter *ExportService
	logger   *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, exporter *ExportService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil)
	}
	return &EnrollmentService{repo: repo, exporter: exporter, logger: logger}
}

// Enroll enrolls studentID into courseID. Repeated enrollments are not
// deduplicated.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "please sign in to enroll")
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}

	created, err := s.repo.Create(ctx, &models.Enrollment{StudentID: studentID, CourseID: courseID})
	if err != nil {
		s.logger.Info("enrollment rejected", zap.String("student_id", studentID), zap.String("course_id", courseID), zap.Error(err))
		return nil, remoteError(err)
	}
	return created, nil
}

// List returns the student's enrollments, newest first.
func (s *EnrollmentService) List(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "please sign in")
	}
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, remoteError(err)
	}
	if items == nil {
		items = []models.EnrollmentDetail{}
	}
	return items, nil
}

// Unenroll removes one of the student's enrollments and returns what remains.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, enrollmentID string) ([]models.EnrollmentDetail, error) {
	items, err := s.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !containsEnrollment(items, enrollmentID) {
		return items, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return s.UnenrollFrom(ctx, items, enrollmentID)
}

// UnenrollFrom issues one delete for enrollmentID. On success the item is
// dropped from items; on failure items come back unchanged with the error.
func (s *EnrollmentService) UnenrollFrom(ctx context.Context, items []models.EnrollmentDetail, enrollmentID string) ([]models.EnrollmentDetail, error) {
	if err := s.repo.Delete(ctx, enrollmentID); err != nil {
		return items, remoteError(err)
	}
	remaining := make([]models.EnrollmentDetail, 0, len(items))
	for _, item := range items {
		if item.ID != enrollmentID {
			remaining = append(remaining, item)
		}
	}
	return remaining, nil
}

// Export renders the profile's enrollment history.
func (s *EnrollmentService) Export(ctx context.Context, profile models.Profile, format ExportFormat) (*ExportResult, error) {
	items, err := s.List(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Enrollments(format, profile, items)
}

func containsEnrollment(items []models.EnrollmentDetail, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
