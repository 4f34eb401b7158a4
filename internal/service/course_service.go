package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/search"
)

type courseStore interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type profileLookup interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

var courseFields search.Fields[models.Course] = func(c models.Course) []string {
	return []string{c.Title, models.TextOrEmpty(c.Description)}
}

// CourseService serves course listings and details.
type CourseService struct {
	courses  courseStore
	profiles profileLookup
	cache    *CacheService
	logger   *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(courses courseStore, profiles profileLookup, cache *CacheService, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, profiles: profiles, cache: cache, logger: logger}
}

// List returns courses newest first, optionally limited to one teacher and
// narrowed by the search term. The boolean reports a cache hit.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, bool, error) {
	key := "courses:all"
	if filter.TeacherID != "" {
		key = "courses:teacher:" + filter.TeacherID
	}
	courses, hit, err := remember(ctx, s.cache, key, func(ctx context.Context) ([]models.Course, error) {
		return s.courses.List(ctx, models.CourseFilter{TeacherID: filter.TeacherID})
	})
	if err != nil {
		return nil, false, remoteError(err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return search.Filter(courses, filter.Search, courseFields), hit, nil
}

// Get returns a course with its teacher's email. When the teacher cannot be
// looked up the teacher id stands in for the email.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, remoteError(err)
	}

	detail := &models.CourseDetail{Course: *course}
	if course.TeacherID == nil || *course.TeacherID == "" {
		return detail, nil
	}
	teacher, err := s.profiles.FindByID(ctx, *course.TeacherID)
	if err != nil || teacher == nil {
		s.logger.Debug("teacher lookup failed", zap.String("teacher_id", *course.TeacherID), zap.Error(err))
		detail.TeacherEmail = *course.TeacherID
		return detail, nil
	}
	detail.TeacherEmail = teacher.Email
	return detail, nil
}
