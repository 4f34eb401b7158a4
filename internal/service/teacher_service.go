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

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.Profile, error)
}

var teacherFields search.Fields[models.TeacherCard] = func(t models.TeacherCard) []string {
	return []string{t.Email, t.DisplayName}
}

// TeacherService powers the teacher directory.
type TeacherService struct {
	profiles teacherDirectory
	courses  courseStore
	cache    *CacheService
	logger   *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(profiles teacherDirectory, courses courseStore, cache *CacheService, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{profiles: profiles, courses: courses, cache: cache, logger: logger}
}

// List returns teacher cards ordered by email and narrowed by the search term.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherCard, bool, error) {
	cards, hit, err := remember(ctx, s.cache, "teachers:all", func(ctx context.Context) ([]models.TeacherCard, error) {
		profiles, err := s.profiles.ListByRole(ctx, models.RoleTeacher)
		if err != nil {
			return nil, err
		}
		cards := make([]models.TeacherCard, 0, len(profiles))
		for _, p := range profiles {
			cards = append(cards, toTeacherCard(p))
		}
		return cards, nil
	})
	if err != nil {
		return nil, false, remoteError(err)
	}
	if cards == nil {
		cards = []models.TeacherCard{}
	}
	return search.Filter(cards, filter.Search, teacherFields), hit, nil
}

// Get returns a teacher profile together with their courses, newest first.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, remoteError(err)
	}
	if profile.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	courses, err := s.courses.List(ctx, models.CourseFilter{TeacherID: id})
	if err != nil {
		return nil, remoteError(err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return &models.TeacherDetail{TeacherCard: toTeacherCard(*profile), Courses: courses}, nil
}

func toTeacherCard(p models.Profile) models.TeacherCard {
	return models.TeacherCard{Profile: p, DisplayName: p.DisplayName()}
}
