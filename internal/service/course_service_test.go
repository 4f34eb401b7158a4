package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

type mockCourseStore struct {
	courses []models.Course
	listErr error
	filters []models.CourseFilter
}

func (m *mockCourseStore) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	m.filters = append(m.filters, filter)
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Course
	for _, c := range m.courses {
		if filter.TeacherID == "" || (c.TeacherID != nil && *c.TeacherID == filter.TeacherID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockProfileDirectory struct {
	profiles map[string]models.Profile
	findErr  error
	listErr  error
}

func (m *mockProfileDirectory) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (m *mockProfileDirectory) ListByRole(ctx context.Context, role models.UserRole) ([]models.Profile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Profile
	for _, p := range m.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func sampleCourses() []models.Course {
	now := time.Now()
	return []models.Course{
		{ID: "c2", Title: "Business English", Description: strPtr("Meetings and email"), TeacherID: strPtr("t1"), CreatedAt: now},
		{ID: "c1", Title: "Grammar Basics", Description: strPtr("Tenses for beginners"), TeacherID: strPtr("t2"), CreatedAt: now.Add(-time.Hour)},
		{ID: "c0", Title: "Pronunciation", CreatedAt: now.Add(-2 * time.Hour)},
	}
}

func TestCourseServiceListFiltersByTitleAndDescription(t *testing.T) {
	svc := NewCourseService(&mockCourseStore{courses: sampleCourses()}, &mockProfileDirectory{}, nil, nil)

	all, hit, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, all, 3)

	byDescription, _, err := svc.List(context.Background(), models.CourseFilter{Search: "TENSES"})
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "c1", byDescription[0].ID)

	none, _, err := svc.List(context.Background(), models.CourseFilter{Search: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCourseServiceListByTeacher(t *testing.T) {
	store := &mockCourseStore{courses: sampleCourses()}
	svc := NewCourseService(store, &mockProfileDirectory{}, nil, nil)

	courses, _, err := svc.List(context.Background(), models.CourseFilter{TeacherID: "t1"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "t1", store.filters[0].TeacherID)
}

func TestCourseServiceListWrapsBackendError(t *testing.T) {
	svc := NewCourseService(&mockCourseStore{listErr: errors.New("boom")}, &mockProfileDirectory{}, nil, nil)
	_, _, err := svc.List(context.Background(), models.CourseFilter{})
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceGetIncludesTeacherEmail(t *testing.T) {
	profiles := &mockProfileDirectory{profiles: map[string]models.Profile{"t1": {ID: "t1", Email: "teacher@example.com", Role: models.RoleTeacher}}}
	svc := NewCourseService(&mockCourseStore{courses: sampleCourses()}, profiles, nil, nil)

	detail, err := svc.Get(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", detail.TeacherEmail)
}

func TestCourseServiceGetFallsBackToTeacherID(t *testing.T) {
	profiles := &mockProfileDirectory{findErr: errors.New("permission denied")}
	svc := NewCourseService(&mockCourseStore{courses: sampleCourses()}, profiles, nil, nil)

	detail, err := svc.Get(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "t1", detail.TeacherEmail)

	noTeacher, err := svc.Get(context.Background(), "c0")
	require.NoError(t, err)
	assert.Empty(t, noTeacher.TeacherEmail)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseStore{}, &mockProfileDirectory{}, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
