package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

type fakeTeacherService struct {
	cards      []models.TeacherCard
	detail     *models.TeacherDetail
	lastFilter models.TeacherFilter
}

func (f *fakeTeacherService) List(_ context.Context, filter models.TeacherFilter) ([]models.TeacherCard, bool, error) {
	f.lastFilter = filter
	return f.cards, false, nil
}

func (f *fakeTeacherService) Get(_ context.Context, id string) (*models.TeacherDetail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return f.detail, nil
}

func TestTeacherHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeTeacherService{cards: []models.TeacherCard{
		{Profile: models.Profile{ID: "t-1", Email: "anna.smith@example.com", Role: models.RoleTeacher}, DisplayName: "Anna Smith"},
	}}
	handler := NewTeacherHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teachers?q=anna", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anna", svc.lastFilter.Search)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var cards []models.TeacherCard
	require.NoError(t, json.Unmarshal(envelope.Data, &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Anna Smith", cards[0].DisplayName)
}

func TestTeacherHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	detail := &models.TeacherDetail{
		TeacherCard: models.TeacherCard{Profile: models.Profile{ID: "t-1", Role: models.RoleTeacher}},
		Courses:     []models.Course{{ID: "c-1", Title: "Grammar"}},
	}
	handler := NewTeacherHandler(&fakeTeacherService{detail: detail})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teachers/t-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t-1"}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grammar")

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/teachers/unknown", nil)
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
