package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/service"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

func TestProfileHandlerGetResolved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	profile := &models.Profile{ID: "user-1", Email: "jane.doe@example.com", Role: models.RoleStudent}
	enrollments := &fakeEnrollmentService{items: []models.EnrollmentDetail{{Enrollment: models.Enrollment{ID: "e-1"}}}}
	handler := NewProfileHandler(fakeSnapshots{"user-1": {State: service.StateResolved, Profile: profile}}, enrollments)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile", nil)
	withSession(c, testSession())

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var view ProfileView
	require.NoError(t, json.Unmarshal(envelope.Data, &view))
	assert.Equal(t, service.StateResolved, view.State)
	assert.Equal(t, "Jane Doe", view.DisplayName)
	assert.Len(t, view.Enrollments, 1)
}

func TestProfileHandlerGetWhileReconciling(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(fakeSnapshots{"user-1": {State: service.StateReconciling}}, &fakeEnrollmentService{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile", nil)
	withSession(c, testSession())

	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var view ProfileView
	require.NoError(t, json.Unmarshal(envelope.Data, &view))
	assert.Equal(t, service.StateReconciling, view.State)
	assert.Nil(t, view.Profile)
	assert.Empty(t, view.DisplayName)
}

func TestProfileHandlerGetEnrollmentFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(fakeSnapshots{}, &fakeEnrollmentService{listErr: appErrors.Clone(appErrors.ErrUpstream, "JWT expired")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile", nil)
	withSession(c, testSession())

	handler.Get(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "JWT expired")
}

func TestProfileHandlerExportFallsBackToSessionIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	enrollments := &fakeEnrollmentService{}
	handler := NewProfileHandler(fakeSnapshots{}, enrollments)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile/enrollments/export?format=CSV", nil)
	withSession(c, testSession())

	handler.ExportEnrollments(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "enrollments.csv")
	require.NotNil(t, enrollments.exported)
	assert.Equal(t, "jane.doe@example.com", enrollments.exported.Email)
	assert.Equal(t, models.RoleStudent, enrollments.exported.Role)
}

func TestProfileHandlerExportRejectsFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProfileHandler(fakeSnapshots{}, &fakeEnrollmentService{exportErr: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile/enrollments/export?format=xlsx", nil)
	withSession(c, testSession())

	handler.ExportEnrollments(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
