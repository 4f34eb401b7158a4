package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/internal/service"
)

func TestContentHandlerLessonsFiltered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(service.NewContentService(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/lessons?q=ADVANCED", nil)

	handler.Lessons(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var lessons []models.Lesson
	require.NoError(t, json.Unmarshal(envelope.Data, &lessons))
	require.Len(t, lessons, 1)
	assert.Equal(t, "Academic English Reading", lessons[0].Title)
}

func TestContentHandlerHome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(service.NewContentService(), nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/home", nil)

	handler.Home(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	var home models.HomeContent
	require.NoError(t, json.Unmarshal(envelope.Data, &home))
	assert.NotEmpty(t, home.Features)
}

func TestContentHandlerEnrollLesson(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewContentHandler(service.NewContentService(), nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "known lesson", body: `{"title":"business english writing"}`, status: http.StatusOK},
		{name: "unknown lesson", body: `{"title":"Latin"}`, status: http.StatusNotFound},
		{name: "missing title", body: `{}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPost, "/lessons/enroll", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			handler.EnrollLesson(c)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
