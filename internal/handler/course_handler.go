package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/etp-gateway/internal/middleware"
	"github.com/noah-isme/etp-gateway/internal/models"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, bool, error)
	Get(ctx context.Context, id string) (*models.CourseDetail, error)
}

// CourseHandler exposes course listing, details and enrollment.
type CourseHandler struct {
	courses     courseService
	enrollments enrollmentService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(courses courseService, enrollments enrollmentService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// List godoc
// @Summary List courses
// @Description Newest first. q matches title or description, case-insensitively
// @Tags Courses
// @Produce json
// @Param q query string false "Search term"
// @Param teacherId query string false "Only courses of this teacher"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		Search:    c.Query("q"),
	}
	courses, hit, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "count", len(courses))
	response.JSON(c, http.StatusOK, courses, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Course details
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	detail, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), middleware.IdentityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}
