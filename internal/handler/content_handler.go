package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/etp-gateway/internal/models"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
	"github.com/noah-isme/etp-gateway/pkg/response"
)

type contentService interface {
	Home() models.HomeContent
	Lessons(term string) []models.Lesson
	EnrollLesson(title string) (string, error)
}

type lessonEnrollRequest struct {
	Title string `json:"title" validate:"required"`
}

// ContentHandler serves the static pages.
type ContentHandler struct {
	service   contentService
	validator *validator.Validate
}

// NewContentHandler constructs the handler.
func NewContentHandler(svc contentService, validate *validator.Validate) *ContentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ContentHandler{service: svc, validator: validate}
}

// Home godoc
// @Summary Landing page content
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /home [get]
func (h *ContentHandler) Home(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Home())
}

// Lessons godoc
// @Summary Lesson catalog
// @Tags Content
// @Produce json
// @Param q query string false "Matches title or level"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *ContentHandler) Lessons(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Lessons(c.Query("q")))
}

// EnrollLesson godoc
// @Summary Acknowledge interest in a lesson
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body lessonEnrollRequest true "Lesson"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/enroll [post]
func (h *ContentHandler) EnrollLesson(c *gin.Context) {
	var req lessonEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "title is required"))
		return
	}
	msg, err := h.service.EnrollLesson(req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": msg})
}
